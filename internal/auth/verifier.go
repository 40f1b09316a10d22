// Package auth verifies identity provider tokens (Cognito-style RS256 JWTs).
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

var (
	errMissingBearer = errors.New("missing bearer token")
	errMissingKID    = errors.New("token header has no kid")
	errMissingSub    = errors.New("token has no subject")
	errTokenUse      = errors.New("unexpected token_use")
	errAudience      = errors.New("token not issued for this client")
)

// Claims are the verified claims of a provider token.
type Claims struct {
	TokenUse string `json:"token_use,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"cognito:username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type keyResolver interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type tokenObserver interface {
	TokenVerified(err error)
}

// VerifierOptions configures the claim checks. Empty strings disable a check.
type VerifierOptions struct {
	Issuer   string
	ClientID string
	TokenUse string // "id" or "access"
	Leeway   time.Duration
	Observer tokenObserver
	Logger   *slog.Logger
}

// Verifier checks bearer tokens against the provider key set.
type Verifier struct {
	keys     keyResolver
	parser   *jwt.Parser
	clientID string
	tokenUse string
	observer tokenObserver
	log      *slog.Logger
	now      func() time.Time
}

// NewVerifier creates a Verifier. Only RS256 tokens with an exp claim are accepted.
func NewVerifier(keys keyResolver, opts VerifierOptions) *Verifier {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	v := &Verifier{
		keys:     keys,
		clientID: opts.ClientID,
		tokenUse: opts.TokenUse,
		observer: opts.Observer,
		log:      opts.Logger.With("component", "token_verifier"),
		now:      time.Now,
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(opts.Leeway),
		jwt.WithTimeFunc(func() time.Time { return v.now() }),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	v.parser = jwt.NewParser(parserOpts...)

	return v
}

// Verify validates the Authorization header value and returns the token claims.
// Every failure wraps models.ErrUnauthorized; the precise cause is only logged.
func (v *Verifier) Verify(ctx context.Context, authorization string) (*Claims, error) {
	claims, err := v.verify(ctx, authorization)
	if v.observer != nil {
		v.observer.TokenVerified(err)
	}
	if err != nil {
		v.log.WarnContext(ctx, "token rejected", slog.String("reason", err.Error()))
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
	}
	return claims, nil
}

func (v *Verifier) verify(ctx context.Context, authorization string) (*Claims, error) {
	raw, err := ParseBearer(authorization)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err = v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errMissingKID
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errMissingSub
	}
	if v.tokenUse != "" && claims.TokenUse != v.tokenUse {
		return nil, fmt.Errorf("%w: %q", errTokenUse, claims.TokenUse)
	}
	if v.clientID != "" {
		// Cognito access tokens carry client_id; id tokens carry aud.
		if claims.TokenUse == "access" {
			if claims.ClientID != v.clientID {
				return nil, errAudience
			}
		} else if !slices.Contains(claims.Audience, v.clientID) {
			return nil, errAudience
		}
	}

	return claims, nil
}

// ParseBearer extracts the token from an Authorization header value.
// The scheme match is case-insensitive.
func ParseBearer(authorization string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMissingBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMissingBearer
	}
	return token, nil
}
