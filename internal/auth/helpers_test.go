package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	keyOnce  sync.Once
	testKeys map[string]*rsa.PrivateKey
)

// signingKey returns a cached RSA key for kid ("k1", "k2" or "rogue").
func signingKey(t *testing.T, kid string) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		testKeys = make(map[string]*rsa.PrivateKey)
		for _, id := range []string{"k1", "k2", "rogue"} {
			k, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			testKeys[id] = k
		}
	})
	k, ok := testKeys[kid]
	require.True(t, ok, "unknown test kid %s", kid)
	return k
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// jwksServer serves a mutable JWKS document and counts requests.
type jwksServer struct {
	*httptest.Server
	hits atomic.Int32

	mu     sync.Mutex
	kids   []string
	status int
	delay  time.Duration
}

func newJWKSServer(t *testing.T, kids ...string) *jwksServer {
	t.Helper()
	s := &jwksServer{kids: kids, status: http.StatusOK}
	// Materialize keys before the handler runs.
	for _, kid := range kids {
		signingKey(t, kid)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.mu.Lock()
		kids, status, delay := s.kids, s.status, s.delay
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksDocument(kids))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) setKids(t *testing.T, kids ...string) {
	t.Helper()
	for _, kid := range kids {
		signingKey(t, kid)
	}
	s.mu.Lock()
	s.kids = kids
	s.mu.Unlock()
}

func (s *jwksServer) setStatus(status int) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *jwksServer) setDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

func jwksDocument(kids []string) []byte {
	set := jose.JSONWebKeySet{}
	for _, kid := range kids {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       &testKeys[kid].PublicKey,
			KeyID:     kid,
			Algorithm: "RS256",
			Use:       "sig",
		})
	}
	b, err := json.Marshal(set)
	if err != nil {
		panic(err)
	}
	return b
}

// signToken signs claims with the key registered under signKid and puts headerKid
// in the header ("" omits it).
func signToken(t *testing.T, signKid, headerKid string, claims jwt.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if headerKid != "" {
		tok.Header["kid"] = headerKid
	}
	s, err := tok.SignedString(signingKey(t, signKid))
	require.NoError(t, err)
	return s
}

const (
	testIssuer   = "https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_TEST"
	testClientID = "client-123"
)

func validClaims(sub string) *Claims {
	now := time.Now()
	return &Claims{
		TokenUse: "id",
		Email:    sub + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testClientID},
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

// fakeCache is an in-memory documentCache.
type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	gets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) GetString(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *fakeCache) SetStringWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	c.ttls[key] = ttl
	return nil
}

type recordingObserver struct {
	mu      sync.Mutex
	fetches []string
	results []error
}

func (o *recordingObserver) KeySetFetched(source string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	label := source + ":ok"
	if err != nil {
		label = source + ":error"
	}
	o.fetches = append(o.fetches, label)
}

func (o *recordingObserver) TokenVerified(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, err)
}
