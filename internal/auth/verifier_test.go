package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

func newTestVerifier(t *testing.T, opts VerifierOptions) (*Verifier, *jwksServer) {
	t.Helper()
	srv := newJWKSServer(t, "k1")
	ks := newTestKeySet(t, srv.URL, KeySetOptions{RefreshInterval: time.Hour})
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	return NewVerifier(ks, opts), srv
}

func TestVerifier_Success(t *testing.T) {
	t.Parallel()
	obs := &recordingObserver{}
	v, _ := newTestVerifier(t, VerifierOptions{Issuer: testIssuer, ClientID: testClientID, TokenUse: "id", Observer: obs})

	tok := signToken(t, "k1", "k1", validClaims("user-a"))
	claims, err := v.Verify(context.Background(), "Bearer "+tok)
	require.NoError(t, err)
	assert.Equal(t, "user-a", claims.Subject)
	assert.Equal(t, "user-a@example.com", claims.Email)
	require.Len(t, obs.results, 1)
	assert.NoError(t, obs.results[0])
}

func TestVerifier_AccessTokenClientID(t *testing.T) {
	t.Parallel()
	v, _ := newTestVerifier(t, VerifierOptions{ClientID: testClientID})

	c := validClaims("user-a")
	c.TokenUse = "access"
	c.Audience = nil
	c.ClientID = testClientID
	_, err := v.Verify(context.Background(), "Bearer "+signToken(t, "k1", "k1", c))
	require.NoError(t, err)

	c.ClientID = "someone-else"
	_, err = v.Verify(context.Background(), "Bearer "+signToken(t, "k1", "k1", c))
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestVerifier_Rejections(t *testing.T) {
	t.Parallel()

	expired := validClaims("user-a")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noExp := validClaims("user-a")
	noExp.ExpiresAt = nil

	wrongIssuer := validClaims("user-a")
	wrongIssuer.Issuer = "https://evil.example.com"

	noSub := validClaims("")

	wrongAud := validClaims("user-a")
	wrongAud.Audience = jwt.ClaimStrings{"other-client"}

	accessToken := validClaims("user-a")
	accessToken.TokenUse = "access"

	tests := []struct {
		name   string
		header func(t *testing.T) string
	}{
		{"missing header", func(*testing.T) string { return "" }},
		{"whitespace header", func(*testing.T) string { return "   " }},
		{"basic scheme", func(*testing.T) string { return "Basic dXNlcjpwYXNz" }},
		{"bearer without token", func(*testing.T) string { return "Bearer " }},
		{"raw token without scheme", func(t *testing.T) string { return signToken(t, "k1", "k1", validClaims("user-a")) }},
		{"malformed token", func(*testing.T) string { return "Bearer not.a.jwt" }},
		{"garbage token", func(*testing.T) string { return "Bearer abc" }},
		{"missing kid", func(t *testing.T) string { return "Bearer " + signToken(t, "k1", "", validClaims("user-a")) }},
		{"unknown kid", func(t *testing.T) string { return "Bearer " + signToken(t, "k2", "k2", validClaims("user-a")) }},
		{"bad signature", func(t *testing.T) string { return "Bearer " + signToken(t, "rogue", "k1", validClaims("user-a")) }},
		{"expired", func(t *testing.T) string { return "Bearer " + signToken(t, "k1", "k1", expired) }},
		{"no exp", func(t *testing.T) string { return "Bearer " + signToken(t, "k1", "k1", noExp) }},
		{"wrong issuer", func(t *testing.T) string { return "Bearer " + signToken(t, "k1", "k1", wrongIssuer) }},
		{"no subject", func(t *testing.T) string { return "Bearer " + signToken(t, "k1", "k1", noSub) }},
		{"wrong audience", func(t *testing.T) string { return "Bearer " + signToken(t, "k1", "k1", wrongAud) }},
		{"wrong token use", func(t *testing.T) string { return "Bearer " + signToken(t, "k1", "k1", accessToken) }},
		{"hs256 token", func(t *testing.T) string {
			tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("user-a"))
			tok.Header["kid"] = "k1"
			s, err := tok.SignedString([]byte("shared-secret"))
			require.NoError(t, err)
			return "Bearer " + s
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, _ := newTestVerifier(t, VerifierOptions{Issuer: testIssuer, ClientID: testClientID, TokenUse: "id"})

			claims, err := v.Verify(context.Background(), tt.header(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrUnauthorized)
			assert.Nil(t, claims)
		})
	}
}

func TestVerifier_ProviderDown(t *testing.T) {
	t.Parallel()
	v, srv := newTestVerifier(t, VerifierOptions{})
	srv.setStatus(502)

	_, err := v.Verify(context.Background(), "Bearer "+signToken(t, "k1", "k1", validClaims("user-a")))
	require.ErrorIs(t, err, models.ErrUnauthorized)
	assert.ErrorIs(t, err, ErrKeySetUnavailable)
}

func TestVerifier_OneFetchForManyTokens(t *testing.T) {
	t.Parallel()
	v, srv := newTestVerifier(t, VerifierOptions{})

	for _, sub := range []string{"a", "b", "c", "d"} {
		_, err := v.Verify(context.Background(), "Bearer "+signToken(t, "k1", "k1", validClaims(sub)))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, srv.hits.Load())
}

func TestVerifier_Leeway(t *testing.T) {
	t.Parallel()
	v, _ := newTestVerifier(t, VerifierOptions{Leeway: time.Minute})

	c := validClaims("user-a")
	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-10 * time.Second))
	_, err := v.Verify(context.Background(), "Bearer "+signToken(t, "k1", "k1", c))
	require.NoError(t, err)
}

func TestParseBearer(t *testing.T) {
	t.Parallel()

	tok, err := ParseBearer("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	tok, err = ParseBearer("bearer   abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Token abc", "abc"} {
		_, err := ParseBearer(h)
		assert.Error(t, err, h)
	}
}
