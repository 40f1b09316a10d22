package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/AnshRaj112/moodlog-backend/internal/auth"
	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/AnshRaj112/moodlog-backend/pkg/ctxutil"
)

type tokenVerifierMock struct {
	VerifyFunc func(ctx context.Context, authorization string) (*auth.Claims, error)
	calls      []string
}

func (m *tokenVerifierMock) Verify(ctx context.Context, authorization string) (*auth.Claims, error) {
	m.calls = append(m.calls, authorization)
	return m.VerifyFunc(ctx, authorization)
}

func acceptOnly(header, sub string) *tokenVerifierMock {
	return &tokenVerifierMock{
		VerifyFunc: func(_ context.Context, authorization string) (*auth.Claims, error) {
			if authorization == header {
				return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}, nil
			}
			return nil, fmt.Errorf("%w: bad token", models.ErrUnauthorized)
		},
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	verifier := acceptOnly("Bearer good", "user-a")

	var gotSub string
	handler := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub, _ = ctxutil.SubjectFromCtx(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/entry", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-a", gotSub)
}

func TestRequireAuth_RejectsBeforeHandler(t *testing.T) {
	verifier := acceptOnly("Bearer good", "user-a")

	for _, header := range []string{"", "Bearer bad", "Basic Zm9vOmJhcg=="} {
		called := false
		handler := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/entry", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String(), header)
		assert.False(t, called, header)
	}
}

func TestRequireAuth_QueryTokenOnlyForWebSocket(t *testing.T) {
	verifier := acceptOnly("Bearer ws-token", "user-a")
	handler := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	plain := httptest.NewRequest(http.MethodGet, "/api/entry/events?access_token=ws-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, plain)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	upgrade := httptest.NewRequest(http.MethodGet, "/api/entry/events?access_token=ws-token", nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, upgrade)
	assert.Equal(t, http.StatusOK, rec.Code)
}
