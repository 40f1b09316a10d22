package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/moodlog-backend/internal/auth"
	"github.com/AnshRaj112/moodlog-backend/pkg/ctxutil"
)

type tokenVerifier interface {
	Verify(ctx context.Context, authorization string) (*auth.Claims, error)
}

// RequireAuth verifies the bearer token and stores its subject in the context.
// Any failure ends the request with 401 before the handler runs. Browsers cannot
// set headers on a WebSocket handshake, so upgrade requests may carry the token
// in the access_token query parameter instead.
func RequireAuth(verifier tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" && websocket.IsWebSocketUpgrade(r) {
				if tok := r.URL.Query().Get("access_token"); tok != "" {
					header = "Bearer " + tok
				}
			}

			claims, err := verifier.Verify(r.Context(), header)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			annotateSubject(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctxutil.WithSubject(r.Context(), claims.Subject)))
		})
	}
}
