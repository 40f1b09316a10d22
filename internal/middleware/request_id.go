package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/AnshRaj112/moodlog-backend/pkg/ctxutil"
)

const headerRequestID = "X-Request-Id"

// maxRequestIDLen bounds caller-supplied ids before they reach the logs.
const maxRequestIDLen = 128

// RequestID propagates X-Request-Id, generating a UUID when absent or oversized.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctxutil.WithRequestID(r.Context(), id)))
	})
}
