package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/moodlog-backend/pkg/clientip"
	"github.com/AnshRaj112/moodlog-backend/pkg/ctxutil"
)

type requestInfoKey struct{}

// requestInfo lets inner middleware report facts back to the request logger.
type requestInfo struct {
	subject string
}

func annotateSubject(ctx context.Context, sub string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.subject = sub
	}
}

// Logger returns middleware that logs each HTTP request with method, route,
// status code, duration, request id, client ip and the verified subject.
func Logger(logger *slog.Logger, trustForwarded bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)
			info := &requestInfo{}
			r = r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info))

			next.ServeHTTP(sw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.Int("status", sw.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", ctxutil.RequestIDFromCtx(r.Context())),
				slog.String("client_ip", clientip.FromRequest(r, trustForwarded)),
			}
			if info.subject != "" {
				attrs = append(attrs, slog.String("subject", info.subject))
			}

			level := slog.LevelInfo
			if sw.status >= 500 {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http.request", attrs...)
		})
	}
}

// routePattern returns the matched chi pattern, or "unmatched" for 404s so
// metrics labels stay bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
