package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/AnshRaj112/moodlog-backend/internal/metrics"
)

func TestMetrics_CountsByRoutePattern(t *testing.T) {
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/entry", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/entry", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/no/such/thing", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `moodlog_http_requests_total{method="GET",route="/api/entry",status="201"} 3`)
	assert.Contains(t, body, `moodlog_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `moodlog_http_request_duration_seconds_count{method="GET",route="/api/entry"} 3`)
}
