package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/moodlog-backend/internal/handlers"
	"github.com/AnshRaj112/moodlog-backend/internal/metrics"
	"github.com/AnshRaj112/moodlog-backend/internal/middleware"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Auth    func(http.Handler) http.Handler

	Entries *handlers.EntryHandler
	Events  *handlers.EventsHandler
	Health  *handlers.HealthHandler

	AllowedOrigins []string
	AllowedHost    string // non-empty only in production
	Production     bool
	TrustForwarded bool
}

// NewRouter builds the HTTP handler tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger, d.TrustForwarded))
	r.Use(middleware.Recovery(d.Logger))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	// Preflight requests are answered here so they never reach auth.
	r.Use(middleware.CORS(d.AllowedOrigins))
	if d.Production {
		r.Use(middleware.ProductionSecurity(d.AllowedHost)...)
	}

	r.Get("/health", d.Health.Live)
	r.Get("/ready", d.Health.Ready)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	SetupRoutes(r, d)
	return r
}

// SetupRoutes mounts the authenticated entry API on r.
func SetupRoutes(r chi.Router, d Deps) {
	r.Route("/api/entry", func(r chi.Router) {
		r.Use(d.Auth)

		r.Get("/", d.Entries.List)
		r.Post("/", d.Entries.Create)
		r.Patch("/", d.Entries.Update)
		r.Delete("/", d.Entries.Delete)

		if d.Events != nil {
			r.Get("/events", d.Events.Stream)
		}
	})
}
