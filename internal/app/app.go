// Package app wires configuration, stores, token verification and the HTTP
// server into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/moodlog-backend/internal/auth"
	"github.com/AnshRaj112/moodlog-backend/internal/config"
	"github.com/AnshRaj112/moodlog-backend/internal/database"
	"github.com/AnshRaj112/moodlog-backend/internal/handlers"
	"github.com/AnshRaj112/moodlog-backend/internal/metrics"
	"github.com/AnshRaj112/moodlog-backend/internal/middleware"
	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/AnshRaj112/moodlog-backend/internal/routes"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
	"github.com/AnshRaj112/moodlog-backend/internal/store"
)

// entryStore is what the service layer and readiness probe need from a backend.
type entryStore interface {
	Insert(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	ListByOwner(ctx context.Context, ownerID string, q models.EntryQuery) ([]models.Entry, int64, error)
	UpdateOwned(ctx context.Context, id, ownerID string, patch models.EntryPatch) (*models.Entry, error)
	DeleteOwned(ctx context.Context, id, ownerID string) error
	Ping(ctx context.Context) error
}

type entryPublisher interface {
	Publish(ctx context.Context, ev services.EntryEvent) error
}

// App holds the constructed components. Build it with New and release it with Close.
type App struct {
	cfg      *config.Config
	log      *slog.Logger
	metrics  *metrics.Metrics
	redis    *redis.Client
	broker   *services.RedisBroker
	hub      *services.Hub
	verifier *auth.Verifier
	handler  http.Handler
	closers  []func() error
}

// New connects the configured backends and assembles the router. On error
// everything opened so far is closed again.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, log: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	entries, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.URI != "" {
		a.redis, err = database.ConnectRedis(ctx, cfg.Redis.URI, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, a.redis.Close)
	}

	a.verifier = a.newVerifier()

	a.hub = services.NewHub(logger)
	var publisher entryPublisher = a.hub
	if a.redis != nil {
		a.broker = services.NewRedisBroker(a.redis, a.hub, logger)
		publisher = a.broker
	}

	entryService := services.NewEntryService(logger, entries, publisher)
	origins := cfg.CORS.Origins()

	a.handler = routes.NewRouter(routes.Deps{
		Logger:         logger,
		Metrics:        a.metrics,
		Auth:           middleware.RequireAuth(a.verifier),
		Entries:        handlers.NewEntryHandler(entryService, logger, cfg.Store.OperationTimeout),
		Events:         handlers.NewEventsHandler(a.hub, origins, logger),
		Health:         handlers.NewHealthHandler(entries, Version),
		AllowedOrigins: origins,
		AllowedHost:    cfg.AllowedHost(),
		Production:     cfg.IsProduction(),
		TrustForwarded: cfg.IsProduction(),
	})

	return a, nil
}

// NewVerifierOnly builds just the token verifier, for offline token checks.
func NewVerifierOnly(cfg *config.Config, logger *slog.Logger) *auth.Verifier {
	a := &App{cfg: cfg, log: logger}
	return a.newVerifier()
}

func (a *App) openStore(ctx context.Context) (entryStore, error) {
	switch a.cfg.Store.Driver {
	case config.DriverMemory:
		a.log.Warn("using in-memory entry store; data is lost on restart")
		return store.NewMemoryEntries(), nil

	case config.DriverPostgres:
		db, err := database.ConnectPostgres(ctx, a.cfg.Postgres.URI, database.PostgresOptions{
			MaxOpenConns:    a.cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    a.cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: a.cfg.Postgres.ConnMaxLifetime,
		}, a.log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return store.NewPostgresEntries(db), nil

	default:
		client, db, err := database.ConnectMongo(ctx, a.cfg.Mongo.URI, a.cfg.Mongo.Database, a.log)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, func() error { return database.DisconnectMongo(client) })

		entries := store.NewMongoEntries(db)
		if err := entries.EnsureIndexes(ctx); err != nil {
			// The service still works without the index, only slower.
			a.log.Warn("failed to ensure entry indexes", slog.String("error", err.Error()))
		}
		return entries, nil
	}
}

func (a *App) newVerifier() *auth.Verifier {
	opts := auth.KeySetOptions{
		URL:             a.cfg.Auth.KeySetURL(),
		TTL:             a.cfg.Auth.KeyCacheTTL,
		RefreshInterval: a.cfg.Auth.KeyRefreshInterval,
		FetchTimeout:    a.cfg.Auth.FetchTimeout,
		Logger:          a.log,
	}
	if a.metrics != nil {
		opts.Observer = a.metrics
	}
	if a.redis != nil {
		opts.Cache = services.NewCacheService(a.redis)
	}

	vopts := auth.VerifierOptions{
		Issuer:   a.cfg.Auth.Issuer,
		ClientID: a.cfg.Auth.ClientID,
		TokenUse: a.cfg.Auth.TokenUse,
		Leeway:   a.cfg.Auth.Leeway,
		Logger:   a.log,
	}
	if a.metrics != nil {
		vopts.Observer = a.metrics
	}
	return auth.NewVerifier(auth.NewKeySet(opts), vopts)
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves HTTP until ctx is cancelled, then drains in-flight requests
// within the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	if a.broker != nil {
		go a.broker.Run(ctx)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", a.cfg.Server.Port),
		Handler:           a.handler,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       a.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening",
			slog.String("addr", srv.Addr),
			slog.String("store", a.cfg.Store.Driver),
			slog.String("version", BuildVersion()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
