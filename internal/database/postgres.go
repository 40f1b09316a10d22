package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// PostgresOptions carries the pool settings for ConnectPostgres.
type PostgresOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConnectPostgres opens a pooled connection, pings it and creates the entries schema.
func ConnectPostgres(ctx context.Context, postgresURI string, opts PostgresOptions, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	logger.Info("connected to postgresql")

	if err := InitPostgresTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitPostgresTables creates the entries table and its owner index if they don't exist.
func InitPostgresTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id UUID PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			date VARCHAR(10) NOT NULL,
			time VARCHAR(8) NOT NULL,
			mood VARCHAR(32) NOT NULL,
			description TEXT[] NOT NULL DEFAULT '{}',
			activities TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_entries_user_date ON entries(user_id, date DESC, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("postgres init tables: %w", err)
		}
	}

	return nil
}
