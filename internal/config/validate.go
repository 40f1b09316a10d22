package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Validate checks cross-field rules that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required for the mongo store"))
		}
	case DriverPostgres:
		if c.Postgres.URI == "" {
			errs = append(errs, errors.New("postgres.uri is required for the postgres store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if c.Store.OperationTimeout <= 0 {
		errs = append(errs, errors.New("store.operation_timeout must be positive"))
	}

	if c.Auth.KeySetURL() == "" {
		errs = append(errs, errors.New("auth: one of jwks_url or issuer is required"))
	}
	switch c.Auth.TokenUse {
	case "", "id", "access":
	default:
		errs = append(errs, fmt.Errorf("auth.token_use: must be id, access or empty, got %q", c.Auth.TokenUse))
	}
	if c.Auth.KeyCacheTTL <= 0 {
		errs = append(errs, errors.New("auth.key_cache_ttl must be positive"))
	}
	if c.Auth.FetchTimeout <= 0 {
		errs = append(errs, errors.New("auth.fetch_timeout must be positive"))
	}
	if c.Auth.KeyRefreshInterval < 0 {
		errs = append(errs, errors.New("auth.key_refresh_interval must not be negative"))
	}

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}

	return errors.Join(errs...)
}
