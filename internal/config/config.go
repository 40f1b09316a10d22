package config

import (
	"strings"
	"time"
)

type Config struct {
	Environment string `yaml:"environment" env:"ENV" env-default:"development"`
	Host        string `yaml:"host"        env:"HOST" env-default:"http://localhost:8080"` // Raw HOST env (e.g. https://api.moodlog.app)

	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	CORS     CORSConfig     `yaml:"cors"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// StoreConfig selects the entry store backend.
type StoreConfig struct {
	Driver           string        `yaml:"driver"            env:"STORE_DRIVER"            env-default:"mongo"`
	OperationTimeout time.Duration `yaml:"operation_timeout" env:"STORE_OPERATION_TIMEOUT" env-default:"5s"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"      env:"MONGODB_URI,ATLAS_URI,MONGO_URI" env-default:"mongodb://localhost:27017/moodlog"`
	Database string `yaml:"database" env:"MONGODB_DATABASE"`
}

type PostgresConfig struct {
	URI             string        `yaml:"uri"               env:"POSTGRES_URI"               env-default:"postgres://localhost:5432/moodlog?sslmode=disable"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"POSTGRES_MAX_OPEN_CONNS"    env-default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"POSTGRES_MAX_IDLE_CONNS"    env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"POSTGRES_CONN_MAX_LIFETIME" env-default:"5m"`
}

// RedisConfig is optional; an empty URI disables the shared key cache and the event broker.
type RedisConfig struct {
	URI string `yaml:"uri" env:"REDIS_URI"`
}

// AuthConfig describes the identity provider whose tokens are accepted.
type AuthConfig struct {
	JWKSURL  string `yaml:"jwks_url"  env:"AUTH_JWKS_URL,COGNITO_TOKEN"`
	Issuer   string `yaml:"issuer"    env:"AUTH_ISSUER"`
	ClientID string `yaml:"client_id" env:"AUTH_CLIENT_ID"`
	TokenUse string `yaml:"token_use" env:"AUTH_TOKEN_USE"` // "id", "access" or empty for either

	KeyCacheTTL        time.Duration `yaml:"key_cache_ttl"        env:"AUTH_KEY_CACHE_TTL"        env-default:"1h"`
	KeyRefreshInterval time.Duration `yaml:"key_refresh_interval" env:"AUTH_KEY_REFRESH_INTERVAL" env-default:"30s"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout"        env:"AUTH_FETCH_TIMEOUT"        env-default:"5s"`
	Leeway             time.Duration `yaml:"leeway"               env:"AUTH_LEEWAY"               env-default:"30s"`
}

// KeySetURL returns the JWKS location, falling back to the issuer's well-known path.
func (c AuthConfig) KeySetURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	if c.Issuer != "" {
		return strings.TrimRight(c.Issuer, "/") + "/.well-known/jwks.json"
	}
	return ""
}

type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	FrontendURL    string `yaml:"frontend_url"    env:"FRONTEND_URL"   env-default:"http://localhost:3000"`
	FrontendURL2   string `yaml:"frontend_url_2"  env:"FRONTEND_URL_2"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Origins returns the CORS allow-list: ALLOWED_ORIGINS if set, else the frontend URLs.
func (c CORSConfig) Origins() []string {
	origins := parseOrigins(c.AllowedOrigins)
	if len(origins) == 0 {
		for _, u := range []string{c.FrontendURL, c.FrontendURL2} {
			u = strings.TrimRight(strings.TrimSpace(u), "/")
			if u != "" && !containsOrigin(origins, u) {
				origins = append(origins, u)
			}
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}

// AllowedHost is the bare hostname of HOST, used for the strict host check.
// Only set in production; the host check is skipped elsewhere.
func (c *Config) AllowedHost() string {
	if !c.IsProduction() {
		return ""
	}
	h := strings.TrimSpace(c.Host)
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return strings.TrimSpace(h)
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}
