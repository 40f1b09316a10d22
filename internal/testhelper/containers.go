// Package testhelper starts throwaway backing services for integration tests.
package testhelper

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RequireIntegration skips t unless MOODLOG_INTEGRATION=1 and -short is off.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	if os.Getenv("MOODLOG_INTEGRATION") != "1" {
		t.Skip("set MOODLOG_INTEGRATION=1 to run integration tests")
	}
}

type sharedContainer struct {
	once sync.Once
	uri  string
	err  error
}

var (
	mongoContainer    sharedContainer
	postgresContainer sharedContainer
	redisContainer    sharedContainer
)

// MongoURI starts a shared MongoDB container (once per test binary) and returns
// its connection string. The container lives until the process exits.
func MongoURI(t *testing.T) string {
	t.Helper()
	return mongoContainer.get(t, func(ctx context.Context) (string, error) {
		endpoint, err := start(ctx, testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("mongodb://%s/moodlog_test", endpoint), nil
	})
}

// PostgresURI starts a shared PostgreSQL container and returns its DSN.
func PostgresURI(t *testing.T) string {
	t.Helper()
	return postgresContainer.get(t, func(ctx context.Context) (string, error) {
		endpoint, err := start(ctx, testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "testuser",
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("postgres://testuser:testpass@%s/testdb?sslmode=disable", endpoint), nil
	})
}

// RedisURI starts a shared Redis container and returns its redis:// URL.
func RedisURI(t *testing.T) string {
	t.Helper()
	return redisContainer.get(t, func(ctx context.Context) (string, error) {
		endpoint, err := start(ctx, testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("redis://%s/0", endpoint), nil
	})
}

func (s *sharedContainer) get(t *testing.T, startFn func(ctx context.Context) (string, error)) string {
	t.Helper()
	RequireIntegration(t)

	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()
		s.uri, s.err = startFn(ctx)
	})
	if s.err != nil {
		t.Fatalf("testhelper: start container: %v", s.err)
	}
	return s.uri
}

// start runs req and returns the host:port of its single exposed port.
func start(ctx context.Context, req testcontainers.ContainerRequest) (string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start %s: %w", req.Image, err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		return "", fmt.Errorf("get endpoint: %w", err)
	}
	return endpoint, nil
}
