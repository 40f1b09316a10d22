package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultCacheTTL applies when callers don't pick one
	DefaultCacheTTL = time.Hour
	// MinCacheTTL is one minute
	MinCacheTTL = time.Minute
	// MaxCacheTTL is one day
	MaxCacheTTL = 24 * time.Hour
)

// CacheService is a JSON/string cache on Redis shared by every instance.
// It backs the signing key set so a fleet fetches the provider document once per TTL.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

// Get retrieves a JSON value. A miss returns false with no error.
func (c *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, ok, err := c.GetString(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores a JSON value with the default TTL.
func (c *CacheService) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.SetStringWithTTL(ctx, key, string(data), DefaultCacheTTL)
}

// GetString retrieves a raw string value.
func (c *CacheService) GetString(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, CacheKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

// SetStringWithTTL stores a string value; ttl is clamped to [MinCacheTTL, MaxCacheTTL].
func (c *CacheService) SetStringWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, CacheKeyPrefix+key, value, clampTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value from cache
func (c *CacheService) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, CacheKeyPrefix+key).Err()
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < MinCacheTTL {
		return MinCacheTTL
	}
	if ttl > MaxCacheTTL {
		return MaxCacheTTL
	}
	return ttl
}
