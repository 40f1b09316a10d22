package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrKeyNotFound is returned when no signing key in the provider set matches a kid.
	ErrKeyNotFound = errors.New("signing key not found")
	// ErrKeySetUnavailable is returned when the key set could not be loaded.
	ErrKeySetUnavailable = errors.New("signing key set unavailable")
)

const (
	maxKeySetBytes = 1 << 20
	keySetCacheKey = "jwks:"
)

// documentCache is a shared string cache (Redis) consulted before the provider.
type documentCache interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetStringWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

type keySetObserver interface {
	KeySetFetched(source string, err error)
}

// KeySetOptions configures a KeySet. URL is required.
type KeySetOptions struct {
	URL             string
	TTL             time.Duration
	RefreshInterval time.Duration // minimum gap between refetches triggered by an unknown kid
	FetchTimeout    time.Duration
	HTTPClient      *http.Client
	Cache           documentCache
	Observer        keySetObserver
	Logger          *slog.Logger
}

// KeySet resolves RSA signing keys by kid from a provider JWKS document.
// Keys are cached in-process for TTL. A kid missing from a fresh set triggers at most
// one refetch per RefreshInterval. Concurrent loads share a single request.
type KeySet struct {
	url          string
	ttl          time.Duration
	fetchTimeout time.Duration
	client       *http.Client
	cache        documentCache
	observer     keySetObserver
	log          *slog.Logger
	refresh      *rate.Limiter
	group        singleflight.Group
	now          func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeySet creates a KeySet. Zero durations fall back to 1h TTL, 30s refresh
// interval and 5s fetch timeout.
func NewKeySet(opts KeySetOptions) *KeySet {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = 30 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.FetchTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limit := rate.Inf
	if opts.RefreshInterval > 0 {
		limit = rate.Every(opts.RefreshInterval)
	}

	return &KeySet{
		url:          opts.URL,
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		client:       opts.HTTPClient,
		cache:        opts.Cache,
		observer:     opts.Observer,
		log:          opts.Logger.With("component", "jwks"),
		refresh:      rate.NewLimiter(limit, 1),
		now:          time.Now,
	}
}

// Key returns the public key for kid.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, fresh := k.snapshot()
	if fresh {
		if key, ok := keys[kid]; ok {
			return key, nil
		}
		// Unknown kid on a fresh set: the provider may have rotated keys.
		if !k.refresh.Allow() {
			return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
		}
		k.log.InfoContext(ctx, "unknown kid, refetching key set", slog.String("kid", kid))
		var err error
		if keys, err = k.load(ctx, true); err != nil {
			return nil, err
		}
	} else {
		var err error
		if keys, err = k.load(ctx, false); err != nil {
			return nil, err
		}
	}

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return key, nil
}

// Refresh forces a reload from the provider, bypassing every cache.
func (k *KeySet) Refresh(ctx context.Context) error {
	_, err := k.load(ctx, true)
	return err
}

func (k *KeySet) snapshot() (map[string]*rsa.PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.keys == nil {
		return nil, false
	}
	return k.keys, k.now().Sub(k.fetchedAt) < k.ttl
}

func (k *KeySet) store(keys map[string]*rsa.PublicKey) {
	k.mu.Lock()
	k.keys = keys
	k.fetchedAt = k.now()
	k.mu.Unlock()
}

// load coalesces concurrent loads. The shared load runs detached from the caller's
// cancellation (bounded by the fetch timeout); each caller still stops waiting when
// its own context ends.
func (k *KeySet) load(ctx context.Context, bypassCache bool) (map[string]*rsa.PublicKey, error) {
	flight := "shared"
	if bypassCache {
		flight = "provider"
	}

	ch := k.group.DoChan(flight, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.fetchTimeout)
		defer cancel()
		return k.loadOnce(loadCtx, bypassCache)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrKeySetUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]*rsa.PublicKey), nil
	}
}

func (k *KeySet) loadOnce(ctx context.Context, bypassCache bool) (map[string]*rsa.PublicKey, error) {
	if !bypassCache && k.cache != nil {
		if keys, ok := k.loadFromCache(ctx); ok {
			k.store(keys)
			return keys, nil
		}
	}

	body, err := k.fetch(ctx)
	if err == nil {
		var keys map[string]*rsa.PublicKey
		if keys, err = parseKeySet(body); err == nil {
			k.observe("http", nil)
			k.store(keys)
			k.log.DebugContext(ctx, "key set fetched", slog.Int("keys", len(keys)))
			if k.cache != nil {
				if cerr := k.cache.SetStringWithTTL(ctx, keySetCacheKey+k.url, string(body), k.ttl); cerr != nil {
					k.log.WarnContext(ctx, "key set cache write failed", slog.String("error", cerr.Error()))
				}
			}
			return keys, nil
		}
	}

	k.observe("http", err)
	k.log.ErrorContext(ctx, "key set fetch failed",
		slog.String("url", k.url),
		slog.String("error", err.Error()),
	)
	return nil, fmt.Errorf("%w: %w", ErrKeySetUnavailable, err)
}

func (k *KeySet) loadFromCache(ctx context.Context) (map[string]*rsa.PublicKey, bool) {
	doc, ok, err := k.cache.GetString(ctx, keySetCacheKey+k.url)
	if err != nil {
		k.observe("cache", err)
		k.log.WarnContext(ctx, "key set cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	keys, err := parseKeySet([]byte(doc))
	k.observe("cache", err)
	if err != nil {
		k.log.WarnContext(ctx, "cached key set is invalid", slog.String("error", err.Error()))
		return nil, false
	}
	return keys, true
}

func (k *KeySet) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (k *KeySet) observe(source string, err error) {
	if k.observer != nil {
		k.observer.KeySetFetched(source, err)
	}
}

// parseKeySet decodes a JWKS document, keeping RSA signature keys that carry a kid.
func parseKeySet(body []byte) (map[string]*rsa.PublicKey, error) {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.KeyID == "" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		if pub, ok := jwk.Key.(*rsa.PublicKey); ok {
			keys[jwk.KeyID] = pub
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("key set has no usable RSA signing keys")
	}
	return keys, nil
}
