package scamcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/internradar/internradar/internal/model"
)

// Cache stores flag lists per company. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]model.ScamFlag, bool, error)
	Set(ctx context.Context, key string, flags []model.ScamFlag, ttl time.Duration) error
}

// Cached serves repeated checks for the same company from a cache. Only
// successful checks are cached; errors always pass through uncached. Cache
// failures fall back to the wrapped provider.
type Cached struct {
	inner  model.ScamSignalProvider
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(inner model.ScamSignalProvider, cache Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (c *Cached) Check(ctx context.Context, company string) ([]model.ScamFlag, error) {
	key := cacheKey(company)

	flags, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("scam cache read failed", "company", company, "error", err)
	case ok:
		c.logger.Debug("scam cache hit", "company", company, "flags", len(flags))
		return flags, nil
	}

	flags, err = c.inner.Check(ctx, company)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, flags, c.ttl); err != nil {
		c.logger.Warn("scam cache write failed", "company", company, "error", err)
	}
	return flags, nil
}

func cacheKey(company string) string {
	return "scamcheck:" + strings.ToLower(strings.TrimSpace(company))
}

// MemoryCache is an in-process Cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	flags   []model.ScamFlag
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]model.ScamFlag, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.flags, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, flags []model.ScamFlag, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{flags: flags, expires: m.now().Add(ttl)}
	return nil
}

// redisKV is the slice of the go-redis API the cache needs; *redis.Client
// satisfies it.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache shares scam-check results between processes and restarts.
// Values are JSON-encoded flag lists with a Redis expiry.
type RedisCache struct {
	rdb redisKV
}

func NewRedisCache(rdb redisKV) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]model.ScamFlag, bool, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var flags []model.ScamFlag
	if err := json.Unmarshal(raw, &flags); err != nil {
		return nil, false, fmt.Errorf("decode cached flags: %w", err)
	}
	return flags, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, flags []model.ScamFlag, ttl time.Duration) error {
	if flags == nil {
		flags = []model.ScamFlag{}
	}
	raw, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}
	if err := r.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
