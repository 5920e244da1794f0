package cache

import (
	"context"
	"time"

	"library/pkg/logger"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SideCache makes a Backend advisory: every call is bounded by a short
// timeout and failures are logged and swallowed. Correctness never depends
// on the cache.
type SideCache struct {
	backend Backend
	timeout time.Duration
	log     *logger.Logger
}

func NewSideCache(backend Backend, timeout time.Duration, log *logger.Logger) *SideCache {
	if backend == nil {
		backend = NewNopBackend()
	}
	return &SideCache{
		backend: backend,
		timeout: timeout,
		log:     log,
	}
}

func (c *SideCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	// a cancelled request must not stop invalidation of a committed change
	ctx = context.WithoutCancel(ctx)
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Get reports a miss on any backend or decoding error.
func (c *SideCache) Get(ctx context.Context, key string, dest any) bool {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Warn("cache entry could not be decoded", "key", key, "error", err)
		return false
	}
	return true
}

func (c *SideCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache entry could not be encoded", "key", key, "error", err)
		return
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.backend.Set(ctx, key, data, ttl); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
}

func (c *SideCache) Delete(ctx context.Context, keys ...string) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.backend.Delete(ctx, keys...); err != nil {
		c.log.Warn("cache delete failed", "keys", keys, "error", err)
	}
}

func (c *SideCache) InvalidatePrefix(ctx context.Context, prefixes ...string) {
	for _, prefix := range prefixes {
		ctx, cancel := c.withTimeout(ctx)
		removed, err := c.backend.InvalidatePrefix(ctx, prefix)
		cancel()
		if err != nil {
			c.log.Warn("cache prefix invalidation failed", "prefix", prefix, "error", err)
			continue
		}
		c.log.Debug("cache prefix invalidated", "prefix", prefix, "removed", removed)
	}
}

func (c *SideCache) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.backend.Ping(ctx)
}

// ReadThrough returns the cached value for key, or calls load and caches its
// result for ttl. Errors from load are returned as is and nothing is cached.
// A load that started before a commit may store its value after that
// commit's invalidation ran; the stale entry then lives until ttl.
func ReadThrough[T any](ctx context.Context, c *SideCache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(ctx, key, value, ttl)
	return value, nil
}
