package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	ModeLocal = "local"
	ModeNone  = "none"
)

// Backend is a byte-oriented key/value cache. Implementations must be safe
// for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// InvalidatePrefix removes every key starting with prefix and reports how
	// many were removed.
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	// URL is a redis:// or rediss:// URL, "local" or "none".
	URL           string
	LocalCapacity int
	LocalTTL      time.Duration
}

// Open picks the backend from opts.URL.
func Open(opts Options) (Backend, error) {
	switch {
	case opts.URL == ModeNone:
		return NewNopBackend(), nil
	case opts.URL == ModeLocal:
		return NewLocalBackend(opts.LocalCapacity, opts.LocalTTL), nil
	case strings.HasPrefix(opts.URL, "redis://"), strings.HasPrefix(opts.URL, "rediss://"):
		return NewRedisBackendFromURL(opts.URL)
	default:
		return nil, fmt.Errorf("unsupported cache url scheme: %q", opts.URL)
	}
}
