package cache

import (
	"context"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

const (
	localShards          = 64
	localEvictPercentage = 10
)

type localEntry struct {
	data      []byte
	expiresAt time.Time
}

// LocalBackend keeps entries in process memory. sturdyc applies one TTL to
// the whole client, so each entry also carries its own expiry.
type LocalBackend struct {
	client *sturdyc.Client[localEntry]
	now    func() time.Time
}

func NewLocalBackend(capacity int, maxTTL time.Duration) *LocalBackend {
	return &LocalBackend{
		client: sturdyc.New[localEntry](capacity, localShards, maxTTL, localEvictPercentage),
		now:    time.Now,
	}
}

func (l *LocalBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := l.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !l.now().Before(entry.expiresAt) {
		l.client.Delete(key)
		return nil, false, nil
	}
	return entry.data, true, nil
}

func (l *LocalBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l.client.Set(key, localEntry{data: value, expiresAt: l.now().Add(ttl)})
	return nil
}

func (l *LocalBackend) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		l.client.Delete(key)
	}
	return nil
}

func (l *LocalBackend) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	removed := 0
	for _, key := range l.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			l.client.Delete(key)
			removed++
		}
	}
	return removed, nil
}

func (l *LocalBackend) Ping(ctx context.Context) error {
	return nil
}

func (l *LocalBackend) Close() error {
	return nil
}
