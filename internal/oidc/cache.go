package oidc

// Provider metadata and signing keys change rarely, so they are cached for
// 24 hours.  The cache is an injected collaborator rather than a package
// singleton so the verifier can be tested with a fake clock and so multiple
// processes can share one redis instance.  A stale read after provider key
// rotation is acceptable: the verifier forces a synchronous re-fetch when it
// meets an unknown key id.

import (
    "context"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"
)

// Cache stores raw payload bytes under a key with a time-to-live.
type Cache interface {
    Get(ctx context.Context, key string) ([]byte, bool)
    Set(ctx context.Context, key string, value []byte, ttl time.Duration)
    Delete(ctx context.Context, key string)
}

// MemoryCache is a mutex-guarded in-process cache.  It is the fallback when
// redis is unavailable and the workhorse of the verifier tests.
type MemoryCache struct {
    mu      sync.Mutex
    entries map[string]memoryEntry
    now     func() time.Time
}

type memoryEntry struct {
    value     []byte
    expiresAt time.Time
}

// NewMemoryCache returns an empty MemoryCache using the wall clock.
func NewMemoryCache() *MemoryCache {
    return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns the cached value when present and not expired.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
    m.mu.Lock()
    defer m.mu.Unlock()
    e, ok := m.entries[key]
    if !ok || m.now().After(e.expiresAt) {
        delete(m.entries, key)
        return nil, false
    }
    return e.value, true
}

// Set stores value under key for ttl.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
}

// Delete removes key if present.
func (m *MemoryCache) Delete(_ context.Context, key string) {
    m.mu.Lock()
    defer m.mu.Unlock()
    delete(m.entries, key)
}

// RedisCache stores entries in redis so all server processes share one view
// of the provider metadata and key set.
type RedisCache struct {
    rdb *redis.Client
}

// NewRedisCache wraps an established redis client.
func NewRedisCache(rdb *redis.Client) *RedisCache { return &RedisCache{rdb: rdb} }

// Get fetches key from redis; any error is treated as a miss so a redis
// outage degrades to re-fetching from the provider.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
    bs, err := r.rdb.Get(ctx, key).Bytes()
    if err != nil {
        return nil, false
    }
    return bs, true
}

// Set writes key with ttl; failures are ignored for the same reason.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
    _ = r.rdb.Set(ctx, key, value, ttl).Err()
}

// Delete removes key; failures are ignored.
func (r *RedisCache) Delete(ctx context.Context, key string) {
    _ = r.rdb.Del(ctx, key).Err()
}
