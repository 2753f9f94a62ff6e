package oidc

import (
    "context"
    "testing"
    "time"
)

func TestMemoryCacheHonorsTTL(t *testing.T) {
    now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
    c := NewMemoryCache()
    c.now = func() time.Time { return now }

    ctx := context.Background()
    c.Set(ctx, "oidc:metadata:test", []byte(`{"issuer":"x"}`), cacheTTL)

    if _, ok := c.Get(ctx, "oidc:metadata:test"); !ok {
        t.Fatal("fresh entry should be served")
    }

    now = now.Add(23 * time.Hour)
    if _, ok := c.Get(ctx, "oidc:metadata:test"); !ok {
        t.Error("entry expired before its 24h TTL")
    }

    now = now.Add(2 * time.Hour)
    if _, ok := c.Get(ctx, "oidc:metadata:test"); ok {
        t.Error("entry served after its TTL elapsed")
    }
}

func TestMemoryCacheDelete(t *testing.T) {
    c := NewMemoryCache()
    ctx := context.Background()
    c.Set(ctx, "k", []byte("v"), time.Minute)
    c.Delete(ctx, "k")
    if _, ok := c.Get(ctx, "k"); ok {
        t.Error("deleted entry still present")
    }
}

func TestMemoryCacheMissOnUnknownKey(t *testing.T) {
    c := NewMemoryCache()
    if v, ok := c.Get(context.Background(), "absent"); ok || v != nil {
        t.Errorf("Get(absent) = (%v, %v), want miss", v, ok)
    }
}
