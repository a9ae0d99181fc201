package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTier(t *testing.T) (*Tier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	tier, err := NewTier(Config{URL: "redis://" + mr.Addr(), KeyPrefix: "test"})
	if err != nil {
		t.Fatalf("NewTier: %v", err)
	}
	t.Cleanup(func() { _ = tier.Close() })
	return tier, mr
}

func TestTier_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tier, mr := newTestTier(t)

	if err := tier.Set(ctx, "organizationName", "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("test:organizationName"); got != "abc" {
		t.Errorf("expected prefixed key to hold abc, got %q", got)
	}

	v, ok, err := tier.Get(ctx, "organizationName")
	if err != nil || !ok || v != "abc" {
		t.Fatalf("get = (%q, %v, %v)", v, ok, err)
	}

	if err := tier.Delete(ctx, "organizationName"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := tier.Get(ctx, "organizationName"); ok {
		t.Error("expected key to be gone after delete")
	}
}

func TestTier_ClearOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	tier, mr := newTestTier(t)

	_ = tier.Set(ctx, "a", "1")
	_ = tier.Set(ctx, "b", "2")
	if err := mr.Set("other:key", "keep"); err != nil {
		t.Fatalf("seed foreign key: %v", err)
	}

	if err := tier.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if mr.Exists("test:a") || mr.Exists("test:b") {
		t.Error("expected prefixed keys to be removed")
	}
	if !mr.Exists("other:key") {
		t.Error("expected foreign key to survive Clear")
	}
}

func TestNewTierWithClient_DefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tier := NewTierWithClient(rdb, "")
	defer tier.Close()

	if err := tier.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("intake:k") {
		t.Error("expected default intake prefix")
	}
}
