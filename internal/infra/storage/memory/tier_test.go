package memory

import (
	"context"
	"testing"
)

func TestTier_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	tier := NewTier()

	if _, ok, _ := tier.Get(ctx, "missing"); ok {
		t.Fatal("expected missing key to be absent")
	}

	if err := tier.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := tier.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("get = (%q, %v, %v), want (v, true, nil)", v, ok, err)
	}

	if err := tier.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := tier.Delete(ctx, "k"); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
	if tier.Len() != 0 {
		t.Errorf("expected empty tier, got %d keys", tier.Len())
	}
}

func TestTier_Clear(t *testing.T) {
	ctx := context.Background()
	tier := NewTier()
	_ = tier.Set(ctx, "a", "1")
	_ = tier.Set(ctx, "b", "2")

	if err := tier.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if tier.Len() != 0 {
		t.Errorf("expected 0 keys after clear, got %d", tier.Len())
	}
}
