package redisx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryKVExpiry(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	kv.SetClock(func() time.Time { return now })
	ctx := context.Background()

	if err := kv.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if got, err := kv.Get(ctx, "k"); err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	now = now.Add(time.Minute)
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestMemoryKVIncr(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		got, err := kv.Incr(ctx, "gen")
		if err != nil || got != want {
			t.Fatalf("Incr = %d, %v want %d", got, err, want)
		}
	}
	if err := kv.Del(ctx, "gen"); err != nil {
		t.Fatal(err)
	}
	if _, err := kv.Get(ctx, "gen"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadyCheckNilClient(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
