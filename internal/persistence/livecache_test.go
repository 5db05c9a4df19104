package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*LiveCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewLiveCache(rdb, ttl), mr
}

func TestLiveCacheRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	const fen = "rnbqkbnr/pppppppp/8/4P3/8/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	if err := cache.CacheLiveState(ctx, "m1", fen); err != nil {
		t.Fatalf("CacheLiveState: %v", err)
	}

	got, err := cache.LiveState(ctx, "m1")
	if err != nil {
		t.Fatalf("LiveState: %v", err)
	}
	if got != fen {
		t.Fatalf("LiveState = %q, want %q", got, fen)
	}

	if ttl := mr.TTL("match:live:m1"); ttl != time.Hour {
		t.Fatalf("expected 1h TTL, got %v", ttl)
	}
}

func TestLiveCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)

	if _, err := cache.LiveState(context.Background(), "unknown"); err == nil {
		t.Fatal("expected an error for a missing entry")
	}
}

func TestLiveCacheDrop(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := cache.CacheLiveState(ctx, "m1", "fen"); err != nil {
		t.Fatalf("CacheLiveState: %v", err)
	}
	if err := cache.DropLiveState(ctx, "m1"); err != nil {
		t.Fatalf("DropLiveState: %v", err)
	}
	if _, err := cache.LiveState(ctx, "m1"); err == nil {
		t.Fatal("entry survived DropLiveState")
	}

	// Dropping a missing entry is not an error.
	if err := cache.DropLiveState(ctx, "m1"); err != nil {
		t.Fatalf("second DropLiveState: %v", err)
	}
}

func TestLiveCacheOverwrite(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := cache.CacheLiveState(ctx, "m1", "first"); err != nil {
		t.Fatalf("CacheLiveState: %v", err)
	}
	if err := cache.CacheLiveState(ctx, "m1", "second"); err != nil {
		t.Fatalf("CacheLiveState: %v", err)
	}
	got, err := cache.LiveState(ctx, "m1")
	if err != nil || got != "second" {
		t.Fatalf("LiveState = %q, %v", got, err)
	}
}
