package cache

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*NotesCache, *miniredis.Miniredis) {
	t.Helper()

	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Fatalf("close redis: %v", err)
		}
	})

	return NewNotesCache(rdb, time.Minute), s
}

func TestNotesCache_MissThenHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, hit, err := c.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatalf("expected miss before set")
	}

	payload := []byte(`[{"id":1,"title":"T","note_text":"C"}]`)
	if err := c.Set(ctx, 7, payload); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, hit, err := c.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !hit {
		t.Fatalf("expected hit after set")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %s", got)
	}
}

func TestNotesCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, 7, []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Invalidate(ctx, 7); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, hit, err := c.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestNotesCache_EntriesExpire(t *testing.T) {
	c, s := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, 7, []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.FastForward(2 * time.Minute)

	_, hit, err := c.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatalf("expected entry to expire")
	}
}

func TestNotesCache_KeysAreScopedPerUser(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, 1, []byte(`["alice"]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, hit, err := c.Get(ctx, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatalf("user 2 must not see user 1's cache entry")
	}
}

func TestNotesCache_NilReceiverIsNoop(t *testing.T) {
	var c *NotesCache
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, 1); err != nil || hit {
		t.Fatalf("nil cache get should be a miss without error")
	}
	if err := c.Set(ctx, 1, []byte(`[]`)); err != nil {
		t.Fatalf("nil cache set: %v", err)
	}
	if err := c.Invalidate(ctx, 1); err != nil {
		t.Fatalf("nil cache invalidate: %v", err)
	}
}
