package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*CalendarCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewCalendarCacheFromClient(client, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCalendarCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, false); err != nil || ok {
		t.Fatalf("expected miss on empty cache, ok=%v err=%v", ok, err)
	}

	dates := []time.Time{
		time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 11, 30, 0, 0, time.UTC),
	}
	if err := c.Set(ctx, false, dates); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(ctx, false)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || !got[0].Equal(dates[0]) || !got[1].Equal(dates[1]) {
		t.Fatalf("unexpected dates: %v", got)
	}
}

func TestCalendarCacheSeparatesAccessLevels(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	public := []time.Time{time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	all := append(public, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	if err := c.Set(ctx, false, public); err != nil {
		t.Fatalf("set public: %v", err)
	}
	if err := c.Set(ctx, true, all); err != nil {
		t.Fatalf("set elevated: %v", err)
	}

	got, ok, err := c.Get(ctx, false)
	if err != nil || !ok || len(got) != 1 {
		t.Fatalf("public entry wrong: ok=%v err=%v got=%v", ok, err, got)
	}
	got, ok, err = c.Get(ctx, true)
	if err != nil || !ok || len(got) != 2 {
		t.Fatalf("elevated entry wrong: ok=%v err=%v got=%v", ok, err, got)
	}
}

func TestCalendarCacheInvalidateDropsBoth(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	dates := []time.Time{time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	if err := c.Set(ctx, false, dates); err != nil {
		t.Fatalf("set public: %v", err)
	}
	if err := c.Set(ctx, true, dates); err != nil {
		t.Fatalf("set elevated: %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, false); ok {
		t.Fatalf("public entry survived invalidate")
	}
	if _, ok, _ := c.Get(ctx, true); ok {
		t.Fatalf("elevated entry survived invalidate")
	}
}

func TestCalendarCacheEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, false, []time.Time{time.Now().UTC()}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, false); ok {
		t.Fatalf("entry survived past TTL")
	}
}
