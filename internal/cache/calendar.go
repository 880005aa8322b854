// Package cache keeps derived read models in Redis. Entries are best
// effort: a cache failure degrades to a store read, never to a request
// failure.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	calendarKeyPublic = "calendar:public"
	calendarKeyAll    = "calendar:all"
)

// CalendarCache stores the post calendar per access level. Public and
// elevated callers see different date sets, so they get separate keys.
type CalendarCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCalendarCache builds a Redis-backed calendar cache.
func NewCalendarCache(addr, password string, ttl time.Duration) *CalendarCache {
	return NewCalendarCacheFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	}), ttl)
}

// NewCalendarCacheFromClient wraps an existing client.
func NewCalendarCacheFromClient(client *redis.Client, ttl time.Duration) *CalendarCache {
	return &CalendarCache{client: client, ttl: ttl}
}

func calendarKey(elevated bool) string {
	if elevated {
		return calendarKeyAll
	}
	return calendarKeyPublic
}

// Get returns the cached dates for the access level, or ok=false on miss.
func (c *CalendarCache) Get(ctx context.Context, elevated bool) ([]time.Time, bool, error) {
	raw, err := c.client.Get(ctx, calendarKey(elevated)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var dates []time.Time
	if err := json.Unmarshal(raw, &dates); err != nil {
		// Unreadable entry, treat as miss and let the next Set replace it.
		return nil, false, nil
	}
	return dates, true, nil
}

// Set stores the dates for the access level with the cache TTL.
func (c *CalendarCache) Set(ctx context.Context, elevated bool, dates []time.Time) error {
	raw, err := json.Marshal(dates)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, calendarKey(elevated), raw, c.ttl).Err()
}

// Invalidate drops both access levels. Called after any post mutation.
func (c *CalendarCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, calendarKeyPublic, calendarKeyAll).Err()
}

// Close releases the underlying client.
func (c *CalendarCache) Close() error {
	return c.client.Close()
}
