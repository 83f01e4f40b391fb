// Package cache provides a Redis read-through cache for availability
// responses.  Availability reads are lock-free and tolerate slightly
// stale data because the hold manager always re-validates against a
// fresh day document, so a short TTL is the only consistency mechanism
// needed.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kartmania/track-reservation/internal/availability"
)

const defaultTTL = 15 * time.Second

// AvailabilityCache stores computed availability trees keyed by date
// range and candidate attributes.  A nil client disables caching
// entirely; every method becomes a no-op miss.
type AvailabilityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAvailabilityCache returns a cache over the given Redis client.
// client may be nil.
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{rdb: client, ttl: defaultTTL}
}

func key(from, to string, cand availability.Candidate, admin bool) string {
	if admin {
		return fmt.Sprintf("avail:admin:%s:%s", from, to)
	}
	return fmt.Sprintf("avail:%s:%s:%s:%d", from, to, cand.Type, cand.PartySize)
}

// Get returns the cached availability for the range and candidate, or
// (nil, false) on a miss.  Errors are treated as misses; the cache
// never fails a read path.
func (c *AvailabilityCache) Get(ctx context.Context, from, to string, cand availability.Candidate, admin bool) ([]availability.DayAvailability, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key(from, to, cand, admin)).Bytes()
	if err != nil {
		return nil, false
	}
	var out []availability.DayAvailability
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Set stores the availability tree for the range and candidate.
func (c *AvailabilityCache) Set(ctx context.Context, from, to string, cand availability.Candidate, admin bool, days []availability.DayAvailability) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(days)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key(from, to, cand, admin), raw, c.ttl).Err()
}
