// Package memory provides in-memory adapters.
package memory

import (
	"sync"
	"time"

	"github.com/artpar/tierguard/ports"
)

// bucketFormat is hour granularity: keys rotate at hour boundaries, so the
// first hour of a new month always produces a fresh key regardless of TTL.
const bucketFormat = "20060102_15"

// BucketKey builds a cache key from a logical purpose tag and the current
// UTC hour bucket.
func BucketKey(purpose string, now time.Time) string {
	return purpose + "_" + now.UTC().Format(bucketFormat)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// TTLCache memoizes computed values under string keys with a per-call TTL.
// Check-then-set is atomic: concurrent callers for the same key observe
// exactly one compute per TTL window.
type TTLCache struct {
	mu      sync.Mutex
	clock   ports.Clock
	entries map[string]entry
}

// NewTTLCache creates an empty cache using the given clock for expiry.
func NewTTLCache(clock ports.Clock) *TTLCache {
	return &TTLCache{
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// GetOrCompute returns the cached value for key if present and unexpired;
// otherwise it invokes compute, stores the result for ttl, and returns it.
// A compute error is returned to the caller and nothing is stored.
func (c *TTLCache) GetOrCompute(key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if e, ok := c.entries[key]; ok && now.Before(e.expiresAt) {
		return e.value, nil
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}

	c.entries[key] = entry{value: v, expiresAt: now.Add(ttl)}
	c.evictExpired(now)
	return v, nil
}

// Invalidate drops a single key.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of live entries.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictExpired removes dead entries. Called with the lock held; the key
// space here is a handful of rotating hour buckets, so a linear sweep on
// write is plenty.
func (c *TTLCache) evictExpired(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
