// Package cache keeps the latest computed read model per order.
//
// An entry holds either a value or an explicit failure marker (with the last
// good value, if any, kept alongside). Writes are ordered by trigger time,
// not arrival time: a slow computation started before a newer refresh
// cannot overwrite the newer result. A failure marker suppresses automatic
// refreshes until something triggers one explicitly.
package cache

import (
	"sort"
	"sync"
	"time"
)

// Entry is one cached result.
type Entry[V any] struct {
	Value    V
	HasValue bool

	// Err is set when the most recent computation failed. Value then
	// still holds the last good result, if HasValue.
	Err error

	// TriggeredAt is when the computation that wrote this entry started.
	TriggeredAt time.Time
	// StoredAt is when the entry was written.
	StoredAt time.Time
}

// Failed reports whether the entry is a failure marker.
func (e Entry[V]) Failed() bool {
	return e.Err != nil
}

// Cache is a concurrency-safe per-key result cache with a staleness TTL.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the time source used for StoredAt and staleness.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache whose successful entries go stale after ttl.
// A ttl <= 0 means entries never go stale.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries: make(map[string]Entry[V]),
		ttl:     ttl,
		now:     o.now,
	}
}

// Put stores a computed value. It returns false, and stores nothing, when
// an entry from a later trigger is already present.
func (c *Cache[V]) Put(key string, triggeredAt time.Time, v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.entries[key]; ok && triggeredAt.Before(cur.TriggeredAt) {
		return false
	}
	c.entries[key] = Entry[V]{
		Value:       v,
		HasValue:    true,
		TriggeredAt: triggeredAt,
		StoredAt:    c.now(),
	}
	return true
}

// Fail marks the key as failed. The previous value, if any, is kept
// untouched next to the marker. Returns false when superseded.
func (c *Cache[V]) Fail(key string, triggeredAt time.Time, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[key]
	if ok && triggeredAt.Before(cur.TriggeredAt) {
		return false
	}
	cur.Err = err
	cur.TriggeredAt = triggeredAt
	cur.StoredAt = c.now()
	c.entries[key] = cur
	return true
}

// Restore installs an entry as-is, for example one read back from a mirror.
// The trigger-time ordering still applies.
func (c *Cache[V]) Restore(key string, e Entry[V]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.entries[key]; ok && e.TriggeredAt.Before(cur.TriggeredAt) {
		return false
	}
	c.entries[key] = e
	return true
}

// Get returns the entry for key.
func (c *Cache[V]) Get(key string) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// ShouldAutoRefresh reports whether periodic polling should recompute key:
// true when nothing is cached or the value is stale, false for a failure
// marker (only an explicit trigger retries those) or a fresh value.
func (c *Cache[V]) ShouldAutoRefresh(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	switch {
	case !ok:
		return true
	case e.Failed():
		return false
	case c.ttl <= 0:
		return false
	default:
		return c.now().Sub(e.StoredAt) >= c.ttl
	}
}

// Invalidate drops the entry for key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Keys returns the cached keys in sorted order.
func (c *Cache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
