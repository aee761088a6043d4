package ec2dns

import (
	"sync"
	"time"
)

// entry is a single (value, deadline) pair. An entry is valid iff
// time.Now() is before expiresAt.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) valid(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// Cache is a concurrent string-keyed map of (value, deadline), the C2 TTL
// cache. It never returns an expired value from TryGet; expired entries are
// only removed by Trim, which keeps the read path allocation-free (the
// teacher's memoryBackend.Lookup applies the same "don't evict on read"
// discipline).
//
// Many concurrent TryGet calls may run at once; Insert, Bulk, and Trim each
// take the cache exclusively. A plain mutex is used rather than a
// reader-writer lock -- per the spec this is an allowed simplification of
// the source's upgradeable-lock trim pattern as long as readers never
// observe a half-trimmed cache, which a single mutex guarantees trivially.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	defaultTTL time.Duration

	hits   Counter
	misses Counter
}

// NewCache returns a new Cache with the given default TTL for Insert calls
// that don't specify an explicit deadline.
func NewCache[V any](defaultTTL time.Duration) *Cache[V] {
	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		defaultTTL: defaultTTL,
	}
}

// TryGet returns the current value for key if present and not expired.
// Counts a hit or a miss (an expired entry counts as a miss) on the cache's
// own hit/miss counters.
func (c *Cache[V]) TryGet(key string) (V, bool) {
	now := time.Now()
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if !ok || !e.valid(now) {
		c.misses.Increment()
		var zero V
		return zero, false
	}
	c.hits.Increment()
	return e.value, true
}

// Insert stores value under key using the cache's default TTL.
func (c *Cache[V]) Insert(key string, value V) {
	c.InsertAt(key, value, time.Now().Add(c.defaultTTL))
}

// InsertAt stores value under key with an explicit deadline. A later write
// to the same key always replaces an earlier one, regardless of either
// entry's deadline.
func (c *Cache[V]) InsertAt(key string, value V, expiresAt time.Time) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

// BulkInserter performs no locking of its own; it is only valid for the
// duration of the Bulk callback that receives it.
type BulkInserter[V any] struct {
	c *Cache[V]
}

// Insert stores value under key with an explicit deadline, without
// acquiring the cache's lock (the enclosing Bulk call already holds it).
func (b BulkInserter[V]) Insert(key string, value V, expiresAt time.Time) {
	b.c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// Bulk acquires the cache exclusively and invokes fn with a handle that can
// insert without further locking. Readers (TryGet) block for the duration
// of fn, so a refresh can atomically replace the cache's contents from the
// readers' point of view -- this is how the background refresher
// repopulates the host cache in one step per spec section 4.9.
func (c *Cache[V]) Bulk(fn func(BulkInserter[V])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(BulkInserter[V]{c: c})
}

// Trim removes every entry whose deadline has already passed. Trim is
// monotonic: an entry invalid at time T remains invalid at any T' > T, so
// Trim never removes an entry that TryGet would still consider valid.
func (c *Cache[V]) Trim() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !e.valid(now) {
			delete(c.entries, k)
		}
	}
}

// Len returns the current number of entries, expired or not. Intended for
// metrics/diagnostics only.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Hits returns the cache's own hit counter, for wiring into a Registry.
func (c *Cache[V]) Hits() *Counter { return &c.hits }

// Misses returns the cache's own miss counter, for wiring into a Registry.
func (c *Cache[V]) Misses() *Counter { return &c.misses }
