// Package cache implements the process-wide TTL cache shared by the proxy and
// enrichment pipelines. Entries are replaced wholesale on refresh and expire
// by TTL only; there is no size bound because keys are distinct URLs and load
// is externally capped by the orchestrator's concurrency limit. Nothing is
// persisted across restarts: staleness beyond the TTL forces a refetch.
package cache

import (
	"sync"
	"time"

	"github.com/webscout/webscout/internal/scout"
)

// Entry is one cached value with its freshness metadata. Validator is an
// opaque content hash that changes exactly when Value changes.
type Entry[V any] struct {
	Key       string
	Value     V
	StoredAt  time.Time
	Validator string
}

// Cache is a TTL-bounded key/value store safe for concurrent use. Readers may
// observe a miss while a concurrent writer runs; the accepted trade-off is
// at-most duplicate work, never a corrupt entry.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	ttl     time.Duration
	clock   scout.Clock
}

// New constructs a Cache with the given TTL.
func New[V any](ttl time.Duration, clock scout.Clock) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]Entry[V]),
		ttl:     ttl,
		clock:   clock,
	}
}

// Put stores value under key, replacing any previous entry wholesale.
// The validator should be a hash of value so the validator invariant holds.
func (c *Cache[V]) Put(key string, value V, validator string) {
	entry := Entry[V]{
		Key:       key,
		Value:     value,
		StoredAt:  c.clock.Now(),
		Validator: validator,
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Get returns the entry for key only while it is fresh (now-storedAt < TTL).
// An expired entry is evicted on the way out.
func (c *Cache[V]) Get(key string) (Entry[V], bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Entry[V]{}, false
	}
	if c.expired(entry) {
		c.evict(key, entry.StoredAt)
		return Entry[V]{}, false
	}
	return entry, true
}

// GetStale is the fast path: any present entry is returned immediately,
// fresh or not, to minimize latency on repeat views.
func (c *Cache[V]) GetStale(key string) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Match reports whether a caller-supplied validator equals the current fresh
// entry's validator, signaling "not modified" so the caller can skip
// producing a body.
func (c *Cache[V]) Match(key, validator string) bool {
	if validator == "" {
		return false
	}
	entry, ok := c.Get(key)
	return ok && entry.Validator == validator
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[V]) expired(entry Entry[V]) bool {
	return c.clock.Now().Sub(entry.StoredAt) >= c.ttl
}

// evict drops the entry only if it has not been replaced since the caller
// observed it; a concurrent Put wins.
func (c *Cache[V]) evict(key string, storedAt time.Time) {
	c.mu.Lock()
	if current, ok := c.entries[key]; ok && current.StoredAt.Equal(storedAt) {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}
