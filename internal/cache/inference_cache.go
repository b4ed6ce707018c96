// Package cache provides the bounded result cache used by incremental
// analysis. Entries are keyed by analysis unit and validated against
// the unit's current content hash, so stale results are never served
// after an edit.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/vigilscan/vigil/internal/debug"
)

const (
	// DefaultCapacity bounds the number of cached results.
	DefaultCapacity = 100

	// DefaultTTL is the absolute entry lifetime. Age is measured from
	// insertion; a cache hit does not extend it.
	DefaultTTL = time.Hour
)

// Entry is one cached analysis result.
type Entry struct {
	UnitID      string
	ContentHash uint64
	Result      any
	StoredAt    time.Time
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	Capacity  int
}

// HitRate returns the fraction of lookups that hit, or 0 when no
// lookups have happened.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// InferenceCache is a strict LRU cache with an absolute TTL. A lookup
// counts as a miss when the key is absent, the stored hash differs
// from the caller's, or the entry has outlived the TTL.
type InferenceCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	hits      int64
	misses    int64
	evictions int64

	now func() time.Time
}

// NewInferenceCache creates a cache with the given capacity and TTL.
// Non-positive values fall back to the defaults.
func NewInferenceCache(capacity int, ttl time.Duration) *InferenceCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InferenceCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// SetClock replaces the cache's time source. Test hook.
func (c *InferenceCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the cached result for unitID when it is present, carries
// the same content hash, and has not expired.
func (c *InferenceCache) Get(unitID string, contentHash uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[unitID]
	if !ok {
		c.misses++
		return nil, false
	}

	entry := elem.Value.(*Entry)
	if entry.ContentHash != contentHash {
		// Content changed since the result was stored
		c.removeLocked(elem)
		c.misses++
		return nil, false
	}
	if c.now().Sub(entry.StoredAt) >= c.ttl {
		c.removeLocked(elem)
		c.misses++
		debug.LogAnalysis("cache entry %s expired\n", unitID)
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return entry.Result, true
}

// Put stores a result for unitID, replacing any previous entry and
// evicting the least recently used entry when over capacity.
func (c *InferenceCache) Put(unitID string, contentHash uint64, result any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[unitID]; ok {
		entry := elem.Value.(*Entry)
		entry.ContentHash = contentHash
		entry.Result = result
		entry.StoredAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&Entry{
		UnitID:      unitID,
		ContentHash: contentHash,
		Result:      result,
		StoredAt:    c.now(),
	})
	c.entries[unitID] = elem

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		c.evictions++
	}
}

// Invalidate drops the entry for unitID if present.
func (c *InferenceCache) Invalidate(unitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[unitID]; ok {
		c.removeLocked(elem)
	}
}

// Clear drops every entry. Counters are preserved.
func (c *InferenceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the current entry count.
func (c *InferenceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *InferenceCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.order.Len(),
		Capacity:  c.capacity,
	}
}

func (c *InferenceCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*Entry)
	delete(c.entries, entry.UnitID)
	c.order.Remove(elem)
}
