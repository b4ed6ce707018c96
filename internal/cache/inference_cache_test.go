package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCacheHitAndMiss(t *testing.T) {
	c := NewInferenceCache(10, time.Hour)

	_, ok := c.Get("a", 1)
	assert.False(t, ok)

	c.Put("a", 1, "result-a")
	got, ok := c.Get("a", 1)
	require.True(t, ok)
	assert.Equal(t, "result-a", got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 0.001)
}

func TestCacheHashMismatchIsMiss(t *testing.T) {
	c := NewInferenceCache(10, time.Hour)

	c.Put("a", 1, "old")
	_, ok := c.Get("a", 2)
	assert.False(t, ok, "changed content must invalidate the entry")

	// The stale entry is gone even for the original hash
	_, ok = c.Get("a", 1)
	assert.False(t, ok)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := NewInferenceCache(10, time.Hour)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	current := base
	c.SetClock(func() time.Time { return current })

	c.Put("a", 1, "result")

	current = base.Add(59 * time.Minute)
	_, ok := c.Get("a", 1)
	assert.True(t, ok)

	current = base.Add(time.Hour)
	_, ok = c.Get("a", 1)
	assert.False(t, ok, "entry at TTL must be expired")
	assert.Equal(t, 0, c.Len())
}

func TestCacheTTLNotExtendedByHits(t *testing.T) {
	c := NewInferenceCache(10, time.Hour)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	current := base
	c.SetClock(func() time.Time { return current })

	c.Put("a", 1, "result")

	// Repeated hits close to expiry
	for i := 1; i <= 5; i++ {
		current = base.Add(time.Duration(i*10) * time.Minute)
		_, ok := c.Get("a", 1)
		require.True(t, ok)
	}

	// Age is measured from insertion, not last access
	current = base.Add(61 * time.Minute)
	_, ok := c.Get("a", 1)
	assert.False(t, ok)
}

func TestCacheLRUEviction(t *testing.T) {
	c := NewInferenceCache(3, time.Hour)

	c.Put("a", 1, "a")
	c.Put("b", 1, "b")
	c.Put("c", 1, "c")

	// Touch "a" so "b" becomes least recently used
	_, ok := c.Get("a", 1)
	require.True(t, ok)

	c.Put("d", 1, "d")

	_, ok = c.Get("b", 1)
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a", 1)
	assert.True(t, ok)
	_, ok = c.Get("c", 1)
	assert.True(t, ok)
	_, ok = c.Get("d", 1)
	assert.True(t, ok)

	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCacheCapacityBound(t *testing.T) {
	c := NewInferenceCache(DefaultCapacity, time.Hour)

	for i := 0; i < DefaultCapacity*2; i++ {
		c.Put(fmt.Sprintf("unit-%d", i), uint64(i), i)
	}
	assert.Equal(t, DefaultCapacity, c.Len())
}

func TestCachePutReplacesEntry(t *testing.T) {
	c := NewInferenceCache(10, time.Hour)

	c.Put("a", 1, "old")
	c.Put("a", 2, "new")
	require.Equal(t, 1, c.Len())

	got, ok := c.Get("a", 2)
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestCacheInvalidate(t *testing.T) {
	c := NewInferenceCache(10, time.Hour)

	c.Put("a", 1, "a")
	c.Invalidate("a")
	_, ok := c.Get("a", 1)
	assert.False(t, ok)

	// Invalidating an absent key is harmless
	c.Invalidate("missing")
}

func TestCacheClearKeepsCounters(t *testing.T) {
	c := NewInferenceCache(10, time.Hour)

	c.Put("a", 1, "a")
	_, _ = c.Get("a", 1)
	c.Clear()

	assert.Equal(t, 0, c.Len())
	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
}

func TestCacheDefaults(t *testing.T) {
	c := NewInferenceCache(0, 0)
	stats := c.Stats()
	assert.Equal(t, DefaultCapacity, stats.Capacity)
}

func BenchmarkInferenceCacheGet(b *testing.B) {
	c := NewInferenceCache(DefaultCapacity, DefaultTTL)
	keys := make([]string, DefaultCapacity)
	for i := range keys {
		keys[i] = fmt.Sprintf("unit-%03d", i)
		c.Put(keys[i], uint64(i), i)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := i % DefaultCapacity
		if _, ok := c.Get(keys[k], uint64(k)); !ok {
			b.Fatal("expected hit")
		}
	}
}

func BenchmarkInferenceCachePutEvicting(b *testing.B) {
	c := NewInferenceCache(DefaultCapacity, DefaultTTL)
	keys := make([]string, DefaultCapacity*2)
	for i := range keys {
		keys[i] = fmt.Sprintf("unit-%03d", i)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := i % len(keys)
		c.Put(keys[k], uint64(k), k)
	}
}
