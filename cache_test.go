package ec2dns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheTryGetMissOnEmpty(t *testing.T) {
	c := NewCache[string](time.Minute)
	_, ok := c.TryGet("missing")
	require.False(t, ok)
	require.Equal(t, uint64(1), c.Misses().Value())
}

func TestCacheInsertAndGet(t *testing.T) {
	c := NewCache[string](time.Minute)
	c.Insert("k", "v")
	v, ok := c.TryGet("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
	require.Equal(t, uint64(1), c.Hits().Value())
}

func TestCacheExpiredEntryNotReturned(t *testing.T) {
	c := NewCache[string](time.Minute)
	c.InsertAt("k", "v", time.Now().Add(-time.Second))
	_, ok := c.TryGet("k")
	require.False(t, ok)
}

func TestCacheLaterWriteReplacesEarlier(t *testing.T) {
	c := NewCache[string](time.Minute)
	c.InsertAt("k", "old", time.Now().Add(time.Hour))
	c.InsertAt("k", "new", time.Now().Add(time.Second))
	v, ok := c.TryGet("k")
	require.True(t, ok)
	require.Equal(t, "new", v)
}

func TestCacheTrimRemovesOnlyExpired(t *testing.T) {
	c := NewCache[string](time.Minute)
	c.InsertAt("expired", "v", time.Now().Add(-time.Second))
	c.InsertAt("valid", "v", time.Now().Add(time.Hour))
	c.Trim()
	require.Equal(t, 1, c.Len())
	_, ok := c.TryGet("valid")
	require.True(t, ok)
}

func TestCacheBulkInsertsAtomically(t *testing.T) {
	c := NewCache[int](time.Minute)
	deadline := time.Now().Add(time.Hour)
	c.Bulk(func(b BulkInserter[int]) {
		for i := 0; i < 5; i++ {
			b.Insert(string(rune('a'+i)), i, deadline)
		}
	})
	require.Equal(t, 5, c.Len())
	v, ok := c.TryGet("a")
	require.True(t, ok)
	require.Equal(t, 0, v)
}

func TestCacheTrimMonotonic(t *testing.T) {
	c := NewCache[string](time.Minute)
	now := time.Now()
	c.InsertAt("a", "v", now.Add(-time.Millisecond))
	c.Trim()
	_, ok := c.TryGet("a")
	require.False(t, ok, "an entry invalid at trim time must stay absent at any later time")
}
