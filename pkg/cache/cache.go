// Package cache wraps a fixed-capacity LRU behind the small surface the
// predictor needs: Get promotes on hit, Put evicts past capacity, Clear and
// Size. The store is safe for concurrent callers.
package cache

import (
	lru "github.com/hashicorp/golang-lru"
)

// Cache is a bounded, thread-safe key→value store with recency eviction.
type Cache[V any] struct {
	inner *lru.Cache
}

// New returns a cache holding at most capacity entries.
func New[V any](capacity int) (*Cache[V], error) {
	inner, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{inner: inner}, nil
}

// Get returns the value for key, promoting it to most recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	if v, ok := c.inner.Get(key); ok {
		return v.(V), true
	}
	var zero V
	return zero, false
}

// Put stores key→value, evicting the least recently used entry when the
// cache is full.
func (c *Cache[V]) Put(key string, value V) {
	c.inner.Add(key, value)
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.inner.Purge()
}

// Size reports the number of cached entries.
func (c *Cache[V]) Size() int {
	return c.inner.Len()
}
