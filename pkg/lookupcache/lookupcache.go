// Package lookupcache is a bounded in-memory cache in front of the
// backing KV lookup path, keyed on the packed address plus the lookup
// mode (and, for an as-of query, the requested timestamp).
//
// Grounded on the pack's precedent of wrapping hashicorp/golang-lru
// around a hot key/value read path (an LRU in front of repeated IP
// lookups), generalizing the teacher's own ad hoc metadata cache
// (pkg/iporgdb/metadata.go's in-process map) to a real bounded LRU so
// memory use doesn't grow with the number of distinct addresses ever
// queried. The cache is purged wholesale after every successful load,
// since a load can change which range covers any given address.
package lookupcache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Key identifies one cached lookup: a packed 16-byte address, the
// lookup mode byte (see pkg/lookup.Mode), and — for an as-of query —
// the requested ISO-8601 timestamp. Latest and all-history lookups
// leave Timestamp empty.
type Key struct {
	Addr      [16]byte
	Mode      byte
	Timestamp string
}

// NewKey builds a cache key.
func NewKey(addr [16]byte, mode byte, timestamp string) Key {
	return Key{Addr: addr, Mode: mode, Timestamp: timestamp}
}

// Cache is a bounded LRU from Key to a cached lookup result of type T.
type Cache[T any] struct {
	lru *lru.Cache[Key, T]
}

// New creates a cache holding at most size entries. size must be positive.
func New[T any](size int) (*Cache[T], error) {
	c, err := lru.New[Key, T](size)
	if err != nil {
		return nil, err
	}
	return &Cache[T]{lru: c}, nil
}

// Get returns the cached value for k, if present.
func (c *Cache[T]) Get(k Key) (T, bool) {
	return c.lru.Get(k)
}

// Add inserts or updates the cached value for k.
func (c *Cache[T]) Add(k Key, v T) {
	c.lru.Add(k, v)
}

// Purge discards every cached entry. Called after every successful load.
func (c *Cache[T]) Purge() {
	c.lru.Purge()
}

// Len reports the number of entries currently cached.
func (c *Cache[T]) Len() int {
	return c.lru.Len()
}
