package service

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// ResultCache stores successful envelopes keyed by the canonical
// serialization of a find or get request. Invalidation is coarse: Purge
// drops every entry for the owning service.
type ResultCache interface {
	Get(key string) (Result, bool)
	Put(key string, r Result)
	Purge()
}

// CacheFactory builds the find and get caches for a named service.
type CacheFactory func(service, kind string) ResultCache

// DefaultCacheSize bounds each per-service LRU cache.
const DefaultCacheSize = 512

// lruCache is the in-process default backend.
type lruCache struct {
	entries *lru.Cache[string, Result]
}

// NewLRUCache creates a bounded in-process result cache.
func NewLRUCache(size int) ResultCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, Result](size)
	return &lruCache{entries: entries}
}

func (c *lruCache) Get(key string) (Result, bool) {
	return c.entries.Get(key)
}

func (c *lruCache) Put(key string, r Result) {
	c.entries.Add(key, r)
}

func (c *lruCache) Purge() {
	c.entries.Purge()
}

// LRUFactory returns a CacheFactory producing per-service LRU caches.
func LRUFactory(size int) CacheFactory {
	return func(string, string) ResultCache {
		return NewLRUCache(size)
	}
}
