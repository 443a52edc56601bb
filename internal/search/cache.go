package search

import (
	"sync"
	"time"

	"ardi/internal/types"
)

// resultCache is an in-memory TTL cache for search results, keyed by
// normalized query. Reduces redundant lookups against the search endpoint.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	results   []types.SearchResult
	createdAt time.Time
	expiresAt time.Time
}

func newResultCache(maxSize int, ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves cached results for a normalized query.
func (c *resultCache) Get(key string) ([]types.SearchResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.results, true
}

// Set stores results for a normalized query.
func (c *resultCache) Set(key string, results []types.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.entries[key] = &cacheEntry{
		results:   results,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
}

// evictOldest removes the oldest entry by creation time.
func (c *resultCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Size returns the number of cached queries.
func (c *resultCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
