package retrieval

import (
	"sync"
	"time"

	"ardi/internal/types"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 2 * time.Minute
)

// sourceCache memoizes retrieval results per normalized query. Entries
// are stamped with the library and generated-store versions at fill time;
// a version bump (hot reload, fresh generation) makes them stale
// immediately, the TTL only bounds how long pattern updates lag.
type sourceCache struct {
	mu      sync.Mutex
	entries map[string]cachedSources
	maxSize int
	ttl     time.Duration
}

type cachedSources struct {
	sources    []types.InformationSource
	cachedAt   time.Time
	libVersion uint64
	genVersion uint64
}

func newSourceCache(maxSize int, ttl time.Duration) *sourceCache {
	return &sourceCache{
		entries: make(map[string]cachedSources),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func (c *sourceCache) Get(key string, libVersion, genVersion uint64) ([]types.InformationSource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if entry.libVersion != libVersion || entry.genVersion != genVersion {
		delete(c.entries, key)
		return nil, false
	}
	if time.Since(entry.cachedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.sources, true
}

func (c *sourceCache) Set(key string, sources []types.InformationSource, libVersion, genVersion uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = cachedSources{
		sources:    sources,
		cachedAt:   time.Now(),
		libVersion: libVersion,
		genVersion: genVersion,
	}
}

// evictOldest removes the stalest entry. Caller holds the lock.
func (c *sourceCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Invalidate drops all cached results, used after a knowledge reload.
func (c *sourceCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedSources)
}

// InvalidateCache clears the retriever's memoized sources.
func (r *Retriever) InvalidateCache() {
	r.cache.Invalidate()
}
