package llm

import (
	"sync"
	"time"
)

// Cache sizing defaults, matching the client's construction.
const (
	DefaultCacheMaxEntries = 512
	DefaultCacheTTL        = 10 * time.Minute
)

// ResponseCache is a bounded, thread-safe fingerprint -> Response store with
// TTL expiry and least-recently-used eviction. All state is guarded by a
// single mutex held only for the short sweep/lookup/insert critical section;
// the lock is never held across a network call. A panic inside the critical
// section unwinds through the deferred unlock, leaving the map usable.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	maxEntries int
	ttl        time.Duration
	tick       uint64
}

// cacheEntry owns one response plus the bookkeeping for TTL and LRU.
type cacheEntry struct {
	response   Response
	cachedAt   time.Time
	lastAccess uint64
}

// NewResponseCache creates a cache bounded to maxEntries (floor 1) whose
// entries expire after ttl.
func NewResponseCache(maxEntries int, ttl time.Duration) *ResponseCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &ResponseCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns a copy of the cached response for key, refreshing its access
// tick. Expired entries are swept first and never returned.
func (c *ResponseCache) Get(key string) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry.lastAccess = c.nextTickLocked()
	resp := entry.response
	return &resp, true
}

// Insert stores a copy of resp under key, evicting the least-recently-used
// entry if the cache is full and key is new. The size bound holds when
// Insert returns.
func (c *ResponseCache) Insert(key string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRULocked()
	}

	c.entries[key] = &cacheEntry{
		response:   *resp,
		cachedAt:   time.Now(),
		lastAccess: c.nextTickLocked(),
	}
}

// Len reports the current entry count after sweeping expired entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()
	return len(c.entries)
}

func (c *ResponseCache) nextTickLocked() uint64 {
	c.tick++
	return c.tick
}

func (c *ResponseCache) sweepLocked() {
	now := time.Now()
	for key, entry := range c.entries {
		if now.Sub(entry.cachedAt) > c.ttl {
			delete(c.entries, key)
		}
	}
}

func (c *ResponseCache) evictLRULocked() {
	var oldestKey string
	var oldestTick uint64
	first := true
	for key, entry := range c.entries {
		if first || entry.lastAccess < oldestTick {
			oldestKey = key
			oldestTick = entry.lastAccess
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
