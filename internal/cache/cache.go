package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long a cached response stays fresh
const DefaultTTL = 5 * time.Minute

// Cache interface defines cache operations
type Cache interface {
	Get(key string) (Entry, bool)
	Set(key string, data interface{})
	Clear()
	Size() int
}

// Entry is a cached response payload and the time it was written
type Entry struct {
	Data     interface{} `json:"data"`
	StoredAt time.Time   `json:"stored_at"`
}

// MemoryCache is an in-memory response cache. Staleness is evaluated on read;
// stale entries are reported as absent but stay in the map until overwritten.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]Entry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		items: make(map[string]Entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the time source
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

// Get returns the entry for key if it is younger than the TTL
func (c *MemoryCache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	entry, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return Entry{}, false
	}
	if c.now().Sub(entry.StoredAt) >= c.ttl {
		return Entry{}, false
	}
	return entry, true
}

// Set stores data under key, replacing any previous entry
func (c *MemoryCache) Set(key string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = Entry{
		Data:     data,
		StoredAt: c.now(),
	}
}

// Clear removes all items from cache
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]Entry)
}

// Size returns the number of stored entries, stale ones included
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// TTL returns the freshness window
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}

// CacheStats represents cache statistics
type CacheStats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Writes    int64     `json:"writes"`
	Size      int       `json:"size"`
	HitRate   float64   `json:"hit_rate"`
	LastReset time.Time `json:"last_reset"`
}

// StatsCache wraps a cache with statistics tracking
type StatsCache struct {
	cache Cache
	mu    sync.Mutex
	stats CacheStats
}

// NewStatsCache creates a cache with statistics
func NewStatsCache(cache Cache) *StatsCache {
	return &StatsCache{
		cache: cache,
		stats: CacheStats{
			LastReset: time.Now(),
		},
	}
}

// Get retrieves value and updates statistics
func (sc *StatsCache) Get(key string) (Entry, bool) {
	entry, found := sc.cache.Get(key)

	sc.mu.Lock()
	if found {
		sc.stats.Hits++
	} else {
		sc.stats.Misses++
	}
	sc.updateHitRate()
	sc.mu.Unlock()

	return entry, found
}

// Set stores value and updates statistics
func (sc *StatsCache) Set(key string, data interface{}) {
	sc.cache.Set(key, data)

	sc.mu.Lock()
	sc.stats.Writes++
	sc.mu.Unlock()
}

// Clear removes all items from cache and resets the counters
func (sc *StatsCache) Clear() {
	sc.cache.Clear()

	sc.mu.Lock()
	sc.stats.Hits = 0
	sc.stats.Misses = 0
	sc.stats.Writes = 0
	sc.stats.HitRate = 0
	sc.stats.LastReset = time.Now()
	sc.mu.Unlock()
}

// Size returns cache size
func (sc *StatsCache) Size() int {
	return sc.cache.Size()
}

// GetStats returns cache statistics
func (sc *StatsCache) GetStats() CacheStats {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.stats.Size = sc.cache.Size()
	return sc.stats
}

// updateHitRate calculates the cache hit rate
func (sc *StatsCache) updateHitRate() {
	total := sc.stats.Hits + sc.stats.Misses
	if total > 0 {
		sc.stats.HitRate = float64(sc.stats.Hits) / float64(total)
	}
}
