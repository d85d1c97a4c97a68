package geospatial

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

type tileKey struct {
	layer   string
	z, x, y int
}

type tileEntry struct {
	key      tileKey
	data     []byte
	storedAt time.Time
}

// TileCache is a concurrent-safe LRU cache for raster tiles with TTL
// expiration. Basemap tiles are immutable for practical purposes, so the TTL
// mainly bounds memory held for layers the user has moved away from.
type TileCache struct {
	mu      sync.RWMutex
	entries map[tileKey]*list.Element
	lru     *list.List // front = most recently used
	max     int
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewTileCache creates a TileCache with the given capacity and TTL.
func NewTileCache(maxEntries int, ttl time.Duration) *TileCache {
	return &TileCache{
		entries: make(map[tileKey]*list.Element),
		lru:     list.New(),
		max:     maxEntries,
		ttl:     ttl,
	}
}

// Get retrieves a cached tile. Returns nil on miss or expiration.
func (c *TileCache) Get(layer string, z, x, y int) []byte {
	key := tileKey{layer, z, x, y}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil
	}

	entry := el.Value.(*tileEntry)
	if time.Since(entry.storedAt) > c.ttl {
		c.remove(el)
		c.misses.Add(1)
		return nil
	}

	c.lru.MoveToFront(el)
	c.hits.Add(1)
	return entry.data
}

// Put stores a tile, evicting the least recently used entry at capacity.
func (c *TileCache) Put(layer string, z, x, y int, data []byte) {
	key := tileKey{layer, z, x, y}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value = &tileEntry{key: key, data: data, storedAt: time.Now()}
		c.lru.MoveToFront(el)
		return
	}

	for c.lru.Len() >= c.max {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}

	c.entries[key] = c.lru.PushFront(&tileEntry{key: key, data: data, storedAt: time.Now()})
}

// Invalidate drops every cached tile of a layer.
func (c *TileCache) Invalidate(layer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	for el := c.lru.Front(); el != nil; el = next {
		next = el.Next()
		if el.Value.(*tileEntry).key.layer == layer {
			c.remove(el)
		}
	}
}

// Stats returns cache performance statistics.
func (c *TileCache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: c.max,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

// remove unlinks an element; callers hold the write lock.
func (c *TileCache) remove(el *list.Element) {
	c.lru.Remove(el)
	delete(c.entries, el.Value.(*tileEntry).key)
}
