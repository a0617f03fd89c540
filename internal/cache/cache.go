package cache

import (
	"sync"

	"github.com/quakesim/engine/internal/geo"
)

// RegionCache memoizes point-to-region lookups on a quantized grid.
// Polygon containment is the most expensive per-frame query, and cursor
// positions cluster heavily, so even a coarse grid removes most of it.
type RegionCache struct {
	m       sync.Mutex
	entries map[cacheKey]string
	// grid cell size in degrees
	step float64
}

type cacheKey struct {
	lat int64
	lon int64
}

// NewRegionCache creates a cache with the given grid step in degrees.
// Non-positive steps fall back to 0.01 (roughly 1 km).
func NewRegionCache(stepDeg float64) *RegionCache {
	if stepDeg <= 0 {
		stepDeg = 0.01
	}
	return &RegionCache{
		entries: make(map[cacheKey]string),
		step:    stepDeg,
	}
}

func (c *RegionCache) key(p geo.Point) cacheKey {
	return cacheKey{
		lat: int64(p.Lat / c.step),
		lon: int64(p.Lon / c.step),
	}
}

// Get returns the cached region name for the cell containing p.
func (c *RegionCache) Get(p geo.Point) (string, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	name, ok := c.entries[c.key(p)]
	return name, ok
}

// Put stores the region name for the cell containing p.
func (c *RegionCache) Put(p geo.Point, name string) {
	c.m.Lock()
	defer c.m.Unlock()
	c.entries[c.key(p)] = name
}

// Len returns the number of cached cells.
func (c *RegionCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.entries)
}

// Reset drops all cached entries.
func (c *RegionCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.entries = make(map[cacheKey]string)
}

// SafeCounter is a mutex-guarded counter. The engine uses one for its frame
// count, which the frame loop increments while status queries read it.
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
