package cache

import (
	"context"
	"sync"
	"time"

	"transport-route-service/internal/domain"
)

// MemoryRouteCache is an in-process RouteCache.
//
// The map lock only guards slot creation and removal; each key has its own lock,
// so stores to distinct keys never contend and stores to the same key are serialized.
// The cache is safe for concurrent use.
type MemoryRouteCache struct {
	mu      sync.RWMutex
	entries map[string]*memorySlot
	now     func() time.Time
}

type memorySlot struct {
	mu      sync.Mutex
	entry   domain.CacheEntry
	filled  bool
	removed bool
}

func NewMemoryRouteCache() *MemoryRouteCache {
	return &MemoryRouteCache{
		entries: make(map[string]*memorySlot),
		now:     time.Now,
	}
}

func (c *MemoryRouteCache) Lookup(_ context.Context, key string) (domain.CacheEntry, bool, error) {
	c.mu.RLock()
	slot, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return domain.CacheEntry{}, false, nil
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.removed || !slot.filled {
		return domain.CacheEntry{}, false, nil
	}

	slot.entry.UseCount++
	slot.entry.LastUsed = c.now()

	return copyEntry(slot.entry), true, nil
}

func (c *MemoryRouteCache) Store(_ context.Context, key string, result domain.RouteResult) (domain.CacheEntry, error) {
	for {
		slot := c.slot(key)

		slot.mu.Lock()
		if slot.removed {
			// Pruned between slot() and Lock(); retry against a fresh slot.
			slot.mu.Unlock()
			continue
		}

		now := c.now()
		if !slot.filled {
			slot.entry = domain.CacheEntry{
				Key:       key,
				Result:    copyResult(result),
				UseCount:  1,
				CreatedAt: now,
				LastUsed:  now,
			}
			slot.filled = true
		} else {
			slot.entry.Result = copyResult(domain.PreferredResult(slot.entry.Result, result))
			slot.entry.UseCount++
			slot.entry.LastUsed = now
		}

		out := copyEntry(slot.entry)
		slot.mu.Unlock()
		return out, nil
	}
}

func (c *MemoryRouteCache) Prune(_ context.Context, olderThan time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, slot := range c.entries {
		slot.mu.Lock()
		if slot.filled && slot.entry.LastUsed.Before(olderThan) {
			slot.removed = true
			delete(c.entries, key)
			removed++
		}
		slot.mu.Unlock()
	}

	return removed, nil
}

func (c *MemoryRouteCache) Stats(_ context.Context) (domain.CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var stats domain.CacheStats
	for _, slot := range c.entries {
		slot.mu.Lock()
		if slot.filled {
			stats.TotalEntries++
			stats.TotalUsage += slot.entry.UseCount
			if slot.entry.Result.IsFallback {
				stats.FallbackEntries++
			} else {
				stats.NetworkEntries++
			}
		}
		slot.mu.Unlock()
	}

	return stats, nil
}

// slot returns the slot for key, creating an empty one if needed.
func (c *MemoryRouteCache) slot(key string) *memorySlot {
	c.mu.RLock()
	slot, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return slot
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if slot, ok := c.entries[key]; ok {
		return slot
	}
	slot = &memorySlot{}
	c.entries[key] = slot
	return slot
}

// Return copies so callers cannot mutate cached geometry without the slot lock.
func copyEntry(e domain.CacheEntry) domain.CacheEntry {
	e.Result = copyResult(e.Result)
	return e
}

func copyResult(r domain.RouteResult) domain.RouteResult {
	geom := make([]domain.GeoPoint, len(r.Geometry))
	copy(geom, r.Geometry)
	r.Geometry = geom
	return r
}
