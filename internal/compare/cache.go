package compare

import (
	"sync"

	"github.com/areascope/areascope/internal/model"
)

// statsKey identifies one computation: stats for one layer of one area
// under one selection polygon version.
type statsKey struct {
	AreaID  string
	LayerID string
	Version uint64
}

// StatsCache memoizes per-layer statistics keyed by selection version.
// Invalidation happens by version bump: entries for superseded versions are
// simply never read again and are dropped by PruneBelow.
type StatsCache struct {
	mu      sync.RWMutex
	entries map[statsKey]*model.LayerStats
}

// NewStatsCache returns an empty cache.
func NewStatsCache() *StatsCache {
	return &StatsCache{entries: make(map[statsKey]*model.LayerStats)}
}

// Get returns the cached stats for the exact (area, layer, version) triple.
func (c *StatsCache) Get(areaID, layerID string, version uint64) (*model.LayerStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[statsKey{areaID, layerID, version}]
	return s, ok
}

// Put stores stats for the triple, overwriting any previous value
// (last write wins).
func (c *StatsCache) Put(areaID, layerID string, version uint64, stats *model.LayerStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[statsKey{areaID, layerID, version}] = stats
}

// PruneBelow drops all entries with a version older than minVersion.
func (c *StatsCache) PruneBelow(minVersion uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Version < minVersion {
			delete(c.entries, k)
		}
	}
}

// DropArea removes every entry belonging to the area, used on area removal.
func (c *StatsCache) DropArea(areaID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.AreaID == areaID {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of cached entries.
func (c *StatsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
