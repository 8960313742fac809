package layer

import (
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/areascope/areascope/internal/model"
)

// Repository centralizes per-layer data access, including the
// clipped-with-fallback-to-raw lookup that callers otherwise reimplement at
// every call site. Safe for concurrent readers.
type Repository struct {
	mu   sync.RWMutex
	data map[string]*model.LayerData
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{data: make(map[string]*model.LayerData)}
}

// Get returns the layer's data, or false when the layer has never received
// any. Absence means "not computed", not "zero".
func (r *Repository) Get(layerID string) (*model.LayerData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ld, ok := r.data[layerID]
	return ld, ok
}

// ClippedOrRaw returns the layer's clipped features when a selection has
// been applied, falling back to the raw collection, or nil when the layer
// has no data at all. Clipped data is authoritative whenever it exists.
func (r *Repository) ClippedOrRaw(layerID string) *geojson.FeatureCollection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ld, ok := r.data[layerID]
	if !ok {
		return nil
	}
	if ld.Clipped != nil {
		return ld.Clipped
	}
	return ld.Features
}

// SetFeatures stores a newly fetched raw collection for the layer,
// discarding any stale clipped data and statistics.
func (r *Repository) SetFeatures(layerID string, fc *geojson.FeatureCollection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[layerID] = &model.LayerData{Features: fc}
}

// SetClipped replaces the layer's clipped collection and statistics in one
// step so no reader observes a clip without its stats.
func (r *Repository) SetClipped(layerID string, clipped *geojson.FeatureCollection, stats *model.LayerStats, degenerate int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ld, ok := r.data[layerID]
	if !ok {
		return
	}
	r.data[layerID] = &model.LayerData{
		Features:   ld.Features,
		Clipped:    clipped,
		Stats:      stats,
		Degenerate: degenerate,
	}
}

// Remove drops a layer's data, used when a custom layer is deleted.
func (r *Repository) Remove(layerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, layerID)
}

// IDs returns the ids of all layers holding data.
func (r *Repository) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot copies the repository's current contents into a plain map, used
// when pinning a comparison area so later recomputes cannot mutate it.
func (r *Repository) Snapshot() map[string]*model.LayerData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*model.LayerData, len(r.data))
	for id, ld := range r.data {
		copied := *ld
		out[id] = &copied
	}
	return out
}
