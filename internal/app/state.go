// Package app wires the geometry, layer, stats, and comparison subsystems
// into one stateful session: a live selection polygon, the active layer
// set, and the pinned comparison areas.
package app

import (
	"context"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/areascope/areascope/internal/clipper"
	"github.com/areascope/areascope/internal/compare"
	"github.com/areascope/areascope/internal/config"
	"github.com/areascope/areascope/internal/geometry"
	"github.com/areascope/areascope/internal/layer"
	"github.com/areascope/areascope/internal/metrics"
	"github.com/areascope/areascope/internal/model"
	"github.com/areascope/areascope/internal/quality"
	"github.com/areascope/areascope/internal/stats"
	"github.com/areascope/areascope/internal/store"
)

// Sentinel errors surfaced to callers.
var (
	ErrNoSelection         = eris.New("app: no selection polygon set")
	ErrDegenerateSelection = eris.New("app: selection polygon is degenerate")
	ErrUnknownLayer        = eris.New("app: unknown layer")
)

// liveAreaID keys stats-cache entries for the live selection, which has no
// comparison-area id of its own.
const liveAreaID = "_selection"

// State is the composition root. All exported methods are safe for
// concurrent use.
type State struct {
	cfg        *config.Config
	repo       *layer.Repository
	manager    *compare.Manager
	cache      *compare.StatsCache
	categories []layer.Category
	log        *zap.Logger

	mu        sync.RWMutex
	manifest  map[string]model.LayerConfig
	active    map[string]bool
	selection *model.Selection
	store     store.Store
}

// New builds a State from configuration with the default layer manifest.
// Every manifest layer starts active.
func New(cfg *config.Config) *State {
	manifest := layer.DefaultManifest()
	active := make(map[string]bool, len(manifest))
	for id := range manifest {
		active[id] = true
	}
	return &State{
		cfg:        cfg,
		repo:       layer.NewRepository(),
		manager:    compare.NewManager(cfg.Areas.Max),
		cache:      compare.NewStatsCache(),
		categories: layer.DefaultCategories(),
		log:        zap.L().With(zap.String("component", "app")),
		manifest:   manifest,
		active:     active,
	}
}

// SetStore attaches a persistence backend. Without one, areas live only for
// the process lifetime.
func (s *State) SetStore(st store.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = st
}

// Repository exposes the live layer repository.
func (s *State) Repository() *layer.Repository {
	return s.repo
}

// Categories returns the tracked category definitions.
func (s *State) Categories() []layer.Category {
	return s.categories
}

// Manifest returns all known layer configs in stable id order.
func (s *State) Manifest() []model.LayerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LayerConfig, 0, len(s.manifest))
	for _, id := range layer.ManifestIDs(s.manifest) {
		out = append(out, s.manifest[id])
	}
	return out
}

// ActiveLayers returns the configs of currently enabled layers in stable
// id order.
func (s *State) ActiveLayers() []model.LayerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLayersLocked()
}

func (s *State) activeLayersLocked() []model.LayerConfig {
	out := make([]model.LayerConfig, 0, len(s.manifest))
	for _, id := range layer.ManifestIDs(s.manifest) {
		if s.active[id] {
			out = append(out, s.manifest[id])
		}
	}
	return out
}

// ActiveSet returns the layer-id activation map as a copy.
func (s *State) ActiveSet() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.active))
	for id, on := range s.active {
		out[id] = on
	}
	return out
}

// SetLayerActive toggles one layer. Deactivating keeps the layer's data so
// re-activation is instant.
func (s *State) SetLayerActive(id string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.manifest[id]; !ok {
		return eris.Wrapf(ErrUnknownLayer, "%s", id)
	}
	s.active[id] = on
	return nil
}

// LoadLayerDirectory imports every readable file in dir. Files whose base
// name matches a manifest layer feed that layer; anything else becomes a
// custom layer with an inferred recipe.
func (s *State) LoadLayerDirectory(dir string) error {
	collections, err := layer.LoadDirectory(dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, fc := range collections {
		cfg, known := s.manifest[id]
		if !known {
			cfg = layer.NewCustomLayer(id, id, fc)
			s.manifest[id] = cfg
			s.active[id] = true
		}
		s.repo.SetFeatures(id, fc)
		s.log.Info("layer loaded",
			zap.String("layer", id),
			zap.Int("features", len(fc.Features)),
			zap.Bool("custom", !known))
	}
	return nil
}

// ImportCustomLayer registers a user-provided collection as a new layer.
func (s *State) ImportCustomLayer(id, name string, fc *geojson.FeatureCollection) model.LayerConfig {
	cfg := layer.NewCustomLayer(id, name, fc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest[id] = cfg
	s.active[id] = true
	s.repo.SetFeatures(id, fc)
	return cfg
}

// Selection returns a copy of the current selection, or nil.
func (s *State) Selection() *model.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selection == nil {
		return nil
	}
	cp := *s.selection
	return &cp
}

// SetSelection replaces the selection polygon, bumps the version, and
// re-clips every active layer. Computations for superseded versions are
// discarded, never merged.
func (s *State) SetSelection(ctx context.Context, polygon orb.Polygon) (*model.Selection, error) {
	if geometry.PolygonDegenerate(polygon) {
		return nil, ErrDegenerateSelection
	}
	areaM2 := geometry.PolygonArea(polygon)

	s.mu.Lock()
	var version uint64 = 1
	if s.selection != nil {
		version = s.selection.Version + 1
	}
	sel := &model.Selection{Polygon: polygon, AreaM2: areaM2, Version: version}
	s.selection = sel
	s.mu.Unlock()

	s.cache.PruneBelow(version)
	if err := s.recompute(ctx, sel); err != nil {
		return nil, err
	}
	cp := *sel
	return &cp, nil
}

// Recompute re-clips all active layers against the current selection, used
// after late layer loads or activation changes.
func (s *State) Recompute(ctx context.Context) error {
	s.mu.RLock()
	sel := s.selection
	s.mu.RUnlock()
	if sel == nil {
		return ErrNoSelection
	}
	return s.recompute(ctx, sel)
}

func (s *State) recompute(ctx context.Context, sel *model.Selection) error {
	s.mu.RLock()
	configs := s.activeLayersLocked()
	s.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())

	for _, cfg := range configs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			ld, ok := s.repo.Get(cfg.ID)
			if !ok || ld.Features == nil {
				return nil
			}

			res := clipper.Clip(ld.Features, sel.Polygon)
			st := stats.Compute(cfg, res.Features, sel.AreaM2)
			if res.Degenerate > 0 {
				s.log.Warn("degenerate features skipped",
					zap.String("layer", cfg.ID),
					zap.Int("count", res.Degenerate))
			}

			// A newer selection may have landed while this one computed.
			// Stale results are dropped wholesale.
			if !s.selectionCurrent(sel.Version) {
				return nil
			}
			s.repo.SetClipped(cfg.ID, res.Features, &st, res.Degenerate)
			s.cache.Put(liveAreaID, cfg.ID, sel.Version, &st)
			return nil
		})
	}
	return g.Wait()
}

func (s *State) selectionCurrent(version uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection != nil && s.selection.Version == version
}

func (s *State) workers() int {
	if s.cfg.Clip.Workers > 0 {
		return s.cfg.Clip.Workers
	}
	return 4
}

// CategoryStats aggregates the live selection's per-category counts and
// densities.
func (s *State) CategoryStats() []model.CategoryMetrics {
	s.mu.RLock()
	var areaKm2 float64
	if s.selection != nil {
		areaKm2 = s.selection.AreaM2 / 1e6
	}
	s.mu.RUnlock()
	// ActiveSet copies under the lock; the aggregation reads the map with no
	// lock held, so it must never see the live one.
	return stats.AggregateCategories(s.categories, s.repo, s.ActiveSet(), areaKm2)
}

// AddArea pins the current selection as a named comparison area, snapshots
// the live layer data into it, and persists it when a store is attached.
func (s *State) AddArea(ctx context.Context, name string) (*model.ComparisonArea, error) {
	sel := s.Selection()
	if sel == nil {
		return nil, ErrNoSelection
	}

	area, err := s.manager.Add(name, sel.Polygon)
	if err != nil {
		return nil, err
	}

	snapshot := s.repo.Snapshot()
	if err := s.manager.SetLayerData(area.ID, snapshot); err != nil {
		return nil, err
	}
	area.Layers = snapshot

	if err := s.persistArea(ctx, area); err != nil {
		return nil, err
	}
	s.log.Info("area added", zap.String("area", area.ID), zap.String("name", name))
	return area, nil
}

// RemoveArea deletes an area from the set, the cache, and the store.
func (s *State) RemoveArea(ctx context.Context, id string) error {
	if err := s.manager.Remove(id); err != nil {
		return err
	}
	s.cache.DropArea(id)
	if st := s.currentStore(); st != nil {
		if err := st.DeleteArea(ctx, id); err != nil && !eris.Is(err, store.ErrNotFound) {
			return err
		}
		return st.SaveOrder(ctx, s.manager.ManualOrder())
	}
	return nil
}

// RenameArea renames an area. Names need not be unique.
func (s *State) RenameArea(ctx context.Context, id, name string) error {
	if err := s.manager.Rename(id, name); err != nil {
		return err
	}
	if st := s.currentStore(); st != nil {
		area, err := s.manager.Get(id)
		if err != nil {
			return err
		}
		return st.SaveArea(ctx, area)
	}
	return nil
}

// ReorderArea moves an area one step in the manual order.
func (s *State) ReorderArea(ctx context.Context, id string, dir compare.Direction) error {
	if err := s.manager.ReorderManual(id, dir); err != nil {
		return err
	}
	if st := s.currentStore(); st != nil {
		return st.SaveOrder(ctx, s.manager.ManualOrder())
	}
	return nil
}

// SortAreas returns the areas under the given strategy without touching the
// manual order.
func (s *State) SortAreas(strategy compare.SortStrategy) []*model.ComparisonArea {
	return s.manager.SortBy(strategy)
}

// Areas returns all areas in manual order.
func (s *State) Areas() []*model.ComparisonArea {
	return s.manager.SortBy(compare.SortManual)
}

// Matrix builds the comparison matrix over the given display order.
func (s *State) Matrix(displayed []*model.ComparisonArea) []compare.Group {
	return s.manager.Matrix(s.ActiveLayers(), displayed)
}

// Quality scores data completeness over the pinned areas, or over the live
// layer data when no areas exist yet.
func (s *State) Quality() model.DataQuality {
	areas := s.manager.List()
	if len(areas) == 0 {
		areas = []*model.ComparisonArea{{Layers: s.repo.Snapshot()}}
	}
	return quality.Score(areas, s.categories, s.ActiveSet())
}

// DerivedMetrics computes the composite indices for one pinned area, or for
// the live selection when id is empty.
func (s *State) DerivedMetrics(id string) (model.DerivedMetrics, error) {
	weights := s.cfg.Metrics.AccessibilityWeights
	if len(weights) == 0 {
		weights = metrics.DefaultAccessibilityWeights()
	}
	tol := s.cfg.Metrics.IntersectionToleranceM

	if id == "" {
		sel := s.Selection()
		if sel == nil {
			return model.DerivedMetrics{}, ErrNoSelection
		}
		return metrics.Compute(
			s.repo.ClippedOrRaw("buildings"),
			s.roadCollection(s.repo.Snapshot()),
			s.CategoryStats(),
			sel.AreaM2/1e6, tol, weights,
		), nil
	}

	area, err := s.manager.Get(id)
	if err != nil {
		return model.DerivedMetrics{}, err
	}
	areaKm2 := area.AreaM2 / 1e6
	cats := s.areaCategoryMetrics(area, areaKm2)
	return metrics.Compute(
		layerCollection(area.Layers, "buildings"),
		s.roadCollection(area.Layers),
		cats,
		areaKm2, tol, weights,
	), nil
}

// RestoreAreas loads persisted areas and their feature snapshots from the
// attached store.
func (s *State) RestoreAreas(ctx context.Context) error {
	st := s.currentStore()
	if st == nil {
		return nil
	}
	areas, err := st.ListAreas(ctx)
	if err != nil {
		return err
	}

	for _, area := range areas {
		features, err := st.LoadLayerFeatures(ctx, area.ID)
		if err != nil {
			return err
		}
		if len(features) > 0 {
			area.Layers = make(map[string]*model.LayerData, len(features))
			for layerID, fc := range features {
				ld := &model.LayerData{Clipped: fc}
				if cfg, ok := s.layerConfig(layerID); ok {
					lstats := stats.Compute(cfg, fc, area.AreaM2)
					ld.Stats = &lstats
				}
				area.Layers[layerID] = ld
			}
		}
		if err := s.manager.Restore(area); err != nil {
			return err
		}
	}
	s.log.Info("areas restored", zap.Int("count", len(areas)))
	return nil
}

// persistArea saves the area, its manual-order position, and its clipped
// feature snapshots.
func (s *State) persistArea(ctx context.Context, area *model.ComparisonArea) error {
	st := s.currentStore()
	if st == nil {
		return nil
	}
	if err := st.SaveArea(ctx, area); err != nil {
		return err
	}
	for layerID, ld := range area.Layers {
		if ld == nil || ld.Clipped == nil {
			continue
		}
		if err := st.SaveLayerFeatures(ctx, area.ID, layerID, ld.Clipped); err != nil {
			return err
		}
	}
	return st.SaveOrder(ctx, s.manager.ManualOrder())
}

func (s *State) currentStore() store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

func (s *State) layerConfig(id string) (model.LayerConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.manifest[id]
	return cfg, ok
}

// areaCategoryMetrics rebuilds category metrics from a pinned area's own
// layer snapshots.
func (s *State) areaCategoryMetrics(area *model.ComparisonArea, areaKm2 float64) []model.CategoryMetrics {
	counts := stats.CategoryCounts(s.categories, area.Layers)
	out := make([]model.CategoryMetrics, 0, len(counts))
	for _, cat := range s.categories {
		m := model.CategoryMetrics{Category: cat.ID, Count: counts[cat.ID]}
		if areaKm2 > 0 {
			m.Density = float64(m.Count) / areaKm2
		}
		out = append(out, m)
	}
	return out
}

// roadCollection merges all line layers in the traffic group for the
// intersection-density estimate.
func (s *State) roadCollection(layers map[string]*model.LayerData) *geojson.FeatureCollection {
	var ids []string
	s.mu.RLock()
	for id, cfg := range s.manifest {
		if cfg.Group == model.GroupTraffic && cfg.GeometryType == model.GeometryLine {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	merged := geojson.NewFeatureCollection()
	for _, id := range ids {
		if fc := layerCollection(layers, id); fc != nil {
			merged.Features = append(merged.Features, fc.Features...)
		}
	}
	if len(merged.Features) == 0 {
		return nil
	}
	return merged
}

func layerCollection(layers map[string]*model.LayerData, id string) *geojson.FeatureCollection {
	ld, ok := layers[id]
	if !ok || ld == nil {
		return nil
	}
	if ld.Clipped != nil {
		return ld.Clipped
	}
	return ld.Features
}
