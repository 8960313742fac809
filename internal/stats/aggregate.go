package stats

import (
	"github.com/areascope/areascope/internal/layer"
	"github.com/areascope/areascope/internal/model"
)

// AggregateCategories sums feature counts per semantic category across the
// category's member layers, preferring clipped data over raw. Every tracked
// category appears in the output even with zero active member layers, so
// "no data" stays distinguishable from "category not tracked". active maps
// layer id to whether the layer is currently enabled.
func AggregateCategories(cats []layer.Category, repo *layer.Repository, active map[string]bool, areaKm2 float64) []model.CategoryMetrics {
	out := make([]model.CategoryMetrics, 0, len(cats))
	for _, cat := range cats {
		m := model.CategoryMetrics{Category: cat.ID}
		for _, layerID := range cat.LayerIDs {
			if !active[layerID] {
				continue
			}
			m.ActiveLayers++
			if fc := repo.ClippedOrRaw(layerID); fc != nil {
				m.Count += len(fc.Features)
			}
		}
		if areaKm2 > 0 {
			m.Density = float64(m.Count) / areaKm2
		}
		out = append(out, m)
	}
	return out
}

// CategoryCounts folds a pinned area's layer data into per-category counts,
// used when scoring saved comparison areas whose data lives outside the
// live repository.
func CategoryCounts(cats []layer.Category, layers map[string]*model.LayerData) map[string]int {
	out := make(map[string]int, len(cats))
	for _, cat := range cats {
		total := 0
		for _, layerID := range cat.LayerIDs {
			ld, ok := layers[layerID]
			if !ok {
				continue
			}
			if ld.Clipped != nil {
				total += len(ld.Clipped.Features)
			} else if ld.Features != nil {
				total += len(ld.Features.Features)
			}
		}
		out[cat.ID] = total
	}
	return out
}
