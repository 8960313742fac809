// Package stats computes per-layer statistics from clipped features and
// aggregates them into semantic category metrics.
package stats

import (
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/areascope/areascope/internal/geometry"
	"github.com/areascope/areascope/internal/model"
)

// shareSlack tolerates floating-point noise before an area share is flagged
// as a clip inconsistency.
const shareSlack = 100.0 + 1e-6

// Compute derives a layer's statistics from its clipped collection and the
// selection area. Only measures declared by the layer's recipe are set.
// A zero selection area yields zero densities and shares, never NaN.
func Compute(cfg model.LayerConfig, clipped *geojson.FeatureCollection, selectionAreaM2 float64) model.LayerStats {
	var out model.LayerStats
	var count int
	if clipped != nil {
		count = len(clipped.Features)
	}

	if cfg.Recipe.Count {
		out.Count = model.IntPtr(count)
	}
	if cfg.Recipe.Density {
		density := 0.0
		if selectionAreaM2 > 0 {
			density = float64(count) / (selectionAreaM2 / 1e6)
		}
		out.Density = model.FloatPtr(density)
	}
	if cfg.Recipe.Length {
		var total float64
		if clipped != nil {
			for _, f := range clipped.Features {
				if f != nil && f.Geometry != nil {
					total += geometry.Length(f.Geometry)
				}
			}
		}
		out.TotalLength = model.FloatPtr(total)
	}
	if cfg.Recipe.Area || cfg.Recipe.AreaShare {
		var total float64
		if clipped != nil {
			for _, f := range clipped.Features {
				if f != nil && f.Geometry != nil {
					total += geometry.Area(f.Geometry)
				}
			}
		}
		if cfg.Recipe.Area {
			out.TotalArea = model.FloatPtr(total)
		}
		if cfg.Recipe.AreaShare {
			share := 0.0
			if selectionAreaM2 > 0 {
				share = 100 * total / selectionAreaM2
			}
			// Stored unclamped; a share persistently above 100 is a clip
			// failure signal, not a user error.
			if share > shareSlack {
				zap.L().Warn("layer area exceeds selection area",
					zap.String("layer", cfg.ID),
					zap.Float64("area_share", share))
			}
			out.AreaShare = model.FloatPtr(share)
		}
	}
	return out
}
