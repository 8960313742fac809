package model

import (
	"github.com/paulmach/orb/geojson"
)

// GeometryType classifies the geometry a layer carries.
type GeometryType string

const (
	GeometryPoint   GeometryType = "point"
	GeometryLine    GeometryType = "line"
	GeometryPolygon GeometryType = "polygon"
)

// LayerGroup is the semantic group a layer belongs to. Every layer belongs
// to exactly one group.
type LayerGroup string

const (
	GroupUsage          LayerGroup = "usage"
	GroupInfrastructure LayerGroup = "infrastructure"
	GroupAccess         LayerGroup = "access"
	GroupTraffic        LayerGroup = "traffic"
	GroupAmenities      LayerGroup = "amenities"
	GroupEnvironment    LayerGroup = "environment"
)

// StatsRecipe declares which measures apply to a layer. Measures not in the
// recipe are never computed for the layer.
type StatsRecipe struct {
	Count     bool `json:"count"`
	Density   bool `json:"density"`
	Length    bool `json:"length"`
	Area      bool `json:"area"`
	AreaShare bool `json:"area_share"`
}

// LayerConfig is the static manifest entry for one feature layer.
type LayerConfig struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Group        LayerGroup   `json:"group"`
	GeometryType GeometryType `json:"geometry_type"`
	Recipe       StatsRecipe  `json:"recipe"`
	Color        string       `json:"color,omitempty"`
	IsCustom     bool         `json:"is_custom,omitempty"`
}

// LayerStats holds the computed statistics for one layer inside one
// selection. Fields are nil when the layer's recipe does not declare the
// measure. AreaShare is stored unclamped so callers can detect clipping
// inconsistencies (persistent values above 100 indicate a clip failure).
type LayerStats struct {
	Count       *int     `json:"count,omitempty"`
	Density     *float64 `json:"density,omitempty"`
	TotalLength *float64 `json:"total_length,omitempty"`
	TotalArea   *float64 `json:"total_area,omitempty"`
	AreaShare   *float64 `json:"area_share,omitempty"`
}

// LayerData is the per-layer working set: the raw fetched features, the
// features clipped to the active selection, and the computed statistics.
// Clipped and Stats are nil until a selection exists.
type LayerData struct {
	Features   *geojson.FeatureCollection `json:"features,omitempty"`
	Clipped    *geojson.FeatureCollection `json:"clipped,omitempty"`
	Stats      *LayerStats                `json:"stats,omitempty"`
	Degenerate int                        `json:"degenerate,omitempty"`
}

// CategoryMetrics is the aggregate for one semantic category across its
// member layers. A tracked category with no data still appears with Count 0.
type CategoryMetrics struct {
	Category     string  `json:"category"`
	Count        int     `json:"count"`
	Density      float64 `json:"density"`
	ActiveLayers int     `json:"active_layers"`
}

// DerivedMetrics holds the composite urban-form indices for one area.
type DerivedMetrics struct {
	MixDiversity        float64 `json:"mix_diversity"`
	IntersectionDensity float64 `json:"intersection_density"`
	Accessibility       float64 `json:"accessibility"`
}

// IntPtr returns a pointer to v. Convenience for building LayerStats.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }
