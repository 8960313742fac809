package model

import (
	"time"

	"github.com/paulmach/orb"
)

// RGBA is a display color assigned to a comparison area.
type RGBA struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Selection is the active area-of-interest polygon. Version increments on
// every polygon change; computations stamped with an older version are stale
// and must be discarded, never merged.
type Selection struct {
	Polygon orb.Polygon `json:"polygon"`
	AreaM2  float64     `json:"area_m2"`
	Version uint64      `json:"version"`
}

// ComparisonArea is a saved, named selection with its own per-layer data.
// Layers only contains entries for layers active at computation time;
// absence means "not computed", not "zero".
type ComparisonArea struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Color     RGBA                  `json:"color"`
	Polygon   orb.Polygon           `json:"polygon"`
	AreaM2    float64               `json:"area_m2"`
	Layers    map[string]*LayerData `json:"layers,omitempty"`
	CreatedAt time.Time             `json:"created_at"`

	// Seq is the creation sequence number, used for deterministic palette
	// assignment and as the tie-break in derived orderings.
	Seq int `json:"seq"`
}
