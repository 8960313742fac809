package store

import (
	"context"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/areascope/areascope/internal/model"
)

// ErrNotFound is returned when an area id has no row.
var ErrNotFound = eris.New("store: area not found")

// Store defines the persistence interface for comparison areas. Areas are
// saved without their per-layer data; feature snapshots are persisted
// separately so a restart can restore pinned statistics without refetching.
type Store interface {
	// Areas
	SaveArea(ctx context.Context, area *model.ComparisonArea) error
	GetArea(ctx context.Context, id string) (*model.ComparisonArea, error)
	ListAreas(ctx context.Context) ([]*model.ComparisonArea, error)
	DeleteArea(ctx context.Context, id string) error

	// Manual ordering. SaveOrder rewrites positions; ListAreas returns
	// areas in position order.
	SaveOrder(ctx context.Context, ids []string) error

	// Feature snapshots
	SaveLayerFeatures(ctx context.Context, areaID, layerID string, fc *geojson.FeatureCollection) error
	LoadLayerFeatures(ctx context.Context, areaID string) (map[string]*geojson.FeatureCollection, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
