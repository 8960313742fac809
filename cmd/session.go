package main

import (
	"context"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/areascope/areascope/internal/app"
	"github.com/areascope/areascope/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "areascope.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initSession validates config for the given mode, opens the store, and
// rebuilds the saved comparison areas. The caller owns the returned store.
func initSession(ctx context.Context, mode string) (*app.State, store.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}

	state := app.New(cfg)
	state.SetStore(st)
	if err := state.RestoreAreas(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}
	return state, st, nil
}

// loadSelectionPolygon reads a selection polygon from a GeoJSON file. The
// file may hold a bare geometry, a feature, or a single-feature collection.
func loadSelectionPolygon(path string) (orb.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read selection file")
	}

	if g, err := geojson.UnmarshalGeometry(data); err == nil {
		if poly, ok := g.Geometry().(orb.Polygon); ok {
			return poly, nil
		}
		return nil, eris.Errorf("selection geometry is %s, want Polygon", g.Type)
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil {
		if poly, ok := f.Geometry.(orb.Polygon); ok {
			return poly, nil
		}
		return nil, eris.New("selection feature is not a polygon")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrap(err, "parse selection file")
	}
	for _, f := range fc.Features {
		if poly, ok := f.Geometry.(orb.Polygon); ok {
			return poly, nil
		}
	}
	return nil, eris.New("selection file contains no polygon feature")
}
