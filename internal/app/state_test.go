package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areascope/areascope/internal/compare"
	"github.com/areascope/areascope/internal/config"
	"github.com/areascope/areascope/internal/store"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Areas.Max = 8
	cfg.Clip.Workers = 2
	cfg.Metrics.IntersectionToleranceM = 10
	return cfg
}

func squareSelection(lon, lat, side float64) orb.Polygon {
	return orb.Polygon{{
		{lon, lat}, {lon + side, lat}, {lon + side, lat + side}, {lon, lat + side}, {lon, lat},
	}}
}

func pointCollection(pts ...orb.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, pt := range pts {
		fc.Append(geojson.NewFeature(pt))
	}
	return fc
}

func TestState_SetSelection_ClipsActiveLayers(t *testing.T) {
	s := New(testConfig())
	s.Repository().SetFeatures("restaurants", pointCollection(
		orb.Point{13.305, 52.505}, // inside
		orb.Point{13.305, 52.506}, // inside
		orb.Point{13.4, 52.5},     // outside
	))

	sel, err := s.SetSelection(context.Background(), squareSelection(13.3, 52.5, 0.01))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sel.Version)
	assert.Greater(t, sel.AreaM2, 0.0)

	ld, ok := s.Repository().Get("restaurants")
	require.True(t, ok)
	require.NotNil(t, ld.Clipped)
	assert.Len(t, ld.Clipped.Features, 2)
	require.NotNil(t, ld.Stats)
	assert.Equal(t, 2, *ld.Stats.Count)
}

func TestState_SetSelection_Degenerate(t *testing.T) {
	s := New(testConfig())
	_, err := s.SetSelection(context.Background(), orb.Polygon{{{0, 0}, {1, 1}}})
	assert.True(t, eris.Is(err, ErrDegenerateSelection))
	assert.Nil(t, s.Selection())
}

func TestState_SetSelection_VersionIncrements(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()

	first, err := s.SetSelection(ctx, squareSelection(13.3, 52.5, 0.01))
	require.NoError(t, err)
	second, err := s.SetSelection(ctx, squareSelection(13.4, 52.5, 0.01))
	require.NoError(t, err)
	assert.Equal(t, first.Version+1, second.Version)
}

func TestState_SetLayerActive_Unknown(t *testing.T) {
	s := New(testConfig())
	err := s.SetLayerActive("nope", true)
	assert.True(t, eris.Is(err, ErrUnknownLayer))
}

func TestState_InactiveLayerSkippedOnRecompute(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()
	s.Repository().SetFeatures("restaurants", pointCollection(orb.Point{13.305, 52.505}))
	require.NoError(t, s.SetLayerActive("restaurants", false))

	_, err := s.SetSelection(ctx, squareSelection(13.3, 52.5, 0.01))
	require.NoError(t, err)

	ld, _ := s.Repository().Get("restaurants")
	assert.Nil(t, ld.Clipped)
}

func TestState_AddArea_RequiresSelection(t *testing.T) {
	s := New(testConfig())
	_, err := s.AddArea(context.Background(), "Mitte")
	assert.True(t, eris.Is(err, ErrNoSelection))
}

func TestState_AddArea_PinsSnapshot(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()
	s.Repository().SetFeatures("restaurants", pointCollection(
		orb.Point{13.305, 52.505}, orb.Point{13.306, 52.505},
	))

	_, err := s.SetSelection(ctx, squareSelection(13.3, 52.5, 0.01))
	require.NoError(t, err)

	area, err := s.AddArea(ctx, "Mitte")
	require.NoError(t, err)
	require.Contains(t, area.Layers, "restaurants")
	pinned := area.Layers["restaurants"]
	require.NotNil(t, pinned.Stats)
	assert.Equal(t, 2, *pinned.Stats.Count)

	// A new selection elsewhere must not disturb the pinned snapshot.
	_, err = s.SetSelection(ctx, squareSelection(13.5, 52.5, 0.01))
	require.NoError(t, err)

	got, err := s.manager.Get(area.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, *got.Layers["restaurants"].Stats.Count)
}

func TestState_CategoryStats_ZeroWithoutSelection(t *testing.T) {
	s := New(testConfig())
	cats := s.CategoryStats()
	require.NotEmpty(t, cats)
	for _, c := range cats {
		assert.Zero(t, c.Density)
	}
}

func TestState_CategoryStats_ConcurrentWithLayerToggle(t *testing.T) {
	s := New(testConfig())
	s.Repository().SetFeatures("restaurants", pointCollection(orb.Point{13.305, 52.505}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			assert.NoError(t, s.SetLayerActive("restaurants", i%2 == 0))
		}
	}()

	// Must not race with the toggling writer under -race.
	for i := 0; i < 200; i++ {
		cats := s.CategoryStats()
		assert.NotEmpty(t, cats)
	}
	<-done
}

func TestState_DerivedMetrics_NoSelection(t *testing.T) {
	s := New(testConfig())
	_, err := s.DerivedMetrics("")
	assert.True(t, eris.Is(err, ErrNoSelection))
}

func TestState_DerivedMetrics_AreaNotFound(t *testing.T) {
	s := New(testConfig())
	_, err := s.DerivedMetrics("missing")
	assert.True(t, eris.Is(err, compare.ErrAreaNotFound))
}

func TestState_DerivedMetrics_LiveSelection(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()
	s.Repository().SetFeatures("restaurants", pointCollection(orb.Point{13.305, 52.505}))

	_, err := s.SetSelection(ctx, squareSelection(13.3, 52.5, 0.01))
	require.NoError(t, err)

	dm, err := s.DerivedMetrics("")
	require.NoError(t, err)
	assert.False(t, dm.Accessibility < 0)
	assert.GreaterOrEqual(t, dm.MixDiversity, 0.0)
	assert.LessOrEqual(t, dm.MixDiversity, 1.0)
}

func TestState_Quality_UsesLiveDataWithoutAreas(t *testing.T) {
	s := New(testConfig())
	s.Repository().SetFeatures("parks", pointCollection(orb.Point{13.3, 52.5}))

	dq := s.Quality()
	assert.NotEmpty(t, dq.CategoryScores)
}

func TestState_PersistAndRestoreAreas(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "areas.db")

	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))

	s := New(testConfig())
	s.SetStore(st)
	s.Repository().SetFeatures("restaurants", pointCollection(
		orb.Point{13.305, 52.505}, orb.Point{13.306, 52.505},
	))

	_, err = s.SetSelection(ctx, squareSelection(13.3, 52.5, 0.01))
	require.NoError(t, err)
	area, err := s.AddArea(ctx, "Mitte")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Fresh process: restore from disk.
	st2, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st2.Close() })

	s2 := New(testConfig())
	s2.SetStore(st2)
	require.NoError(t, s2.RestoreAreas(ctx))

	got, err := s2.manager.Get(area.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mitte", got.Name)
	assert.Equal(t, area.Color, got.Color)
	require.Contains(t, got.Layers, "restaurants")
	assert.Equal(t, 2, *got.Layers["restaurants"].Stats.Count)
}

func TestState_RemoveArea_Persisted(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "areas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	s := New(testConfig())
	s.SetStore(st)
	_, err = s.SetSelection(ctx, squareSelection(13.3, 52.5, 0.01))
	require.NoError(t, err)
	area, err := s.AddArea(ctx, "Mitte")
	require.NoError(t, err)

	require.NoError(t, s.RemoveArea(ctx, area.ID))
	_, err = st.GetArea(ctx, area.ID)
	assert.True(t, eris.Is(err, store.ErrNotFound))
}
