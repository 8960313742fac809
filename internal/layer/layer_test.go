package layer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areascope/areascope/internal/model"
)

func TestDefaultManifest_Consistent(t *testing.T) {
	manifest := DefaultManifest()
	require.NotEmpty(t, manifest)

	for id, cfg := range manifest {
		assert.Equal(t, id, cfg.ID, "map key must match config id")
		assert.NotEmpty(t, cfg.Name)
		assert.NotEmpty(t, cfg.Group)
		assert.False(t, cfg.IsCustom)

		switch cfg.GeometryType {
		case model.GeometryPoint:
			assert.True(t, cfg.Recipe.Count && cfg.Recipe.Density, "point layer %s", id)
			assert.False(t, cfg.Recipe.Length || cfg.Recipe.Area, "point layer %s", id)
		case model.GeometryLine:
			assert.True(t, cfg.Recipe.Length, "line layer %s", id)
			assert.False(t, cfg.Recipe.Area || cfg.Recipe.AreaShare, "line layer %s", id)
		case model.GeometryPolygon:
			assert.True(t, cfg.Recipe.Area && cfg.Recipe.AreaShare, "polygon layer %s", id)
			assert.False(t, cfg.Recipe.Length, "polygon layer %s", id)
		default:
			t.Fatalf("layer %s has unknown geometry type %q", id, cfg.GeometryType)
		}
	}
}

func TestDefaultCategories_ReferenceKnownLayers(t *testing.T) {
	manifest := DefaultManifest()
	for _, cat := range DefaultCategories() {
		assert.NotEmpty(t, cat.LayerIDs, "category %s", cat.ID)
		assert.Positive(t, cat.ExpectedMin, "category %s", cat.ID)
		for _, layerID := range cat.LayerIDs {
			_, ok := manifest[layerID]
			assert.True(t, ok, "category %s references unknown layer %s", cat.ID, layerID)
		}
	}
}

func TestCategoryByID(t *testing.T) {
	cats := DefaultCategories()
	c, ok := CategoryByID(cats, "food")
	require.True(t, ok)
	assert.Equal(t, "Food & Drink", c.Name)

	_, ok = CategoryByID(cats, "nope")
	assert.False(t, ok)
}

func TestManifestIDs_Sorted(t *testing.T) {
	ids := ManifestIDs(DefaultManifest())
	require.NotEmpty(t, ids)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}

func TestRepository_GetAbsentMeansNotComputed(t *testing.T) {
	repo := NewRepository()
	_, ok := repo.Get("roads")
	assert.False(t, ok)
	assert.Nil(t, repo.ClippedOrRaw("roads"))
}

func TestRepository_ClippedOrRaw(t *testing.T) {
	repo := NewRepository()

	raw := geojson.NewFeatureCollection()
	raw.Append(geojson.NewFeature(orb.Point{1, 2}))
	repo.SetFeatures("shops", raw)
	assert.Same(t, raw, repo.ClippedOrRaw("shops"))

	clipped := geojson.NewFeatureCollection()
	repo.SetClipped("shops", clipped, &model.LayerStats{Count: model.IntPtr(0)}, 0)
	assert.Same(t, clipped, repo.ClippedOrRaw("shops"), "clipped is authoritative")

	ld, ok := repo.Get("shops")
	require.True(t, ok)
	assert.Same(t, raw, ld.Features)
	require.NotNil(t, ld.Stats)
}

func TestRepository_SetFeaturesResetsClipped(t *testing.T) {
	repo := NewRepository()
	repo.SetFeatures("shops", geojson.NewFeatureCollection())
	repo.SetClipped("shops", geojson.NewFeatureCollection(), &model.LayerStats{}, 0)

	fresh := geojson.NewFeatureCollection()
	repo.SetFeatures("shops", fresh)

	ld, _ := repo.Get("shops")
	assert.Nil(t, ld.Clipped, "new raw data invalidates old clip")
	assert.Nil(t, ld.Stats)
}

func TestRepository_SetClippedWithoutRawIsNoop(t *testing.T) {
	repo := NewRepository()
	repo.SetClipped("ghost", geojson.NewFeatureCollection(), &model.LayerStats{}, 0)
	_, ok := repo.Get("ghost")
	assert.False(t, ok)
}

func TestRepository_SnapshotIsolated(t *testing.T) {
	repo := NewRepository()
	repo.SetFeatures("parks", geojson.NewFeatureCollection())

	snap := repo.Snapshot()
	repo.SetClipped("parks", geojson.NewFeatureCollection(), &model.LayerStats{}, 0)

	assert.Nil(t, snap["parks"].Clipped, "snapshot must not see later mutations")
}

func TestLoadGeoJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shops.geojson")
	payload := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[13.4,52.5]},"properties":{"name":"Kiosk"}}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	fc, err := LoadGeoJSON(path)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Kiosk", fc.Features[0].Properties["name"])
}

func TestLoadGeoJSON_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.geojson")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadGeoJSON(path)
	assert.Error(t, err)
}

func TestLoadDirectory_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := `{"type":"FeatureCollection","features":[]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parks.geojson"), []byte(good), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.geojson"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o644))

	layers, err := LoadDirectory(dir)
	require.NoError(t, err)
	assert.Len(t, layers, 1)
	assert.Contains(t, layers, "parks")
}

func TestInferGeometryType(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}}))
	fc.Append(geojson.NewFeature(orb.LineString{{0, 0}, {2, 2}}))
	fc.Append(geojson.NewFeature(orb.Point{0, 0}))
	assert.Equal(t, model.GeometryLine, InferGeometryType(fc))

	assert.Equal(t, model.GeometryPoint, InferGeometryType(geojson.NewFeatureCollection()))
}

func TestNewCustomLayer(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}))

	cfg := NewCustomLayer("my-upload", "My Upload", fc)
	assert.True(t, cfg.IsCustom)
	assert.Equal(t, model.GeometryPolygon, cfg.GeometryType)
	assert.True(t, cfg.Recipe.AreaShare)
}
