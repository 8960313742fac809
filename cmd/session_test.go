package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSelection(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "selection.geojson")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func square() orb.Polygon {
	return orb.Polygon{{{13.3, 52.5}, {13.31, 52.5}, {13.31, 52.51}, {13.3, 52.51}, {13.3, 52.5}}}
}

func TestLoadSelectionPolygon_Geometry(t *testing.T) {
	data, err := geojson.NewGeometry(square()).MarshalJSON()
	require.NoError(t, err)

	poly, err := loadSelectionPolygon(writeSelection(t, data))
	require.NoError(t, err)
	assert.Equal(t, square(), poly)
}

func TestLoadSelectionPolygon_Feature(t *testing.T) {
	data, err := geojson.NewFeature(square()).MarshalJSON()
	require.NoError(t, err)

	poly, err := loadSelectionPolygon(writeSelection(t, data))
	require.NoError(t, err)
	assert.Equal(t, square(), poly)
}

func TestLoadSelectionPolygon_FeatureCollection(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{13.3, 52.5}))
	fc.Append(geojson.NewFeature(square()))
	data, err := fc.MarshalJSON()
	require.NoError(t, err)

	poly, err := loadSelectionPolygon(writeSelection(t, data))
	require.NoError(t, err)
	assert.Equal(t, square(), poly)
}

func TestLoadSelectionPolygon_NoPolygon(t *testing.T) {
	data, err := geojson.NewGeometry(orb.Point{13.3, 52.5}).MarshalJSON()
	require.NoError(t, err)

	_, err = loadSelectionPolygon(writeSelection(t, data))
	assert.Error(t, err)
}

func TestLoadSelectionPolygon_MissingFile(t *testing.T) {
	_, err := loadSelectionPolygon(filepath.Join(t.TempDir(), "nope.geojson"))
	assert.Error(t, err)
}
