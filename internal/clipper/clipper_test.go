package clipper

import (
	"fmt"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areascope/areascope/internal/geometry"
)

func selection() orb.Polygon {
	return orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
}

func pointFeature(lon, lat float64) *geojson.Feature {
	return geojson.NewFeature(orb.Point{lon, lat})
}

func TestClip_Points(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(pointFeature(0.5, 0.5))  // inside
	fc.Append(pointFeature(2, 2))      // outside
	fc.Append(pointFeature(0, 0.5))    // on boundary, counts as inside
	fc.Append(pointFeature(0.25, 0.9)) // inside

	res := Clip(fc, selection())
	require.Len(t, res.Features.Features, 3)
	assert.Equal(t, 1, res.Dropped)
	assert.Zero(t, res.Degenerate)
}

func TestClip_PreservesInputOrder(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	for i := 0; i < 5; i++ {
		f := pointFeature(0.1+float64(i)*0.1, 0.5)
		f.Properties["seq"] = i
		fc.Append(f)
	}
	res := Clip(fc, selection())
	for i, f := range res.Features.Features {
		assert.Equal(t, i, f.Properties["seq"])
	}
}

func TestClip_Lines(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	inside := geojson.NewFeature(orb.LineString{{0.2, 0.2}, {0.8, 0.8}})
	crossing := geojson.NewFeature(orb.LineString{{-0.5, 0.5}, {0.5, 0.5}})
	// Both endpoints outside but the segment passes through the selection.
	spanning := geojson.NewFeature(orb.LineString{{-0.5, 0.5}, {1.5, 0.5}})
	outside := geojson.NewFeature(orb.LineString{{2, 2}, {3, 3}})
	fc.Append(inside)
	fc.Append(crossing)
	fc.Append(spanning)
	fc.Append(outside)

	res := Clip(fc, selection())
	require.Len(t, res.Features.Features, 3)
	// Lines are kept whole, not cut at the boundary.
	assert.Equal(t, crossing.Geometry, res.Features.Features[1].Geometry)
}

func TestClip_PolygonCutAtBoundary(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	straddling := geojson.NewFeature(orb.Polygon{{{0.5, 0}, {1.5, 0}, {1.5, 1}, {0.5, 1}, {0.5, 0}}})
	straddling.Properties["name"] = "straddler"
	fc.Append(straddling)

	res := Clip(fc, selection())
	require.Len(t, res.Features.Features, 1)

	got := res.Features.Features[0]
	assert.Equal(t, "straddler", got.Properties["name"])

	half := geometry.PolygonArea(straddling.Geometry.(orb.Polygon)) / 2
	assert.InDelta(t, half, geometry.Area(got.Geometry), half*1e-6)
}

func TestClip_PolygonFullyInsideKeptUnchanged(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	inner := geojson.NewFeature(orb.Polygon{{{0.2, 0.2}, {0.4, 0.2}, {0.4, 0.4}, {0.2, 0.4}, {0.2, 0.2}}})
	fc.Append(inner)

	res := Clip(fc, selection())
	require.Len(t, res.Features.Features, 1)
	assert.Same(t, inner, res.Features.Features[0])
}

func TestClip_PolygonOutsideDropped(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Polygon{{{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5}}}))

	res := Clip(fc, selection())
	assert.Empty(t, res.Features.Features)
	assert.Equal(t, 1, res.Dropped)
}

func TestClip_Idempotent(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(pointFeature(0.5, 0.5))
	fc.Append(geojson.NewFeature(orb.LineString{{-0.5, 0.5}, {0.5, 0.5}}))
	fc.Append(geojson.NewFeature(orb.Polygon{{{0.5, 0}, {1.5, 0}, {1.5, 1}, {0.5, 1}, {0.5, 0}}}))

	sel := selection()
	once := Clip(fc, sel)
	twice := Clip(once.Features, sel)

	require.Equal(t, len(once.Features.Features), len(twice.Features.Features))
	for i := range once.Features.Features {
		a := geometry.Area(once.Features.Features[i].Geometry)
		b := geometry.Area(twice.Features.Features[i].Geometry)
		assert.InDelta(t, a, b, math.Max(a*1e-9, 1e-9))
	}
}

func TestClip_DegenerateFeaturesCounted(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(pointFeature(0.5, 0.5))
	fc.Append(geojson.NewFeature(orb.Point{math.NaN(), 0.5}))
	fc.Append(&geojson.Feature{}) // nil geometry

	res := Clip(fc, selection())
	require.Len(t, res.Features.Features, 1)
	assert.Equal(t, 2, res.Degenerate)
}

func TestClip_DegenerateSelection(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(pointFeature(0.5, 0.5))

	res := Clip(fc, orb.Polygon{{{0, 0}, {1, 1}}})
	assert.Empty(t, res.Features.Features)
}

func TestClip_NilCollection(t *testing.T) {
	res := Clip(nil, selection())
	require.NotNil(t, res.Features)
	assert.Empty(t, res.Features.Features)
}

func TestClip_LargeCollectionUsesPrefilter(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	inside := 0
	for i := 0; i < indexThreshold+100; i++ {
		lon := float64(i%40)*0.1 - 2 // spread from -2 to 2
		f := pointFeature(lon, 0.5)
		f.Properties["i"] = i
		fc.Append(f)
		if lon >= 0 && lon <= 1 {
			inside++
		}
	}

	res := Clip(fc, selection())
	assert.Len(t, res.Features.Features, inside)
	// Order still stable under the prefilter.
	prev := -1
	for _, f := range res.Features.Features {
		i := f.Properties["i"].(int)
		assert.Greater(t, i, prev)
		prev = i
	}
}

func TestClip_MultiPolygonPartial(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	mp := orb.MultiPolygon{
		{{{0.2, 0.2}, {0.4, 0.2}, {0.4, 0.4}, {0.2, 0.4}, {0.2, 0.2}}}, // inside
		{{{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5}}},                     // outside
	}
	fc.Append(geojson.NewFeature(mp))

	res := Clip(fc, selection())
	require.Len(t, res.Features.Features, 1)
	got, ok := res.Features.Features[0].Geometry.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func ExampleClip() {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{0.5, 0.5}))
	fc.Append(geojson.NewFeature(orb.Point{3, 3}))

	res := Clip(fc, orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}})
	fmt.Println(len(res.Features.Features), res.Dropped)
	// Output: 1 1
}
