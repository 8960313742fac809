package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// square returns a closed square ring from (lon,lat) with the given side in
// degrees.
func square(lon, lat, side float64) orb.Ring {
	return orb.Ring{
		{lon, lat},
		{lon + side, lat},
		{lon + side, lat + side},
		{lon, lat + side},
		{lon, lat},
	}
}

func TestDistance_OneHundredthDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111.19 km on a 6371 km sphere.
	d := Distance(orb.Point{13.4, 52.5}, orb.Point{13.4, 52.51})
	assert.InDelta(t, 1111.95, d, 1.0)
}

func TestDistance_SamePoint(t *testing.T) {
	assert.Zero(t, Distance(orb.Point{10, 50}, orb.Point{10, 50}))
}

func TestLineLength_SumsSegments(t *testing.T) {
	ls := orb.LineString{{13.4, 52.50}, {13.4, 52.51}, {13.4, 52.52}}
	assert.InDelta(t, 2223.9, LineLength(ls), 2.0)
}

func TestLength_MultiLineString(t *testing.T) {
	mls := orb.MultiLineString{
		{{13.4, 52.50}, {13.4, 52.51}},
		{{13.5, 52.50}, {13.5, 52.51}},
	}
	assert.InDelta(t, 2223.9, Length(mls), 2.0)
}

func TestLength_NonLineGeometryIsZero(t *testing.T) {
	assert.Zero(t, Length(orb.Point{1, 2}))
	assert.Zero(t, Length(orb.Polygon{square(0, 0, 1)}))
}

func TestPolygonArea_EquatorSquare(t *testing.T) {
	// 0.01° x 0.01° at the equator is ~1.2365 km².
	area := PolygonArea(orb.Polygon{square(0, 0, 0.01)})
	assert.InDelta(t, 1.2365e6, area, 1.5e3)
}

func TestPolygonArea_LatitudeShrinksArea(t *testing.T) {
	equator := PolygonArea(orb.Polygon{square(0, 0, 0.01)})
	berlin := PolygonArea(orb.Polygon{square(13.4, 52.5, 0.01)})
	// cos(52.5°) ≈ 0.609.
	assert.InDelta(t, 0.609, berlin/equator, 0.01)
}

func TestPolygonArea_HoleSubtracts(t *testing.T) {
	outer := square(0, 0, 0.1)
	hole := square(0.04, 0.04, 0.02)
	full := PolygonArea(orb.Polygon{outer})
	holed := PolygonArea(orb.Polygon{outer, hole})
	holeArea := PolygonArea(orb.Polygon{hole})
	assert.InDelta(t, full-holeArea, holed, full*1e-9)
}

func TestPolygonArea_WindingIndependent(t *testing.T) {
	cw := reverseRing(square(0, 0, 0.01))
	assert.InDelta(t,
		PolygonArea(orb.Polygon{square(0, 0, 0.01)}),
		PolygonArea(orb.Polygon{cw}),
		1e-6)
}

func TestPolygonArea_Degenerate(t *testing.T) {
	assert.Zero(t, PolygonArea(orb.Polygon{}))
	assert.Zero(t, PolygonArea(orb.Polygon{{{0, 0}, {1, 1}}}))
	assert.Zero(t, PolygonArea(orb.Polygon{{{0, 0}, {1, 1}, {0, 0}, {1, 1}}}))
}

func TestPolygonArea_NaNPropagates(t *testing.T) {
	ring := orb.Ring{{0, 0}, {1, 0}, {1, math.NaN()}, {0, 1}, {0, 0}}
	assert.True(t, math.IsNaN(PolygonArea(orb.Polygon{ring})))
}

func TestMultiPolygonArea_Sums(t *testing.T) {
	a := orb.Polygon{square(0, 0, 0.01)}
	b := orb.Polygon{square(1, 0, 0.01)}
	assert.InDelta(t,
		PolygonArea(a)+PolygonArea(b),
		MultiPolygonArea(orb.MultiPolygon{a, b}),
		1e-6)
}

func TestPointInRing(t *testing.T) {
	ring := square(0, 0, 1)
	tests := []struct {
		name string
		pt   orb.Point
		want bool
	}{
		{"center", orb.Point{0.5, 0.5}, true},
		{"outside", orb.Point{1.5, 0.5}, false},
		{"edge", orb.Point{0, 0.5}, true},
		{"vertex", orb.Point{0, 0}, true},
		{"just outside", orb.Point{-0.0001, 0.5}, false},
		{"nan", orb.Point{math.NaN(), 0.5}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PointInRing(tc.pt, ring))
		})
	}
}

func TestPointInRing_Degenerate(t *testing.T) {
	assert.False(t, PointInRing(orb.Point{0, 0}, orb.Ring{{0, 0}, {1, 1}}))
}

func TestPointInPolygon_Holes(t *testing.T) {
	poly := orb.Polygon{square(0, 0, 1), square(0.4, 0.4, 0.2)}

	assert.True(t, PointInPolygon(orb.Point{0.1, 0.1}, poly))
	assert.False(t, PointInPolygon(orb.Point{0.5, 0.5}, poly), "inside hole is outside")
	// Hole boundary still belongs to the polygon.
	assert.True(t, PointInPolygon(orb.Point{0.4, 0.5}, poly))
}

func TestPointInMultiPolygon(t *testing.T) {
	mp := orb.MultiPolygon{
		{square(0, 0, 1)},
		{square(2, 0, 1)},
	}
	assert.True(t, PointInMultiPolygon(orb.Point{2.5, 0.5}, mp))
	assert.False(t, PointInMultiPolygon(orb.Point{1.5, 0.5}, mp))
}

func TestCentroid(t *testing.T) {
	c := Centroid(orb.LineString{{0, 0}, {2, 0}, {2, 2}, {0, 2}})
	assert.Equal(t, orb.Point{1, 1}, c)

	c = Centroid(orb.Point{3, 4})
	assert.Equal(t, orb.Point{3, 4}, c)

	assert.Equal(t, orb.Point{}, Centroid(orb.Polygon{}))
}

func TestBoundsOf(t *testing.T) {
	b := BoundsOf(orb.Polygon{square(10, 20, 2)})
	assert.Equal(t, orb.Point{10, 20}, b.Min)
	assert.Equal(t, orb.Point{12, 22}, b.Max)
}

func TestHasNaN(t *testing.T) {
	require.False(t, HasNaN(orb.LineString{{0, 0}, {1, 1}}))
	require.True(t, HasNaN(orb.LineString{{0, 0}, {math.NaN(), 1}}))
	require.True(t, HasNaN(orb.MultiPolygon{{{{0, 0}, {1, math.NaN()}, {1, 1}, {0, 0}}}}))
}
