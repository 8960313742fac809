// Package geometry implements the spherical geometry kernel: containment
// tests, geodesic area and length measurement, and polygon intersection for
// WGS84 coordinates. All functions are pure and reentrant.
package geometry

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// EarthRadius is the mean earth radius in meters used by all geodesic
// measurements. Must stay in sync with the interactive area readout so saved
// and redrawn areas agree to within floating-point tolerance.
const EarthRadius = 6371000.0

// Distance returns the great-circle distance between two lon/lat points in
// meters.
func Distance(a, b orb.Point) float64 {
	p1 := s2.PointFromLatLng(s2.LatLngFromDegrees(a[1], a[0]))
	p2 := s2.PointFromLatLng(s2.LatLngFromDegrees(b[1], b[0]))
	angle := s1.Angle(s2.ChordAngleBetweenPoints(p1, p2).Angle())
	return angle.Radians() * EarthRadius
}

// LineLength returns the length of a line string in meters, summed over
// great-circle segment distances.
func LineLength(ls orb.LineString) float64 {
	var total float64
	for i := 1; i < len(ls); i++ {
		total += Distance(ls[i-1], ls[i])
	}
	return total
}

// Length returns the geodesic length in meters of any line-bearing geometry.
// Non-line geometries measure 0.
func Length(g orb.Geometry) float64 {
	switch t := g.(type) {
	case orb.LineString:
		return LineLength(t)
	case orb.MultiLineString:
		var total float64
		for _, ls := range t {
			total += LineLength(ls)
		}
		return total
	default:
		return 0
	}
}

// ringArea returns the unsigned geodesic area of a ring in m² using the
// integrated-longitude formula Σ(λ2−λ1)(2+sin φ1+sin φ2)·R²/2. NaN
// coordinates propagate as NaN; callers filter degenerate rings first.
func ringArea(ring orb.Ring) float64 {
	if RingDegenerate(ring) {
		return 0
	}
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		p1, p2 := ring[i], ring[i+1]
		sum += rad(p2[0]-p1[0]) * (2 + math.Sin(rad(p1[1])) + math.Sin(rad(p2[1])))
	}
	// An unclosed ring still contributes its closing edge.
	if first, last := ring[0], ring[len(ring)-1]; first != last {
		sum += rad(first[0]-last[0]) * (2 + math.Sin(rad(last[1])) + math.Sin(rad(first[1])))
	}
	return math.Abs(sum * EarthRadius * EarthRadius / 2)
}

// PolygonArea returns the geodesic area of a polygon in m². Hole rings
// subtract from the outer ring; the result never goes below zero for valid
// input. Degenerate rings (fewer than three distinct vertices) measure 0.
func PolygonArea(poly orb.Polygon) float64 {
	if len(poly) == 0 {
		return 0
	}
	area := ringArea(poly[0])
	for _, hole := range poly[1:] {
		area -= ringArea(hole)
	}
	if area < 0 {
		return 0
	}
	return area
}

// MultiPolygonArea returns the summed geodesic area of all sub-polygons.
func MultiPolygonArea(mp orb.MultiPolygon) float64 {
	var total float64
	for _, poly := range mp {
		total += PolygonArea(poly)
	}
	return total
}

// Area returns the geodesic area in m² of any areal geometry. Non-areal
// geometries measure 0.
func Area(g orb.Geometry) float64 {
	switch t := g.(type) {
	case orb.Polygon:
		return PolygonArea(t)
	case orb.MultiPolygon:
		return MultiPolygonArea(t)
	default:
		return 0
	}
}

// PointInRing reports whether pt lies inside or on the boundary of ring,
// using an even-odd ray cast. Boundary points count as inside (closed
// polygon semantics) so clip boundaries are never double-excluded.
func PointInRing(pt orb.Point, ring orb.Ring) bool {
	if math.IsNaN(pt[0]) || math.IsNaN(pt[1]) || RingDegenerate(ring) {
		return false
	}
	n := len(ring)
	// Skip the duplicate closing vertex if present.
	if ring[0] == ring[n-1] {
		n--
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[j], ring[i]
		if onSegment(pt, a, b) {
			return true
		}
		if (a[1] > pt[1]) != (b[1] > pt[1]) {
			x := a[0] + (pt[1]-a[1])/(b[1]-a[1])*(b[0]-a[0])
			if pt[0] < x {
				inside = !inside
			}
		}
	}
	return inside
}

// PointInPolygon reports whether pt lies inside poly. Points strictly inside
// a hole are outside; points on any ring boundary are inside.
func PointInPolygon(pt orb.Point, poly orb.Polygon) bool {
	if len(poly) == 0 || !PointInRing(pt, poly[0]) {
		return false
	}
	for _, hole := range poly[1:] {
		if RingDegenerate(hole) {
			continue
		}
		if onRingBoundary(pt, hole) {
			return true
		}
		if PointInRing(pt, hole) {
			return false
		}
	}
	return true
}

// PointInMultiPolygon reports whether pt lies inside any sub-polygon.
func PointInMultiPolygon(pt orb.Point, mp orb.MultiPolygon) bool {
	for _, poly := range mp {
		if PointInPolygon(pt, poly) {
			return true
		}
	}
	return false
}

// Centroid returns the arithmetic mean of a geometry's vertices. This is a
// fast labeling approximation, not an area-weighted centroid.
func Centroid(g orb.Geometry) orb.Point {
	sum := orb.Point{}
	var n int
	addPoint := func(p orb.Point) {
		sum[0] += p[0]
		sum[1] += p[1]
		n++
	}
	switch t := g.(type) {
	case orb.Point:
		addPoint(t)
	case orb.MultiPoint:
		for _, p := range t {
			addPoint(p)
		}
	case orb.LineString:
		for _, p := range t {
			addPoint(p)
		}
	case orb.MultiLineString:
		for _, ls := range t {
			for _, p := range ls {
				addPoint(p)
			}
		}
	case orb.Polygon:
		if len(t) > 0 {
			for _, p := range t[0] {
				addPoint(p)
			}
		}
	case orb.MultiPolygon:
		for _, poly := range t {
			if len(poly) > 0 {
				for _, p := range poly[0] {
					addPoint(p)
				}
			}
		}
	}
	if n == 0 {
		return orb.Point{}
	}
	return orb.Point{sum[0] / float64(n), sum[1] / float64(n)}
}

// BoundsOf returns the bounding box of a polygon.
func BoundsOf(poly orb.Polygon) orb.Bound {
	return poly.Bound()
}

// RingDegenerate reports whether a ring has fewer than three distinct
// vertices and therefore has no interior. NaN coordinates are not treated
// as degenerate here: they propagate through measurement as NaN and are
// filtered upstream via HasNaN.
func RingDegenerate(ring orb.Ring) bool {
	distinct := 0
	seenFirst := false
	var first, prev orb.Point
	for _, p := range ring {
		if !seenFirst {
			first, prev = p, p
			seenFirst = true
			distinct = 1
			continue
		}
		if p != prev && p != first {
			distinct++
		}
		prev = p
	}
	return distinct < 3
}

// PolygonDegenerate reports whether a polygon has no usable outer ring.
func PolygonDegenerate(poly orb.Polygon) bool {
	return len(poly) == 0 || RingDegenerate(poly[0])
}

// HasNaN reports whether any coordinate of the geometry is NaN. NaN
// coordinates must be filtered by callers, never silently zeroed.
func HasNaN(g orb.Geometry) bool {
	nan := false
	visitPoints(g, func(p orb.Point) {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			nan = true
		}
	})
	return nan
}

func visitPoints(g orb.Geometry, fn func(orb.Point)) {
	switch t := g.(type) {
	case orb.Point:
		fn(t)
	case orb.MultiPoint:
		for _, p := range t {
			fn(p)
		}
	case orb.LineString:
		for _, p := range t {
			fn(p)
		}
	case orb.MultiLineString:
		for _, ls := range t {
			for _, p := range ls {
				fn(p)
			}
		}
	case orb.Ring:
		for _, p := range t {
			fn(p)
		}
	case orb.Polygon:
		for _, ring := range t {
			for _, p := range ring {
				fn(p)
			}
		}
	case orb.MultiPolygon:
		for _, poly := range t {
			for _, ring := range poly {
				for _, p := range ring {
					fn(p)
				}
			}
		}
	}
}

func onRingBoundary(pt orb.Point, ring orb.Ring) bool {
	n := len(ring)
	if n < 2 {
		return false
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if onSegment(pt, ring[j], ring[i]) {
			return true
		}
	}
	return false
}

const segEps = 1e-12

// onSegment reports whether pt lies on the segment a-b within a small
// planar tolerance.
func onSegment(pt, a, b orb.Point) bool {
	cross := (b[0]-a[0])*(pt[1]-a[1]) - (b[1]-a[1])*(pt[0]-a[0])
	if math.Abs(cross) > segEps {
		return false
	}
	if pt[0] < math.Min(a[0], b[0])-segEps || pt[0] > math.Max(a[0], b[0])+segEps {
		return false
	}
	if pt[1] < math.Min(a[1], b[1])-segEps || pt[1] > math.Max(a[1], b[1])+segEps {
		return false
	}
	return true
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
