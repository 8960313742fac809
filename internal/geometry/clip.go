package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// IntersectPolygon computes the intersection of subject with sel via
// Sutherland–Hodgman clipping against each edge of sel's outer ring.
// Subject holes are clipped the same way; sel holes are carved out of the
// result. Returns an empty polygon when the intersection has no interior.
//
// Sutherland–Hodgman is exact for convex selections; strongly concave
// selections can leave zero-width bridges between lobes, which measure zero
// area and do not affect statistics.
func IntersectPolygon(subject, sel orb.Polygon) orb.Polygon {
	if PolygonDegenerate(subject) || PolygonDegenerate(sel) {
		return nil
	}

	outer := clipRing(subject[0], sel[0])
	if RingDegenerate(outer) {
		return nil
	}

	result := orb.Polygon{closeRing(outer)}
	for _, hole := range subject[1:] {
		clipped := clipRing(hole, sel[0])
		if !RingDegenerate(clipped) {
			result = append(result, closeRing(clipped))
		}
	}
	// A selection hole removes its overlap with the subject.
	for _, selHole := range sel[1:] {
		carved := clipRing(selHole, subject[0])
		if !RingDegenerate(carved) {
			result = append(result, closeRing(carved))
		}
	}
	return result
}

// IntersectMultiPolygon clips every sub-polygon of subject against sel and
// collects the non-empty intersections.
func IntersectMultiPolygon(subject orb.MultiPolygon, sel orb.Polygon) orb.MultiPolygon {
	var out orb.MultiPolygon
	for _, poly := range subject {
		if inter := IntersectPolygon(poly, sel); inter != nil {
			out = append(out, inter)
		}
	}
	return out
}

// clipRing clips subject against each edge of clip using the
// Sutherland–Hodgman algorithm. Both rings may be open or closed; the
// result is open.
func clipRing(subject, clip orb.Ring) orb.Ring {
	input := openRing(subject)
	edges := openRing(clip)
	if planarSignedArea(edges) < 0 {
		edges = reverseRing(edges)
	}

	output := input
	n := len(edges)
	for i := 0; i < n && len(output) > 0; i++ {
		a, b := edges[i], edges[(i+1)%n]
		input = output
		output = nil
		m := len(input)
		for j := 0; j < m; j++ {
			cur, prev := input[j], input[(j+m-1)%m]
			curIn := insideEdge(cur, a, b)
			prevIn := insideEdge(prev, a, b)
			switch {
			case curIn && prevIn:
				output = append(output, cur)
			case curIn && !prevIn:
				output = append(output, lineIntersection(prev, cur, a, b), cur)
			case !curIn && prevIn:
				output = append(output, lineIntersection(prev, cur, a, b))
			}
		}
	}
	return output
}

// LineCrossesPolygon reports whether any segment of ls intersects any ring
// edge of poly.
func LineCrossesPolygon(ls orb.LineString, poly orb.Polygon) bool {
	for i := 1; i < len(ls); i++ {
		for _, ring := range poly {
			n := len(ring)
			for j, k := 0, n-1; j < n; k, j = j, j+1 {
				if segmentsIntersect(ls[i-1], ls[i], ring[k], ring[j]) {
					return true
				}
			}
		}
	}
	return false
}

// insideEdge reports whether p lies on or to the left of the directed edge
// a→b. Left-of for a counter-clockwise ring means inside.
func insideEdge(p, a, b orb.Point) bool {
	return (b[0]-a[0])*(p[1]-a[1])-(b[1]-a[1])*(p[0]-a[0]) >= -segEps
}

// lineIntersection returns the intersection of the infinite lines p1-p2 and
// a-b. Callers only invoke it when the segments straddle the clip edge, so
// the denominator is nonzero up to floating-point noise.
func lineIntersection(p1, p2, a, b orb.Point) orb.Point {
	d1 := orb.Point{p2[0] - p1[0], p2[1] - p1[1]}
	d2 := orb.Point{b[0] - a[0], b[1] - a[1]}
	den := d1[0]*d2[1] - d1[1]*d2[0]
	if math.Abs(den) < segEps {
		return p2
	}
	t := ((a[0]-p1[0])*d2[1] - (a[1]-p1[1])*d2[0]) / den
	return orb.Point{p1[0] + t*d1[0], p1[1] + t*d1[1]}
}

// segmentsIntersect reports whether segments p1-p2 and q1-q2 intersect,
// including touching endpoints.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(p1, q1, q2)) ||
		(d2 == 0 && onSegment(p2, q1, q2)) ||
		(d3 == 0 && onSegment(q1, p1, p2)) ||
		(d4 == 0 && onSegment(q2, p1, p2))
}

func orientation(a, b, c orb.Point) float64 {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	if math.Abs(v) < segEps {
		return 0
	}
	return v
}

// planarSignedArea is the planar shoelace area, used only for ring
// orientation. Positive means counter-clockwise.
func planarSignedArea(ring orb.Ring) float64 {
	var sum float64
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		sum += ring[j][0]*ring[i][1] - ring[i][0]*ring[j][1]
	}
	return sum / 2
}

func openRing(ring orb.Ring) orb.Ring {
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		return ring[:len(ring)-1]
	}
	return ring
}

func closeRing(ring orb.Ring) orb.Ring {
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		return append(ring, ring[0])
	}
	return ring
}

func reverseRing(ring orb.Ring) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}
