// Package clipper restricts feature collections to a selection polygon.
// Points are filtered by containment, lines are kept whole when they touch
// the selection, and polygons are geometrically cut at the boundary.
package clipper

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/areascope/areascope/internal/geometry"
)

// indexThreshold is the collection size above which an R-tree bounding-box
// prefilter pays for itself.
const indexThreshold = 512

// Result is the outcome of clipping one feature collection.
type Result struct {
	// Features holds the clipped collection in input order.
	Features *geojson.FeatureCollection
	// Dropped counts features excluded because they fall outside the
	// selection.
	Dropped int
	// Degenerate counts features excluded because their geometry is
	// unusable (NaN coordinates, rings without an interior). Tracked for
	// diagnostics, never fatal.
	Degenerate int
}

// Clip returns the subset of fc inside sel, in input order. Polygon features
// partially overlapping the selection are cut at the boundary; line features
// are kept whole when any vertex is inside or a segment crosses the
// boundary, a documented approximation that leaves totalLength slightly
// over-inclusive at the edge. Clipping an already-clipped collection against
// the same polygon returns the same collection up to floating-point noise.
func Clip(fc *geojson.FeatureCollection, sel orb.Polygon) *Result {
	res := &Result{Features: geojson.NewFeatureCollection()}
	if fc == nil || geometry.PolygonDegenerate(sel) {
		return res
	}

	candidates := candidateSet(fc, sel)

	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			res.Degenerate++
			continue
		}
		if candidates != nil && !candidates[i] {
			res.Dropped++
			continue
		}
		if geometry.HasNaN(f.Geometry) {
			res.Degenerate++
			continue
		}

		clipped, ok := clipGeometry(f.Geometry, sel)
		if !ok {
			res.Dropped++
			continue
		}
		if clipped == nil {
			// Feature is fully inside; keep it untouched.
			res.Features.Append(f)
			continue
		}
		res.Features.Append(withGeometry(f, clipped))
	}
	return res
}

// clipGeometry returns (nil, true) when the geometry is kept unchanged,
// (g, true) when it is kept with a new cut geometry, and (nil, false) when
// it falls outside the selection.
func clipGeometry(g orb.Geometry, sel orb.Polygon) (orb.Geometry, bool) {
	switch t := g.(type) {
	case orb.Point:
		return nil, geometry.PointInPolygon(t, sel)

	case orb.MultiPoint:
		kept := make(orb.MultiPoint, 0, len(t))
		for _, pt := range t {
			if geometry.PointInPolygon(pt, sel) {
				kept = append(kept, pt)
			}
		}
		if len(kept) == 0 {
			return nil, false
		}
		if len(kept) == len(t) {
			return nil, true
		}
		return kept, true

	case orb.LineString:
		return nil, lineTouches(t, sel)

	case orb.MultiLineString:
		for _, ls := range t {
			if lineTouches(ls, sel) {
				return nil, true
			}
		}
		return nil, false

	case orb.Polygon:
		subjArea := geometry.PolygonArea(t)
		inter := geometry.IntersectPolygon(t, sel)
		if inter == nil {
			return nil, false
		}
		interArea := geometry.PolygonArea(inter)
		if interArea <= 0 {
			return nil, false
		}
		if interArea >= subjArea*(1-1e-9) {
			return nil, true
		}
		return inter, true

	case orb.MultiPolygon:
		subjArea := geometry.MultiPolygonArea(t)
		inter := geometry.IntersectMultiPolygon(t, sel)
		if len(inter) == 0 {
			return nil, false
		}
		interArea := geometry.MultiPolygonArea(inter)
		if interArea <= 0 {
			return nil, false
		}
		if len(inter) == len(t) && interArea >= subjArea*(1-1e-9) {
			return nil, true
		}
		return inter, true

	default:
		return nil, false
	}
}

// lineTouches applies the line inclusion rule: any vertex inside the
// selection, or any segment crossing its boundary.
func lineTouches(ls orb.LineString, sel orb.Polygon) bool {
	for _, pt := range ls {
		if geometry.PointInPolygon(pt, sel) {
			return true
		}
	}
	return geometry.LineCrossesPolygon(ls, sel)
}

// withGeometry copies a feature with a replacement geometry, preserving its
// identifier and properties.
func withGeometry(f *geojson.Feature, g orb.Geometry) *geojson.Feature {
	nf := geojson.NewFeature(g)
	nf.ID = f.ID
	nf.Properties = f.Properties
	return nf
}

// candidateSet builds an R-tree over feature bounding boxes and returns the
// set of indexes whose bbox intersects the selection bbox. Returns nil for
// small collections, meaning "test everything".
func candidateSet(fc *geojson.FeatureCollection, sel orb.Polygon) map[int]bool {
	if len(fc.Features) < indexThreshold {
		return nil
	}

	tree := rtreego.NewTree(2, 25, 50)
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if entry := newBoundEntry(i, f.Geometry.Bound()); entry != nil {
			tree.Insert(entry)
		}
	}

	rect := boundRect(sel.Bound())
	if rect == nil {
		return nil
	}
	candidates := make(map[int]bool)
	for _, spatial := range tree.SearchIntersect(*rect) {
		candidates[spatial.(*boundEntry).index] = true
	}
	return candidates
}

// boundEntry adapts a feature bounding box to the rtreego.Spatial interface.
type boundEntry struct {
	index int
	rect  rtreego.Rect
}

func (e *boundEntry) Bounds() rtreego.Rect { return e.rect }

func newBoundEntry(index int, b orb.Bound) *boundEntry {
	rect := boundRect(b)
	if rect == nil {
		return nil
	}
	return &boundEntry{index: index, rect: *rect}
}

func boundRect(b orb.Bound) *rtreego.Rect {
	// rtreego rejects zero-extent rectangles, so pad point bounds.
	const minExtent = 1e-9
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w < minExtent {
		w = minExtent
	}
	if h < minExtent {
		h = minExtent
	}
	rect, err := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
	if err != nil {
		return nil
	}
	return &rect
}
