// Package metrics computes composite urban-form indices from category
// aggregates and raw clipped geometry. Every metric is NaN-free: a zero
// denominator yields 0, never NaN or Infinity.
package metrics

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/areascope/areascope/internal/geometry"
	"github.com/areascope/areascope/internal/model"
)

// Building classes tracked by the land-use mix index.
const (
	ClassResidential = "residential"
	ClassCommercial  = "commercial"
	ClassIndustrial  = "industrial"
	ClassOther       = "other"
)

var trackedClasses = []string{ClassResidential, ClassCommercial, ClassIndustrial, ClassOther}

// buildingClassByTag maps OSM building tag values onto tracked classes.
// Unlisted values fall into ClassOther.
var buildingClassByTag = map[string]string{
	"residential": ClassResidential,
	"house":       ClassResidential,
	"detached":    ClassResidential,
	"apartments":  ClassResidential,
	"terrace":     ClassResidential,
	"dormitory":   ClassResidential,
	"commercial":  ClassCommercial,
	"retail":      ClassCommercial,
	"office":      ClassCommercial,
	"supermarket": ClassCommercial,
	"hotel":       ClassCommercial,
	"industrial":  ClassIndustrial,
	"warehouse":   ClassIndustrial,
	"factory":     ClassIndustrial,
}

// DefaultAccessibilityWeights returns the per-category weights for the POI
// accessibility score. Higher weight means the category contributes more to
// everyday walkability.
func DefaultAccessibilityWeights() map[string]float64 {
	return map[string]float64{
		"food":      1.0,
		"shopping":  1.0,
		"health":    1.5,
		"education": 1.5,
		"transit":   2.0,
		"parks":     1.0,
	}
}

// BuildingAreasByClass sums building footprint area per tracked class.
func BuildingAreasByClass(buildings *geojson.FeatureCollection) map[string]float64 {
	out := make(map[string]float64, len(trackedClasses))
	if buildings == nil {
		return out
	}
	for _, f := range buildings.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		area := geometry.Area(f.Geometry)
		if area <= 0 || math.IsNaN(area) {
			continue
		}
		tag, _ := f.Properties["building"].(string)
		class, ok := buildingClassByTag[tag]
		if !ok {
			class = ClassOther
		}
		out[class] += area
	}
	return out
}

// MixDiversity is a normalized entropy over building-class area shares:
// 0 when a single class dominates entirely, 1 when footprint area is spread
// evenly across all tracked classes. Zero total area scores 0.
func MixDiversity(areasByClass map[string]float64) float64 {
	var total float64
	for _, cls := range trackedClasses {
		total += areasByClass[cls]
	}
	if total <= 0 {
		return 0
	}
	var entropy float64
	for _, cls := range trackedClasses {
		p := areasByClass[cls] / total
		if p > 0 {
			entropy -= p * math.Log(p)
		}
	}
	return entropy / math.Log(float64(len(trackedClasses)))
}

// IntersectionDensity estimates street-network connectivity: road endpoints
// are clustered within toleranceM meters, clusters joined by three or more
// endpoints count as intersections, and the count is divided by the
// selection area in km². This proxies connectivity without a topology
// model; a through-joint of two segments is not an intersection.
func IntersectionDensity(roads *geojson.FeatureCollection, areaKm2, toleranceM float64) float64 {
	if roads == nil || areaKm2 <= 0 || toleranceM <= 0 {
		return 0
	}

	endpoints := roadEndpoints(roads)
	if len(endpoints) == 0 {
		return 0
	}

	tree := rtreego.NewTree(2, 25, 50)
	for i := range endpoints {
		tree.Insert(&endpointEntry{index: i, point: endpoints[i]})
	}

	visited := make([]bool, len(endpoints))
	intersections := 0
	for i := range endpoints {
		if visited[i] {
			continue
		}
		cluster := neighborhood(tree, endpoints[i], toleranceM)
		size := 0
		for _, idx := range cluster {
			if !visited[idx] {
				visited[idx] = true
				size++
			}
		}
		if size >= 3 {
			intersections++
		}
	}
	return float64(intersections) / areaKm2
}

// Accessibility collapses category densities into one weighted score.
// Categories without a configured weight contribute nothing.
func Accessibility(cats []model.CategoryMetrics, weights map[string]float64) float64 {
	var score float64
	for _, m := range cats {
		score += weights[m.Category] * m.Density
	}
	return score
}

// Compute assembles the full derived-metrics object for one area.
func Compute(buildings, roads *geojson.FeatureCollection, cats []model.CategoryMetrics, areaKm2, intersectionTolM float64, weights map[string]float64) model.DerivedMetrics {
	return model.DerivedMetrics{
		MixDiversity:        MixDiversity(BuildingAreasByClass(buildings)),
		IntersectionDensity: IntersectionDensity(roads, areaKm2, intersectionTolM),
		Accessibility:       Accessibility(cats, weights),
	}
}

func roadEndpoints(roads *geojson.FeatureCollection) []orb.Point {
	var out []orb.Point
	appendLine := func(ls orb.LineString) {
		if len(ls) < 2 || geometry.HasNaN(ls) {
			return
		}
		out = append(out, ls[0], ls[len(ls)-1])
	}
	for _, f := range roads.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		switch t := f.Geometry.(type) {
		case orb.LineString:
			appendLine(t)
		case orb.MultiLineString:
			for _, ls := range t {
				appendLine(ls)
			}
		}
	}
	return out
}

// neighborhood returns the indexes of endpoints within toleranceM of pt,
// querying a degree-space box sized from the local meters-per-degree scale.
func neighborhood(tree *rtreego.Rtree, pt orb.Point, toleranceM float64) []int {
	const metersPerDegreeLat = 111194.93
	dLat := toleranceM / metersPerDegreeLat
	dLon := dLat
	if cos := math.Cos(pt[1] * math.Pi / 180); cos > 0.01 {
		dLon = dLat / cos
	}
	rect, err := rtreego.NewRect(
		rtreego.Point{pt[0] - dLon, pt[1] - dLat},
		[]float64{2 * dLon, 2 * dLat},
	)
	if err != nil {
		return nil
	}

	var out []int
	for _, spatial := range tree.SearchIntersect(rect) {
		entry := spatial.(*endpointEntry)
		if geometry.Distance(pt, entry.point) <= toleranceM {
			out = append(out, entry.index)
		}
	}
	return out
}

type endpointEntry struct {
	index int
	point orb.Point
	rect  *rtreego.Rect
}

func (e *endpointEntry) Bounds() rtreego.Rect {
	if e.rect == nil {
		rect, _ := rtreego.NewRect(rtreego.Point{e.point[0], e.point[1]}, []float64{1e-9, 1e-9})
		e.rect = &rect
	}
	return *e.rect
}
