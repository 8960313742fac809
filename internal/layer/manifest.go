// Package layer holds the static layer manifest, the semantic category
// table, per-layer data access, and layer import from GeoJSON and
// shapefiles.
package layer

import (
	"sort"

	"github.com/areascope/areascope/internal/model"
)

// Recipes per geometry type. Point and line layers carry count and density;
// line layers additionally total length; polygon layers area and area share.
var (
	pointRecipe   = model.StatsRecipe{Count: true, Density: true}
	lineRecipe    = model.StatsRecipe{Count: true, Density: true, Length: true}
	polygonRecipe = model.StatsRecipe{Count: true, Area: true, AreaShare: true}
)

// DefaultManifest returns the standard layer configurations, keyed by layer
// id. The manifest is static; custom layers are added at runtime via
// NewCustomLayer.
func DefaultManifest() map[string]model.LayerConfig {
	return map[string]model.LayerConfig{
		"buildings": {
			ID: "buildings", Name: "Buildings",
			Group: model.GroupUsage, GeometryType: model.GeometryPolygon,
			Recipe: polygonRecipe, Color: "#b0632e",
		},
		"parking": {
			ID: "parking", Name: "Parking",
			Group: model.GroupInfrastructure, GeometryType: model.GeometryPolygon,
			Recipe: polygonRecipe, Color: "#8d99ae",
		},
		"power-lines": {
			ID: "power-lines", Name: "Power Lines",
			Group: model.GroupInfrastructure, GeometryType: model.GeometryLine,
			Recipe: lineRecipe, Color: "#ffb703",
		},
		"roads": {
			ID: "roads", Name: "Roads",
			Group: model.GroupTraffic, GeometryType: model.GeometryLine,
			Recipe: lineRecipe, Color: "#6c757d",
		},
		"primary-roads": {
			ID: "primary-roads", Name: "Primary Roads",
			Group: model.GroupTraffic, GeometryType: model.GeometryLine,
			Recipe: lineRecipe, Color: "#343a40",
		},
		"cycleways": {
			ID: "cycleways", Name: "Cycleways",
			Group: model.GroupAccess, GeometryType: model.GeometryLine,
			Recipe: lineRecipe, Color: "#2a9d8f",
		},
		"footpaths": {
			ID: "footpaths", Name: "Footpaths",
			Group: model.GroupAccess, GeometryType: model.GeometryLine,
			Recipe: lineRecipe, Color: "#95d5b2",
		},
		"transit-stops": {
			ID: "transit-stops", Name: "Transit Stops",
			Group: model.GroupAccess, GeometryType: model.GeometryPoint,
			Recipe: pointRecipe, Color: "#e63946",
		},
		"restaurants": {
			ID: "restaurants", Name: "Restaurants",
			Group: model.GroupAmenities, GeometryType: model.GeometryPoint,
			Recipe: pointRecipe, Color: "#f4a261",
		},
		"cafes": {
			ID: "cafes", Name: "Cafes",
			Group: model.GroupAmenities, GeometryType: model.GeometryPoint,
			Recipe: pointRecipe, Color: "#bc6c25",
		},
		"shops": {
			ID: "shops", Name: "Shops",
			Group: model.GroupAmenities, GeometryType: model.GeometryPoint,
			Recipe: pointRecipe, Color: "#9d4edd",
		},
		"supermarkets": {
			ID: "supermarkets", Name: "Supermarkets",
			Group: model.GroupAmenities, GeometryType: model.GeometryPoint,
			Recipe: pointRecipe, Color: "#7b2cbf",
		},
		"schools": {
			ID: "schools", Name: "Schools",
			Group: model.GroupAmenities, GeometryType: model.GeometryPoint,
			Recipe: pointRecipe, Color: "#0077b6",
		},
		"hospitals": {
			ID: "hospitals", Name: "Hospitals",
			Group: model.GroupAmenities, GeometryType: model.GeometryPoint,
			Recipe: pointRecipe, Color: "#d62828",
		},
		"pharmacies": {
			ID: "pharmacies", Name: "Pharmacies",
			Group: model.GroupAmenities, GeometryType: model.GeometryPoint,
			Recipe: pointRecipe, Color: "#e76f51",
		},
		"parks": {
			ID: "parks", Name: "Parks",
			Group: model.GroupEnvironment, GeometryType: model.GeometryPolygon,
			Recipe: polygonRecipe, Color: "#52b788",
		},
		"water": {
			ID: "water", Name: "Water",
			Group: model.GroupEnvironment, GeometryType: model.GeometryPolygon,
			Recipe: polygonRecipe, Color: "#4895ef",
		},
		"trees": {
			ID: "trees", Name: "Trees",
			Group: model.GroupEnvironment, GeometryType: model.GeometryPoint,
			Recipe: pointRecipe, Color: "#2d6a4f",
		},
	}
}

// ManifestIDs returns the manifest layer ids in deterministic order.
func ManifestIDs(manifest map[string]model.LayerConfig) []string {
	ids := make([]string, 0, len(manifest))
	for id := range manifest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RecipeFor returns the stats recipe matching a geometry type. Used when a
// custom layer's geometry type is inferred at upload time.
func RecipeFor(gt model.GeometryType) model.StatsRecipe {
	switch gt {
	case model.GeometryLine:
		return lineRecipe
	case model.GeometryPolygon:
		return polygonRecipe
	default:
		return pointRecipe
	}
}
