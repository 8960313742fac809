package layer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/areascope/areascope/internal/model"
)

// LoadGeoJSON reads a FeatureCollection from a .geojson/.json file.
func LoadGeoJSON(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: read %s", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: parse %s", path)
	}
	return fc, nil
}

// LoadShapefile reads a FeatureCollection from an ESRI shapefile, carrying
// attribute fields over as string properties.
func LoadShapefile(path string) (*geojson.FeatureCollection, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fc := geojson.NewFeatureCollection()
	skipped := 0

	for reader.Next() {
		row, shape := reader.Shape()
		g := shapeGeometry(shape)
		if g == nil {
			skipped++
			continue
		}
		f := geojson.NewFeature(g)
		for i, field := range fields {
			name := strings.TrimRight(field.String(), "\x00")
			if value := reader.ReadAttribute(row, i); value != "" {
				f.Properties[name] = value
			}
		}
		fc.Append(f)
	}

	if skipped > 0 {
		zap.L().Debug("layer: skipped unsupported shapes",
			zap.String("path", path), zap.Int("skipped", skipped))
	}
	return fc, nil
}

// shapeGeometry converts a go-shp shape into an orb geometry. Returns nil
// for unsupported or empty shapes.
func shapeGeometry(shape shp.Shape) orb.Geometry {
	switch s := shape.(type) {
	case *shp.Point:
		return orb.Point{s.X, s.Y}

	case *shp.PolyLine:
		mls := partsToLines(s.Parts, s.Points)
		if len(mls) == 0 {
			return nil
		}
		if len(mls) == 1 {
			return mls[0]
		}
		return mls

	case *shp.Polygon:
		lines := partsToLines(s.Parts, s.Points)
		if len(lines) == 0 {
			return nil
		}
		poly := make(orb.Polygon, 0, len(lines))
		for _, ls := range lines {
			poly = append(poly, orb.Ring(ls))
		}
		return poly

	default:
		return nil
	}
}

func partsToLines(parts []int32, points []shp.Point) orb.MultiLineString {
	var out orb.MultiLineString
	for i := range parts {
		start := parts[i]
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if end-start < 2 {
			continue
		}
		ls := make(orb.LineString, 0, end-start)
		for j := start; j < end; j++ {
			ls = append(ls, orb.Point{points[j].X, points[j].Y})
		}
		out = append(out, ls)
	}
	return out
}

// LoadDirectory loads every .geojson/.json/.shp file under dir, keyed by
// file base name. Files that fail to parse are logged and skipped.
func LoadDirectory(dir string) (map[string]*geojson.FeatureCollection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: read dir %s", dir)
	}

	log := zap.L().With(zap.String("component", "layer.import"))
	out := make(map[string]*geojson.FeatureCollection)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		var fc *geojson.FeatureCollection
		switch ext {
		case ".geojson", ".json":
			fc, err = LoadGeoJSON(path)
		case ".shp":
			fc, err = LoadShapefile(path)
		default:
			continue
		}
		if err != nil {
			log.Warn("skipping unreadable layer file", zap.String("path", path), zap.Error(err))
			continue
		}
		out[id] = fc
		log.Info("loaded layer file", zap.String("layer", id), zap.Int("features", len(fc.Features)))
	}
	return out, nil
}

// InferGeometryType inspects a collection and returns the dominant geometry
// type. Point wins for empty collections.
func InferGeometryType(fc *geojson.FeatureCollection) model.GeometryType {
	counts := map[model.GeometryType]int{}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Point, orb.MultiPoint:
			counts[model.GeometryPoint]++
		case orb.LineString, orb.MultiLineString:
			counts[model.GeometryLine]++
		case orb.Polygon, orb.MultiPolygon:
			counts[model.GeometryPolygon]++
		}
	}
	best := model.GeometryPoint
	bestCount := 0
	for _, gt := range []model.GeometryType{model.GeometryPoint, model.GeometryLine, model.GeometryPolygon} {
		if counts[gt] > bestCount {
			best, bestCount = gt, counts[gt]
		}
	}
	return best
}

// NewCustomLayer builds a LayerConfig for a user-uploaded collection, with
// the geometry type and stats recipe inferred from the data.
func NewCustomLayer(id, name string, fc *geojson.FeatureCollection) model.LayerConfig {
	gt := InferGeometryType(fc)
	return model.LayerConfig{
		ID:           id,
		Name:         name,
		Group:        model.GroupUsage,
		GeometryType: gt,
		Recipe:       RecipeFor(gt),
		IsCustom:     true,
	}
}
