package store

import (
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// encodeEWKB converts an orb.Polygon to EWKB bytes with SRID 4326 for
// storage in a postgres BYTEA column, readable by PostGIS if present.
func encodeEWKB(p orb.Polygon) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}

	poly := geom.NewPolygon(geom.XY).SetSRID(4326)
	for _, ring := range p {
		flat := make([]float64, 0, len(ring)*2)
		for _, pt := range ring {
			flat = append(flat, pt[0], pt[1])
		}
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			return nil, eris.Wrap(err, "store: build polygon ring")
		}
	}

	data, err := ewkb.Marshal(poly, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode EWKB")
	}
	return data, nil
}

// decodeEWKB converts EWKB bytes back to an orb.Polygon.
func decodeEWKB(data []byte) (orb.Polygon, error) {
	if len(data) == 0 {
		return nil, nil
	}

	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "store: decode EWKB")
	}
	poly, ok := g.(*geom.Polygon)
	if !ok {
		return nil, eris.Errorf("store: expected polygon, got %T", g)
	}

	out := make(orb.Polygon, 0, poly.NumLinearRings())
	for i := 0; i < poly.NumLinearRings(); i++ {
		coords := poly.LinearRing(i).Coords()
		ring := make(orb.Ring, 0, len(coords))
		for _, c := range coords {
			ring = append(ring, orb.Point{c[0], c[1]})
		}
		out = append(out, ring)
	}
	return out, nil
}
