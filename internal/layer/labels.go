package layer

import (
	"github.com/paulmach/orb/geojson"
)

// labelKeys in preference order. OSM-style exports disagree on which field
// names a feature, so the first non-empty match wins.
var labelKeys = []string{"name", "ref", "operator", "brand", "addr:street"}

// DisplayLabel picks a human-readable label from feature properties, or
// fallback when no label field is set.
func DisplayLabel(props geojson.Properties, fallback string) string {
	for _, key := range labelKeys {
		if v, ok := props[key].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}
