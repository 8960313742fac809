package compare

import (
	"github.com/areascope/areascope/internal/model"
)

// Stat keys used to flag row maxima in the comparison matrix.
const (
	StatCount       = "count"
	StatDensity     = "density"
	StatTotalLength = "total_length"
	StatTotalArea   = "total_area"
	StatAreaShare   = "area_share"
)

// Cell is one layer × area entry of the comparison matrix. Max holds, per
// stat key, whether this area leads the row; ties are all flagged.
type Cell struct {
	AreaID string            `json:"area_id"`
	Stats  *model.LayerStats `json:"stats,omitempty"`
	Max    map[string]bool   `json:"max,omitempty"`
}

// Row is one layer's statistics across all displayed areas.
type Row struct {
	LayerID   string `json:"layer_id"`
	LayerName string `json:"layer_name"`
	Cells     []Cell `json:"cells"`
}

// Group is a block of rows sharing a semantic layer group.
type Group struct {
	Group model.LayerGroup `json:"group"`
	Rows  []Row            `json:"rows"`
}

// Matrix builds the layer × area comparison table over the currently
// displayed areas (given in display order). A layer's row contains one cell
// per area; cells without computed stats carry nil Stats and are never
// flagged max.
func (m *Manager) Matrix(activeLayers []model.LayerConfig, displayed []*model.ComparisonArea) []Group {
	groups := make([]Group, 0)
	groupIndex := map[model.LayerGroup]int{}

	for _, cfg := range activeLayers {
		row := Row{LayerID: cfg.ID, LayerName: cfg.Name}
		for _, area := range displayed {
			cell := Cell{AreaID: area.ID}
			if ld, ok := area.Layers[cfg.ID]; ok && ld.Stats != nil {
				cell.Stats = ld.Stats
			}
			row.Cells = append(row.Cells, cell)
		}
		flagRowMaxima(row.Cells)

		gi, ok := groupIndex[cfg.Group]
		if !ok {
			groups = append(groups, Group{Group: cfg.Group})
			gi = len(groups) - 1
			groupIndex[cfg.Group] = gi
		}
		groups[gi].Rows = append(groups[gi].Rows, row)
	}
	return groups
}

// flagRowMaxima marks, per statistic, every cell holding the row maximum.
// Whenever any cell has stats, at least one cell is flagged for each
// statistic those stats carry.
func flagRowMaxima(cells []Cell) {
	for _, key := range []string{StatCount, StatDensity, StatTotalLength, StatTotalArea, StatAreaShare} {
		var max float64
		found := false
		for _, c := range cells {
			if v, ok := statValue(c.Stats, key); ok {
				if !found || v > max {
					max, found = v, true
				}
			}
		}
		if !found {
			continue
		}
		for i := range cells {
			if v, ok := statValue(cells[i].Stats, key); ok && v == max {
				if cells[i].Max == nil {
					cells[i].Max = make(map[string]bool)
				}
				cells[i].Max[key] = true
			}
		}
	}
}

func statValue(s *model.LayerStats, key string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	switch key {
	case StatCount:
		if s.Count != nil {
			return float64(*s.Count), true
		}
	case StatDensity:
		if s.Density != nil {
			return *s.Density, true
		}
	case StatTotalLength:
		if s.TotalLength != nil {
			return *s.TotalLength, true
		}
	case StatTotalArea:
		if s.TotalArea != nil {
			return *s.TotalArea, true
		}
	case StatAreaShare:
		if s.AreaShare != nil {
			return *s.AreaShare, true
		}
	}
	return 0, false
}
