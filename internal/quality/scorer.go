// Package quality scores how complete the fetched data is against expected
// minimum feature counts per semantic category.
package quality

import (
	"fmt"
	"time"

	"github.com/areascope/areascope/internal/layer"
	"github.com/areascope/areascope/internal/model"
	"github.com/areascope/areascope/internal/stats"
)

// lowCountShare is the fraction of the expected minimum below which a
// nonzero category earns an advisory low_count warning.
const lowCountShare = 0.5

// Score evaluates data completeness across the target area set. Counts are
// averaged per category over all areas; each category score is clamped to
// 100 before averaging (clamp per category, then average). The overall
// score averages only categories that have any data, so sparse-but-present
// data is not dragged toward zero by untouched categories; it is 0 when no
// category has data at all. active maps layer id to enabled state; warnings
// are only emitted for categories with at least one active member layer.
func Score(areas []*model.ComparisonArea, cats []layer.Category, active map[string]bool) model.DataQuality {
	dq := model.DataQuality{LastUpdated: time.Now()}

	avgCounts := averageCounts(areas, cats)

	var sum float64
	var scored int
	for _, cat := range cats {
		avg := avgCounts[cat.ID]
		score := 0.0
		if cat.ExpectedMin > 0 {
			score = 100 * avg / float64(cat.ExpectedMin)
			if score > 100 {
				score = 100
			}
		}
		dq.CategoryScores = append(dq.CategoryScores, model.CategoryScore{
			Category:    cat.ID,
			Score:       score,
			Count:       avg,
			ExpectedMin: cat.ExpectedMin,
		})
		if avg > 0 {
			sum += score
			scored++
		}

		if !categoryActive(cat, active) {
			continue
		}
		switch {
		case avg == 0:
			dq.Warnings = append(dq.Warnings, model.QualityWarning{
				Type:     model.WarnMissingCategory,
				Message:  fmt.Sprintf("no %s features found in the selected areas", cat.Name),
				Severity: model.SeverityWarning,
			})
		case avg < lowCountShare*float64(cat.ExpectedMin):
			dq.Warnings = append(dq.Warnings, model.QualityWarning{
				Type:     model.WarnLowCount,
				Message:  fmt.Sprintf("only %.1f %s features on average, expected at least %d", avg, cat.Name, cat.ExpectedMin),
				Severity: model.SeverityInfo,
			})
		}
	}

	if scored > 0 {
		dq.OverallScore = sum / float64(scored)
	}
	return dq
}

// ScoreSingle is Score over one area.
func ScoreSingle(area *model.ComparisonArea, cats []layer.Category, active map[string]bool) model.DataQuality {
	return Score([]*model.ComparisonArea{area}, cats, active)
}

func averageCounts(areas []*model.ComparisonArea, cats []layer.Category) map[string]float64 {
	out := make(map[string]float64, len(cats))
	var counted int
	for _, area := range areas {
		if area == nil {
			continue
		}
		counted++
		for cat, n := range stats.CategoryCounts(cats, area.Layers) {
			out[cat] += float64(n)
		}
	}
	if counted == 0 {
		return out
	}
	for cat := range out {
		out[cat] /= float64(counted)
	}
	return out
}

func categoryActive(cat layer.Category, active map[string]bool) bool {
	for _, id := range cat.LayerIDs {
		if active[id] {
			return true
		}
	}
	return false
}
