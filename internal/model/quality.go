package model

import "time"

// WarningSeverity grades a data-quality warning.
type WarningSeverity string

const (
	SeverityInfo    WarningSeverity = "info"
	SeverityWarning WarningSeverity = "warning"
)

// Warning types emitted by the quality scorer.
const (
	WarnMissingCategory = "missing_category"
	WarnLowCount        = "low_count"
)

// CategoryScore is the completeness score for one tracked category.
type CategoryScore struct {
	Category    string  `json:"category"`
	Score       float64 `json:"score"`
	Count       float64 `json:"count"`
	ExpectedMin int     `json:"expected_min"`
}

// QualityWarning is an advisory signal about data completeness. Warnings
// never block interaction.
type QualityWarning struct {
	Type     string          `json:"type"`
	Message  string          `json:"message"`
	Severity WarningSeverity `json:"severity"`
}

// DataQuality summarizes how complete the fetched data is versus the
// expected minimum counts per category. Recomputed on demand, not persisted.
type DataQuality struct {
	OverallScore   float64          `json:"overall_score"`
	CategoryScores []CategoryScore  `json:"category_scores"`
	Warnings       []QualityWarning `json:"warnings"`
	LastUpdated    time.Time        `json:"last_updated"`
}
