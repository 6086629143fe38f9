package models

import "time"

// Score bounds enforced on every conduct record.
const (
	MinScore = 0
	MaxScore = 100
)

// ConductRecord is one student's weekly conduct state. The pair
// (StudentID, Week) is the natural key; the ledger enforces uniqueness.
type ConductRecord struct {
	ID         string          `json:"id"`
	StudentID  string          `json:"student_id"`
	Week       int             `json:"week"`
	Score      int             `json:"score"`
	Violations []BehaviorEntry `json:"violations"`
	Positives  []BehaviorEntry `json:"positive_behaviors"`
	Note       string          `json:"note"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Rank classifies a score against the configured thresholds.
type Rank string

const (
	RankGood Rank = "GOOD"
	RankFair Rank = "FAIR"
	RankPass Rank = "PASS"
	RankFail Rank = "FAIL"
)

// Thresholds holds the descending rank cut lines. Anything below Pass
// is a FAIL.
type Thresholds struct {
	Good int `json:"good"`
	Fair int `json:"fair"`
	Pass int `json:"pass"`
}

// RankFor derives the letter rank for a score.
func RankFor(score int, t Thresholds) Rank {
	switch {
	case score >= t.Good:
		return RankGood
	case score >= t.Fair:
		return RankFair
	case score >= t.Pass:
		return RankPass
	default:
		return RankFail
	}
}

// ClampScore bounds a score to the valid range.
func ClampScore(n int) int {
	if n < MinScore {
		return MinScore
	}
	if n > MaxScore {
		return MaxScore
	}
	return n
}

// NormalizeLegacyEntries rewrites occurrences imported from legacy data
// where the point value was embedded in the label instead of captured
// alongside it.
func (r *ConductRecord) NormalizeLegacyEntries() {
	normalize := func(entries []BehaviorEntry) {
		for i := range entries {
			if entries[i].Points != 0 {
				continue
			}
			if label, points, ok := ParseAnnotatedLabel(entries[i].Label); ok {
				entries[i].Label = label
				entries[i].Points = points
			}
		}
	}
	normalize(r.Violations)
	normalize(r.Positives)
}

// HasViolation reports whether the record carries at least one
// occurrence of the given bare label, annotation-insensitive.
func (r *ConductRecord) HasViolation(label string) bool {
	bare := StripAnnotation(label)
	for _, entry := range r.Violations {
		if StripAnnotation(entry.Label) == bare {
			return true
		}
	}
	return false
}
