package models

// BadgeKind discriminates the badge rule variants.
type BadgeKind string

const (
	BadgeStreakGood        BadgeKind = "streak_good"
	BadgeNoViolationStreak BadgeKind = "no_violation_streak"
	BadgeCountBehavior     BadgeKind = "count_behavior"
	BadgeImprovement       BadgeKind = "improvement"
)

// BadgeRule is one configured badge. Threshold is the streak length or
// occurrence count required; TargetLabel only applies to
// count_behavior rules.
type BadgeRule struct {
	ID          string    `json:"id"`
	Kind        BadgeKind `json:"kind"`
	Name        string    `json:"name"`
	Threshold   int       `json:"threshold"`
	TargetLabel string    `json:"target_label,omitempty"`
}

// Revocable is derived from the kind: streak badges are lost when the
// streak breaks, cumulative and one-time badges are permanent.
func (r BadgeRule) Revocable() bool {
	switch r.Kind {
	case BadgeStreakGood, BadgeNoViolationStreak:
		return true
	default:
		return false
	}
}
