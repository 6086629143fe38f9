package models

// CoinRules parameterises the weekly coin settlement formula.
type CoinRules struct {
	WeeklyGoodBonus  int `json:"weekly_good_bonus"`
	BehaviorBonus    int `json:"behavior_bonus"`
	ImprovementBonus int `json:"improvement_bonus"`
	CleanSheetBonus  int `json:"clean_sheet_bonus"`
}

// Settings is the process-wide configuration snapshot. It is loaded
// once, mutated only through explicit update calls, and passed
// explicitly into every computation instead of read as ambient state.
type Settings struct {
	DefaultScore  int            `json:"default_score"`
	Thresholds    Thresholds     `json:"thresholds"`
	Violations    []BehaviorItem `json:"violations"`
	Positives     []BehaviorItem `json:"positive_behaviors"`
	LockedWeeks   []int          `json:"locked_weeks"`
	Coins         CoinRules      `json:"coin_rules"`
	SemesterCoins map[Rank]int   `json:"semester_coins"`
	RoleBudgets   map[string]int `json:"role_budgets"`
	BadgeRules    []BadgeRule    `json:"badge_rules"`
}

// DefaultSettings returns the configuration a fresh classroom starts
// with: full marks by default and the standard 80/65/50 cut lines.
func DefaultSettings() *Settings {
	return &Settings{
		DefaultScore: 100,
		Thresholds:   Thresholds{Good: 80, Fair: 65, Pass: 50},
		Coins: CoinRules{
			WeeklyGoodBonus:  10,
			BehaviorBonus:    2,
			ImprovementBonus: 5,
			CleanSheetBonus:  5,
		},
		SemesterCoins: map[Rank]int{
			RankGood: 50,
			RankFair: 25,
			RankPass: 10,
		},
	}
}

// RecomputeScore derives a record's score purely from its occurrence
// lists and the current catalog, clamped to the valid range.
func (s *Settings) RecomputeScore(rec *ConductRecord) int {
	total := s.DefaultScore
	for _, entry := range rec.Violations {
		total += entryPoints(entry, s.Violations)
	}
	for _, entry := range rec.Positives {
		total += entryPoints(entry, s.Positives)
	}
	return ClampScore(total)
}

// IsLocked reports whether the week is closed for edits.
func (s *Settings) IsLocked(week int) bool {
	for _, w := range s.LockedWeeks {
		if w == week {
			return true
		}
	}
	return false
}

// Lock closes the week for edits. Idempotent.
func (s *Settings) Lock(week int) {
	if s.IsLocked(week) {
		return
	}
	s.LockedWeeks = append(s.LockedWeeks, week)
}

// Unlock reopens the week. Idempotent.
func (s *Settings) Unlock(week int) {
	for i, w := range s.LockedWeeks {
		if w == week {
			s.LockedWeeks = append(s.LockedWeeks[:i], s.LockedWeeks[i+1:]...)
			return
		}
	}
}

// FindBehavior locates a catalog entry by id across both sub-lists.
// The boolean reports whether the entry sits in the positive list.
func (s *Settings) FindBehavior(id string) (*BehaviorItem, bool) {
	for i := range s.Violations {
		if s.Violations[i].ID == id {
			return &s.Violations[i], false
		}
	}
	for i := range s.Positives {
		if s.Positives[i].ID == id {
			return &s.Positives[i], true
		}
	}
	return nil, false
}

// HasLabel reports whether either sub-list already uses the label.
func (s *Settings) HasLabel(label string) bool {
	for _, item := range s.Violations {
		if item.Label == label {
			return true
		}
	}
	for _, item := range s.Positives {
		if item.Label == label {
			return true
		}
	}
	return false
}

// WithinRoleBudget reports whether an officer role may apply an
// adjustment of the given magnitude. Roles without a configured budget
// are unrestricted.
func (s *Settings) WithinRoleBudget(role string, points int) bool {
	budget, ok := s.RoleBudgets[role]
	if !ok {
		return true
	}
	if points < 0 {
		points = -points
	}
	return points <= budget
}
