package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotatedLabel(t *testing.T) {
	label, points, ok := ParseAnnotatedLabel("Nói chuyện riêng (-5đ)")
	require.True(t, ok)
	assert.Equal(t, "Nói chuyện riêng", label)
	assert.Equal(t, -5, points)

	label, points, ok = ParseAnnotatedLabel("Giúp đỡ bạn (+3đ)")
	require.True(t, ok)
	assert.Equal(t, "Giúp đỡ bạn", label)
	assert.Equal(t, 3, points)

	_, _, ok = ParseAnnotatedLabel("Late")
	assert.False(t, ok)

	_, _, ok = ParseAnnotatedLabel("Late (sometimes)")
	assert.False(t, ok)

	label, points, ok = ParseAnnotatedLabel("  Late (-2đ)  ")
	require.True(t, ok)
	assert.Equal(t, "Late", label)
	assert.Equal(t, -2, points)
}

func TestStripAnnotation(t *testing.T) {
	assert.Equal(t, "Late", StripAnnotation("Late (-5đ)"))
	assert.Equal(t, "Late", StripAnnotation("Late"))
}

func TestRecomputeScoreResolutionOrder(t *testing.T) {
	settings := &Settings{
		DefaultScore: 100,
		Violations:   []BehaviorItem{{ID: "v1", Label: "Late", Points: -5}},
	}

	// Catalog match wins over captured points.
	rec := &ConductRecord{
		Violations: []BehaviorEntry{{Label: "Late", Points: -2}},
	}
	assert.Equal(t, 95, settings.RecomputeScore(rec))

	// Captured points cover labels no longer in the catalog.
	rec = &ConductRecord{
		Violations: []BehaviorEntry{{Label: "Shouting", Points: -10}},
	}
	assert.Equal(t, 90, settings.RecomputeScore(rec))

	// Legacy annotation is the last fallback.
	rec = &ConductRecord{
		Violations: []BehaviorEntry{{Label: "Shouting (-4đ)"}},
	}
	assert.Equal(t, 96, settings.RecomputeScore(rec))

	// An orphan with no annotation contributes zero.
	rec = &ConductRecord{
		Violations: []BehaviorEntry{{Label: "Unknown"}},
	}
	assert.Equal(t, 100, settings.RecomputeScore(rec))
}

func TestRecomputeScoreClamps(t *testing.T) {
	settings := &Settings{
		DefaultScore: 100,
		Violations:   []BehaviorItem{{ID: "v1", Label: "Fight", Points: -40}},
		Positives:    []BehaviorItem{{ID: "p1", Label: "Helped", Points: 30}},
	}

	rec := &ConductRecord{Violations: []BehaviorEntry{
		{Label: "Fight", Points: -40},
		{Label: "Fight", Points: -40},
		{Label: "Fight", Points: -40},
	}}
	assert.Equal(t, 0, settings.RecomputeScore(rec))

	rec = &ConductRecord{Positives: []BehaviorEntry{
		{Label: "Helped", Points: 30},
	}}
	assert.Equal(t, 100, settings.RecomputeScore(rec))
}

func TestNormalizeLegacyEntries(t *testing.T) {
	rec := &ConductRecord{
		Violations: []BehaviorEntry{
			{Label: "Late (-5đ)"},
			{Label: "Fight", Points: -20},
		},
		Positives: []BehaviorEntry{{Label: "Helped (+3đ)"}},
	}
	rec.NormalizeLegacyEntries()

	assert.Equal(t, BehaviorEntry{Label: "Late", Points: -5}, rec.Violations[0])
	assert.Equal(t, BehaviorEntry{Label: "Fight", Points: -20}, rec.Violations[1])
	assert.Equal(t, BehaviorEntry{Label: "Helped", Points: 3}, rec.Positives[0])
}

func TestRankFor(t *testing.T) {
	thresholds := Thresholds{Good: 80, Fair: 65, Pass: 50}

	assert.Equal(t, RankGood, RankFor(100, thresholds))
	assert.Equal(t, RankGood, RankFor(80, thresholds))
	assert.Equal(t, RankFair, RankFor(79, thresholds))
	assert.Equal(t, RankFair, RankFor(65, thresholds))
	assert.Equal(t, RankPass, RankFor(64, thresholds))
	assert.Equal(t, RankPass, RankFor(50, thresholds))
	assert.Equal(t, RankFail, RankFor(49, thresholds))
}

func TestLockedWeekToggle(t *testing.T) {
	settings := DefaultSettings()

	assert.False(t, settings.IsLocked(3))
	settings.Lock(3)
	settings.Lock(3)
	assert.True(t, settings.IsLocked(3))
	assert.Len(t, settings.LockedWeeks, 1)

	settings.Unlock(3)
	assert.False(t, settings.IsLocked(3))
	settings.Unlock(3)
	assert.Empty(t, settings.LockedWeeks)
}

func TestWithinRoleBudget(t *testing.T) {
	settings := DefaultSettings()
	settings.RoleBudgets = map[string]int{"monitor": 5}

	assert.True(t, settings.WithinRoleBudget("monitor", -5))
	assert.False(t, settings.WithinRoleBudget("monitor", -6))
	assert.True(t, settings.WithinRoleBudget("teacher", -50))
}

func TestBadgeRuleRevocable(t *testing.T) {
	assert.True(t, BadgeRule{Kind: BadgeStreakGood}.Revocable())
	assert.True(t, BadgeRule{Kind: BadgeNoViolationStreak}.Revocable())
	assert.False(t, BadgeRule{Kind: BadgeCountBehavior}.Revocable())
	assert.False(t, BadgeRule{Kind: BadgeImprovement}.Revocable())
}

func TestStudentInventory(t *testing.T) {
	student := &Student{ID: "s1"}

	student.AddInventory("pencil", 2)
	student.AddInventory("pencil", 1)
	require.Len(t, student.Inventory, 1)
	assert.Equal(t, 3, student.Inventory[0].Count)

	require.True(t, student.ConsumeInventory("pencil"))
	require.True(t, student.ConsumeInventory("pencil"))
	require.True(t, student.ConsumeInventory("pencil"))
	assert.Empty(t, student.Inventory)
	assert.False(t, student.ConsumeInventory("pencil"))
}
