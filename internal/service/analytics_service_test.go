package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroomtools/conductledger/internal/models"
	"github.com/classroomtools/conductledger/internal/repository"
	"github.com/classroomtools/conductledger/internal/store"
)

type analyticsEnv struct {
	ctx      context.Context
	settings *repository.SettingsRepository
	records  *repository.ConductRepository
	students *repository.StudentRepository
	svc      *AnalyticsService
}

func newAnalyticsEnv(t *testing.T) *analyticsEnv {
	t.Helper()
	mem := store.NewMemory()
	env := &analyticsEnv{
		ctx:      context.Background(),
		settings: repository.NewSettingsRepository(mem),
		records:  repository.NewConductRepository(mem),
		students: repository.NewStudentRepository(mem),
	}
	env.svc = NewAnalyticsService(env.records, env.students, env.settings, nil, NewMetricsService(), nil)
	require.NoError(t, env.settings.Save(env.ctx, models.DefaultSettings()))
	return env
}

func (env *analyticsEnv) seedWeek(t *testing.T, studentID string, week, score int, violations ...string) {
	t.Helper()
	rec := &models.ConductRecord{
		ID:        studentID + "-" + string(rune('0'+week)),
		StudentID: studentID,
		Week:      week,
		Score:     score,
	}
	for _, label := range violations {
		rec.Violations = append(rec.Violations, models.BehaviorEntry{Label: label, Points: -1})
	}
	require.NoError(t, env.records.Save(env.ctx, rec))
}

func alertCodes(alerts []models.Alert) []string {
	codes := make([]string, 0, len(alerts))
	for _, a := range alerts {
		codes = append(codes, a.Code)
	}
	return codes
}

func TestAlertsEmptyHistory(t *testing.T) {
	env := newAnalyticsEnv(t)

	out, err := env.svc.AlertsForStudent(env.ctx, "s1", 5)
	require.NoError(t, err)
	assert.Empty(t, out.Alerts)
}

func TestDropAlert(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.seedWeek(t, "s1", 1, 90)
	env.seedWeek(t, "s1", 2, 90)
	env.seedWeek(t, "s1", 3, 90)
	env.seedWeek(t, "s1", 4, 70)

	out, err := env.svc.AlertsForStudent(env.ctx, "s1", 4)
	require.NoError(t, err)
	assert.Contains(t, alertCodes(out.Alerts), models.AlertCodeDrop)

	// A 10-point dip stays below the alert gap.
	env.seedWeek(t, "s2", 1, 90)
	env.seedWeek(t, "s2", 2, 80)
	out, err = env.svc.AlertsForStudent(env.ctx, "s2", 2)
	require.NoError(t, err)
	assert.NotContains(t, alertCodes(out.Alerts), models.AlertCodeDrop)
}

func TestDropAlertRespectsAsOfWeek(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.seedWeek(t, "s1", 1, 90)
	env.seedWeek(t, "s1", 2, 90)
	env.seedWeek(t, "s1", 3, 60)

	out, err := env.svc.AlertsForStudent(env.ctx, "s1", 2)
	require.NoError(t, err)
	assert.NotContains(t, alertCodes(out.Alerts), models.AlertCodeDrop)
}

func TestTrendAlert(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.seedWeek(t, "s1", 1, 90)
	env.seedWeek(t, "s1", 2, 85)
	env.seedWeek(t, "s1", 3, 82)

	out, err := env.svc.AlertsForStudent(env.ctx, "s1", 3)
	require.NoError(t, err)
	codes := alertCodes(out.Alerts)
	require.Contains(t, codes, models.AlertCodeTrend)
	for _, a := range out.Alerts {
		if a.Code == models.AlertCodeTrend {
			assert.Equal(t, models.AlertCritical, a.Type)
		}
	}

	// A plateau breaks the strict decline.
	env.seedWeek(t, "s2", 1, 90)
	env.seedWeek(t, "s2", 2, 85)
	env.seedWeek(t, "s2", 3, 85)
	out, err = env.svc.AlertsForStudent(env.ctx, "s2", 3)
	require.NoError(t, err)
	assert.NotContains(t, alertCodes(out.Alerts), models.AlertCodeTrend)

	// A shallow decline of five points or less stays quiet.
	env.seedWeek(t, "s3", 1, 90)
	env.seedWeek(t, "s3", 2, 88)
	env.seedWeek(t, "s3", 3, 85)
	out, err = env.svc.AlertsForStudent(env.ctx, "s3", 3)
	require.NoError(t, err)
	assert.NotContains(t, alertCodes(out.Alerts), models.AlertCodeTrend)
}

func TestRecurringAlertCountsOncePerWeekBucket(t *testing.T) {
	env := newAnalyticsEnv(t)
	// Annotated and bare spellings of the same label count as one.
	env.seedWeek(t, "s1", 1, 95, "Late (-5đ)")
	env.seedWeek(t, "s1", 2, 95, "Late", "Late")
	env.seedWeek(t, "s1", 3, 95) // clean week is skipped, not counted
	env.seedWeek(t, "s1", 4, 95, "Late")

	out, err := env.svc.AlertsForStudent(env.ctx, "s1", 4)
	require.NoError(t, err)
	assert.Contains(t, alertCodes(out.Alerts), models.AlertCodeRecurring)

	// Two buckets only: no alert.
	env.seedWeek(t, "s2", 1, 95, "Late")
	env.seedWeek(t, "s2", 2, 95, "Late")
	out, err = env.svc.AlertsForStudent(env.ctx, "s2", 2)
	require.NoError(t, err)
	assert.NotContains(t, alertCodes(out.Alerts), models.AlertCodeRecurring)
}

func TestThresholdAlert(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.seedWeek(t, "s1", 1, 40)
	env.seedWeek(t, "s1", 2, 45)

	out, err := env.svc.AlertsForStudent(env.ctx, "s1", 2)
	require.NoError(t, err)
	var found *models.Alert
	for i := range out.Alerts {
		if out.Alerts[i].Code == models.AlertCodeThreshold {
			found = &out.Alerts[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, models.AlertCritical, found.Type)

	// Hovering just above the pass line warns.
	env.seedWeek(t, "s2", 1, 52)
	out, err = env.svc.AlertsForStudent(env.ctx, "s2", 1)
	require.NoError(t, err)
	found = nil
	for i := range out.Alerts {
		if out.Alerts[i].Code == models.AlertCodeThreshold {
			found = &out.Alerts[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, models.AlertWarning, found.Type)

	// Comfortable averages stay quiet.
	env.seedWeek(t, "s3", 1, 90)
	out, err = env.svc.AlertsForStudent(env.ctx, "s3", 1)
	require.NoError(t, err)
	assert.NotContains(t, alertCodes(out.Alerts), models.AlertCodeThreshold)
}

func TestClassAlertsSortsCriticalFirst(t *testing.T) {
	env := newAnalyticsEnv(t)
	require.NoError(t, env.students.Save(env.ctx, &models.Student{ID: "s1", Name: "An", Active: true}))
	require.NoError(t, env.students.Save(env.ctx, &models.Student{ID: "s2", Name: "Bình", Active: true}))
	require.NoError(t, env.students.Save(env.ctx, &models.Student{ID: "s3", Name: "Chi", Active: true}))

	// s2 is the only one in critical decline.
	env.seedWeek(t, "s1", 1, 90)
	env.seedWeek(t, "s1", 2, 90)
	env.seedWeek(t, "s1", 3, 90)
	env.seedWeek(t, "s2", 1, 90)
	env.seedWeek(t, "s2", 2, 80)
	env.seedWeek(t, "s2", 3, 70)
	env.seedWeek(t, "s3", 1, 88)
	env.seedWeek(t, "s3", 2, 88)
	env.seedWeek(t, "s3", 3, 88)

	report, fromCache, err := env.svc.ClassAlerts(env.ctx, 3)
	require.NoError(t, err)
	assert.False(t, fromCache)
	require.Len(t, report, 3)
	assert.Equal(t, "s2", report[0].StudentID)
	assert.Equal(t, "s1", report[1].StudentID)
	assert.Equal(t, "s3", report[2].StudentID)
}
