package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroomtools/conductledger/internal/models"
	"github.com/classroomtools/conductledger/internal/repository"
	"github.com/classroomtools/conductledger/internal/store"
	appErrors "github.com/classroomtools/conductledger/pkg/errors"
)

type ledgerEnv struct {
	ctx      context.Context
	settings *repository.SettingsRepository
	records  *repository.ConductRepository
	students *repository.StudentRepository
	svc      *LedgerService
}

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()
	mem := store.NewMemory()
	env := &ledgerEnv{
		ctx:      context.Background(),
		settings: repository.NewSettingsRepository(mem),
		records:  repository.NewConductRepository(mem),
		students: repository.NewStudentRepository(mem),
	}
	env.svc = NewLedgerService(env.records, env.students, env.settings, nil, NewMetricsService(), nil)

	settings := models.DefaultSettings()
	settings.Violations = []models.BehaviorItem{{ID: "v-late", Label: "Late", Points: -5}}
	settings.Positives = []models.BehaviorItem{{ID: "p-help", Label: "Helped classmate", Points: 3}}
	settings.RoleBudgets = map[string]int{"monitor": 5}
	require.NoError(t, env.settings.Save(env.ctx, settings))

	require.NoError(t, env.students.Save(env.ctx, &models.Student{ID: "s1", Name: "An", Active: true}))
	require.NoError(t, env.students.Save(env.ctx, &models.Student{ID: "s2", Name: "Bình", Active: true}))
	require.NoError(t, env.students.Save(env.ctx, &models.Student{ID: "s3", Name: "Cũ", Active: false}))
	return env
}

func lateAdjustment(delta int) AdjustmentRequest {
	return AdjustmentRequest{StudentID: "s1", Week: 3, Label: "Late", Points: -5, Delta: delta}
}

func TestApplyAdjustmentLifecycle(t *testing.T) {
	env := newLedgerEnv(t)

	rec, err := env.svc.ApplyAdjustment(env.ctx, lateAdjustment(1))
	require.NoError(t, err)
	assert.Equal(t, 95, rec.Score)
	assert.Len(t, rec.Violations, 1)

	rec, err = env.svc.ApplyAdjustment(env.ctx, lateAdjustment(1))
	require.NoError(t, err)
	assert.Equal(t, 90, rec.Score)
	assert.Len(t, rec.Violations, 2)

	rec, err = env.svc.ApplyAdjustment(env.ctx, lateAdjustment(-1))
	require.NoError(t, err)
	assert.Equal(t, 95, rec.Score)
	assert.Len(t, rec.Violations, 1)

	// Score invariant: stored score matches a fresh recompute.
	settings, err := env.settings.Get(env.ctx)
	require.NoError(t, err)
	stored, err := env.records.Find(env.ctx, "s1", 3)
	require.NoError(t, err)
	assert.Equal(t, settings.RecomputeScore(stored), stored.Score)
}

func TestApplyAdjustmentValidation(t *testing.T) {
	env := newLedgerEnv(t)

	_, err := env.svc.ApplyAdjustment(env.ctx, AdjustmentRequest{StudentID: "s1", Week: 3, Label: "Late", Delta: 2})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = env.svc.ApplyAdjustment(env.ctx, AdjustmentRequest{StudentID: "s1", Week: 0, Label: "Late", Delta: 1})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestApplyAdjustmentLockedWeekIsSilentNoop(t *testing.T) {
	env := newLedgerEnv(t)

	rec, err := env.svc.ApplyAdjustment(env.ctx, lateAdjustment(1))
	require.NoError(t, err)
	require.Equal(t, 95, rec.Score)

	require.NoError(t, env.svc.Lock(env.ctx, 3))

	rec, err = env.svc.ApplyAdjustment(env.ctx, lateAdjustment(1))
	require.NoError(t, err)
	assert.Equal(t, 95, rec.Score)
	assert.Len(t, rec.Violations, 1)

	require.NoError(t, env.svc.Unlock(env.ctx, 3))
	rec, err = env.svc.ApplyAdjustment(env.ctx, lateAdjustment(1))
	require.NoError(t, err)
	assert.Equal(t, 90, rec.Score)
}

func TestApplyAdjustmentRoleBudget(t *testing.T) {
	env := newLedgerEnv(t)

	req := lateAdjustment(1)
	req.Points = -8
	req.ActorRole = "monitor"
	_, err := env.svc.ApplyAdjustment(env.ctx, req)
	require.ErrorIs(t, err, appErrors.ErrBudgetExceeded)

	req.Points = -5
	_, err = env.svc.ApplyAdjustment(env.ctx, req)
	require.NoError(t, err)
}

func TestBatchClassBonusTouchesEveryActiveStudent(t *testing.T) {
	env := newLedgerEnv(t)

	// s1 already has a record this week; s2 gets a fresh one; s3 is inactive.
	_, err := env.svc.ApplyAdjustment(env.ctx, lateAdjustment(1))
	require.NoError(t, err)

	touched, err := env.svc.BatchClassBonus(env.ctx, 3, 3, "Helped classmate")
	require.NoError(t, err)
	assert.Equal(t, 2, touched)

	s1, err := env.records.Find(env.ctx, "s1", 3)
	require.NoError(t, err)
	assert.Equal(t, 98, s1.Score)
	assert.Len(t, s1.Positives, 1)

	s2, err := env.records.Find(env.ctx, "s2", 3)
	require.NoError(t, err)
	assert.Equal(t, 100, s2.Score) // clamped from 103
	assert.Len(t, s2.Positives, 1)

	s3, err := env.records.Find(env.ctx, "s3", 3)
	require.NoError(t, err)
	assert.Nil(t, s3)
}

func TestBatchClassPenaltyLockedWeek(t *testing.T) {
	env := newLedgerEnv(t)
	require.NoError(t, env.svc.Lock(env.ctx, 3))

	touched, err := env.svc.BatchClassPenalty(env.ctx, 3, -5, "Late")
	require.NoError(t, err)
	assert.Zero(t, touched)

	records, err := env.records.List(env.ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFillMissingIsIdempotent(t *testing.T) {
	env := newLedgerEnv(t)

	_, err := env.svc.ApplyAdjustment(env.ctx, lateAdjustment(1))
	require.NoError(t, err)

	created, err := env.svc.FillMissing(env.ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, err = env.svc.FillMissing(env.ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, created)

	records, err := env.records.ListWeek(env.ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	s2, err := env.records.Find(env.ctx, "s2", 3)
	require.NoError(t, err)
	assert.Equal(t, 100, s2.Score)
	assert.Empty(t, s2.Violations)
	assert.Empty(t, s2.Positives)
}

func TestClearWeek(t *testing.T) {
	env := newLedgerEnv(t)

	_, err := env.svc.ApplyAdjustment(env.ctx, lateAdjustment(1))
	require.NoError(t, err)
	other := lateAdjustment(1)
	other.Week = 4
	_, err = env.svc.ApplyAdjustment(env.ctx, other)
	require.NoError(t, err)

	require.NoError(t, env.svc.ClearWeek(env.ctx, 3))

	records, err := env.records.List(env.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 4, records[0].Week)
}
