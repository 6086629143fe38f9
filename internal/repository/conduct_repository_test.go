package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroomtools/conductledger/internal/models"
	"github.com/classroomtools/conductledger/internal/store"
)

func TestConductRepositoryEnforcesNaturalKey(t *testing.T) {
	ctx := context.Background()
	repo := NewConductRepository(store.NewMemory())

	require.NoError(t, repo.Save(ctx, &models.ConductRecord{ID: "r1", StudentID: "s1", Week: 3, Score: 95}))
	require.NoError(t, repo.Save(ctx, &models.ConductRecord{ID: "r2", StudentID: "s1", Week: 3, Score: 90}))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 90, records[0].Score)

	rec, err := repo.Find(ctx, "s1", 3)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "r2", rec.ID)

	rec, err = repo.Find(ctx, "s1", 4)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestConductRepositoryDeleteWeek(t *testing.T) {
	ctx := context.Background()
	repo := NewConductRepository(store.NewMemory())

	require.NoError(t, repo.Save(ctx, &models.ConductRecord{ID: "r1", StudentID: "s1", Week: 3}))
	require.NoError(t, repo.Save(ctx, &models.ConductRecord{ID: "r2", StudentID: "s2", Week: 3}))
	require.NoError(t, repo.Save(ctx, &models.ConductRecord{ID: "r3", StudentID: "s1", Week: 4}))

	require.NoError(t, repo.DeleteWeek(ctx, 3))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 4, records[0].Week)
}

func TestConductRepositoryNormalizesLegacyEntriesOnLoad(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, store.Save(ctx, mem, store.CollectionConductRecords, []models.ConductRecord{{
		ID:         "r1",
		StudentID:  "s1",
		Week:       1,
		Violations: []models.BehaviorEntry{{Label: "Nói chuyện riêng (-5đ)"}},
	}}))

	repo := NewConductRepository(mem)
	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.BehaviorEntry{Label: "Nói chuyện riêng", Points: -5}, records[0].Violations[0])
}

func TestConductRepositoryListStudentSortsByWeek(t *testing.T) {
	ctx := context.Background()
	repo := NewConductRepository(store.NewMemory())

	require.NoError(t, repo.Save(ctx, &models.ConductRecord{ID: "r1", StudentID: "s1", Week: 5}))
	require.NoError(t, repo.Save(ctx, &models.ConductRecord{ID: "r2", StudentID: "s1", Week: 2}))
	require.NoError(t, repo.Save(ctx, &models.ConductRecord{ID: "r3", StudentID: "s2", Week: 1}))

	records, err := repo.ListStudent(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[0].Week)
	assert.Equal(t, 5, records[1].Week)
}
