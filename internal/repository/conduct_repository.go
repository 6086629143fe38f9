package repository

import (
	"context"
	"sort"

	"github.com/classroomtools/conductledger/internal/models"
	"github.com/classroomtools/conductledger/internal/store"
)

// ConductRepository is the single source of truth for conduct records.
// It persists the whole collection on every write, which keeps batch
// operations atomic with respect to the store contract.
type ConductRepository struct {
	store store.Store
}

// NewConductRepository constructs the repository.
func NewConductRepository(s store.Store) *ConductRepository {
	return &ConductRepository{store: s}
}

// List returns every record, legacy entries normalized.
func (r *ConductRepository) List(ctx context.Context) ([]models.ConductRecord, error) {
	var records []models.ConductRecord
	if err := store.Load(ctx, r.store, store.CollectionConductRecords, &records); err != nil {
		return nil, err
	}
	for i := range records {
		records[i].NormalizeLegacyEntries()
	}
	return records, nil
}

// ListWeek returns the records of one week.
func (r *ConductRepository) ListWeek(ctx context.Context, week int) ([]models.ConductRecord, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := records[:0]
	for _, rec := range records {
		if rec.Week == week {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListStudent returns one student's history sorted by week ascending.
func (r *ConductRepository) ListStudent(ctx context.Context, studentID string) ([]models.ConductRecord, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.ConductRecord
	for _, rec := range records {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out, nil
}

// Find returns the record for the (studentID, week) natural key, or nil
// when none exists.
func (r *ConductRepository) Find(ctx context.Context, studentID string, week int) (*models.ConductRecord, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].StudentID == studentID && records[i].Week == week {
			return &records[i], nil
		}
	}
	return nil, nil
}

// Save upserts one record by its natural key.
func (r *ConductRepository) Save(ctx context.Context, rec *models.ConductRecord) error {
	records, err := r.List(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range records {
		if records[i].StudentID == rec.StudentID && records[i].Week == rec.Week {
			records[i] = *rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, *rec)
	}
	return store.Save(ctx, r.store, store.CollectionConductRecords, records)
}

// SaveAll replaces the whole collection in a single write.
func (r *ConductRepository) SaveAll(ctx context.Context, records []models.ConductRecord) error {
	return store.Save(ctx, r.store, store.CollectionConductRecords, records)
}

// DeleteWeek removes every record of the week. Irreversible.
func (r *ConductRepository) DeleteWeek(ctx context.Context, week int) error {
	records, err := r.List(ctx)
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, rec := range records {
		if rec.Week != week {
			kept = append(kept, rec)
		}
	}
	return store.Save(ctx, r.store, store.CollectionConductRecords, kept)
}
