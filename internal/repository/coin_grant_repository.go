package repository

import (
	"context"

	"github.com/classroomtools/conductledger/internal/models"
	"github.com/classroomtools/conductledger/internal/store"
)

// CoinGrantRepository persists the settlement audit trail.
type CoinGrantRepository struct {
	store store.Store
}

// NewCoinGrantRepository constructs the repository.
func NewCoinGrantRepository(s store.Store) *CoinGrantRepository {
	return &CoinGrantRepository{store: s}
}

// List returns every grant.
func (r *CoinGrantRepository) List(ctx context.Context) ([]models.CoinGrant, error) {
	var grants []models.CoinGrant
	if err := store.Load(ctx, r.store, store.CollectionCoinGrants, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// Find returns the grant for a (studentID, week), or nil when the week
// was never settled.
func (r *CoinGrantRepository) Find(ctx context.Context, studentID string, week int) (*models.CoinGrant, error) {
	grants, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range grants {
		if grants[i].StudentID == studentID && grants[i].Week == week {
			return &grants[i], nil
		}
	}
	return nil, nil
}

// Save appends or replaces the grant for its (studentID, week).
func (r *CoinGrantRepository) Save(ctx context.Context, grant *models.CoinGrant) error {
	grants, err := r.List(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range grants {
		if grants[i].StudentID == grant.StudentID && grants[i].Week == grant.Week {
			grants[i] = *grant
			replaced = true
			break
		}
	}
	if !replaced {
		grants = append(grants, *grant)
	}
	return store.Save(ctx, r.store, store.CollectionCoinGrants, grants)
}

// Delete removes the grant for a (studentID, week).
func (r *CoinGrantRepository) Delete(ctx context.Context, studentID string, week int) error {
	grants, err := r.List(ctx)
	if err != nil {
		return err
	}
	kept := grants[:0]
	for _, g := range grants {
		if g.StudentID != studentID || g.Week != week {
			kept = append(kept, g)
		}
	}
	return store.Save(ctx, r.store, store.CollectionCoinGrants, kept)
}
