package repository

import (
	"context"

	"github.com/classroomtools/conductledger/internal/models"
	"github.com/classroomtools/conductledger/internal/store"
)

// SettingsRepository persists the configuration snapshot. The store
// contract deals in lists, so settings travel as a one-element list.
type SettingsRepository struct {
	store store.Store
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(s store.Store) *SettingsRepository {
	return &SettingsRepository{store: s}
}

// Get returns the persisted settings, falling back to defaults for a
// fresh classroom.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var stored []models.Settings
	if err := store.Load(ctx, r.store, store.CollectionSettings, &stored); err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return models.DefaultSettings(), nil
	}
	return &stored[0], nil
}

// Save persists the settings snapshot.
func (r *SettingsRepository) Save(ctx context.Context, settings *models.Settings) error {
	return store.Save(ctx, r.store, store.CollectionSettings, []models.Settings{*settings})
}
