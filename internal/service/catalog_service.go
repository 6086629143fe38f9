package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classroomtools/conductledger/internal/models"
	appErrors "github.com/classroomtools/conductledger/pkg/errors"
)

// settingsRepository persists the configuration snapshot, including the
// behavior catalog and the lock set.
type settingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, settings *models.Settings) error
}

// conductCollection is the full-collection view the catalog needs for
// label migration and global recomputation.
type conductCollection interface {
	List(ctx context.Context) ([]models.ConductRecord, error)
	SaveAll(ctx context.Context, records []models.ConductRecord) error
}

// CatalogService maintains the behavior catalog and keeps every conduct
// record's score consistent with it.
type CatalogService struct {
	settings  settingsRepository
	records   conductCollection
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(settings settingsRepository, records conductCollection, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{settings: settings, records: records, validator: validate, metrics: metrics, logger: logger}
}

// AddBehaviorRequest describes a new catalog entry.
type AddBehaviorRequest struct {
	Label    string `json:"label" validate:"required"`
	Points   int    `json:"points"`
	Category string `json:"category"`
	Positive bool   `json:"positive"`
}

// AddBehavior appends a new catalog entry.
func (s *CatalogService) AddBehavior(ctx context.Context, req AddBehaviorRequest) (*models.BehaviorItem, error) {
	req.Label = strings.TrimSpace(req.Label)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid behavior payload")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.HasLabel(req.Label) {
		return nil, appErrors.Wrap(appErrors.ErrConflict, appErrors.ErrConflict.Code, "behavior label already exists")
	}

	item := models.BehaviorItem{
		ID:       uuid.NewString(),
		Label:    req.Label,
		Points:   req.Points,
		Category: req.Category,
	}
	if req.Positive {
		settings.Positives = append(settings.Positives, item)
	} else {
		settings.Violations = append(settings.Violations, item)
	}

	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, err
	}
	s.logger.Info("behavior added",
		zap.String("label", item.Label),
		zap.Int("points", item.Points),
		zap.Bool("positive", req.Positive))
	return &item, nil
}

// EditBehaviorRequest describes an in-place catalog update.
type EditBehaviorRequest struct {
	Label    string `json:"label" validate:"required"`
	Points   int    `json:"points"`
	Category string `json:"category"`
}

// EditBehavior updates a catalog entry, migrates the old label across
// every conduct record, then recomputes every score. The three effects
// always run together, in that order.
func (s *CatalogService) EditBehavior(ctx context.Context, id string, req EditBehaviorRequest) (*models.BehaviorItem, error) {
	req.Label = strings.TrimSpace(req.Label)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid behavior payload")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	item, _ := settings.FindBehavior(id)
	if item == nil {
		return nil, appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "behavior not found")
	}
	if req.Label != item.Label && settings.HasLabel(req.Label) {
		return nil, appErrors.Wrap(appErrors.ErrConflict, appErrors.ErrConflict.Code, "behavior label already exists")
	}

	oldLabel := item.Label
	item.Label = req.Label
	item.Points = req.Points
	item.Category = req.Category

	records, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}
	migrated := 0
	for i := range records {
		migrated += migrateLabel(records[i].Violations, oldLabel, req.Label, req.Points)
		migrated += migrateLabel(records[i].Positives, oldLabel, req.Label, req.Points)
	}
	for i := range records {
		records[i].Score = settings.RecomputeScore(&records[i])
		records[i].UpdatedAt = time.Now().UTC()
	}
	s.metrics.ObserveRecompute(len(records))

	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, err
	}
	if err := s.records.SaveAll(ctx, records); err != nil {
		return nil, err
	}

	s.logger.Info("behavior edited",
		zap.String("old_label", oldLabel),
		zap.String("new_label", req.Label),
		zap.Int("migrated_occurrences", migrated),
		zap.Int("recomputed_records", len(records)))
	return item, nil
}

// DeleteBehavior removes the catalog entry only. Historical records
// keep the orphaned label; its point effect survives through the
// occurrence-captured points.
func (s *CatalogService) DeleteBehavior(ctx context.Context, id string) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}

	removed := false
	for i := range settings.Violations {
		if settings.Violations[i].ID == id {
			settings.Violations = append(settings.Violations[:i], settings.Violations[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		for i := range settings.Positives {
			if settings.Positives[i].ID == id {
				settings.Positives = append(settings.Positives[:i], settings.Positives[i+1:]...)
				removed = true
				break
			}
		}
	}
	if !removed {
		return appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "behavior not found")
	}

	return s.settings.Save(ctx, settings)
}

// RecalculateAll recomputes every record under the current catalog and
// persists the result in one write.
func (s *CatalogService) RecalculateAll(ctx context.Context) (int, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	records, err := s.records.List(ctx)
	if err != nil {
		return 0, err
	}
	for i := range records {
		records[i].Score = settings.RecomputeScore(&records[i])
	}
	s.metrics.ObserveRecompute(len(records))
	if err := s.records.SaveAll(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// migrateLabel rewrites every occurrence of oldLabel in place, exact
// string match only, refreshing the captured points as it goes.
func migrateLabel(entries []models.BehaviorEntry, oldLabel, newLabel string, points int) int {
	n := 0
	for i := range entries {
		if entries[i].Label == oldLabel {
			entries[i].Label = newLabel
			entries[i].Points = points
			n++
		}
	}
	return n
}
