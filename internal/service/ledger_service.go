package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classroomtools/conductledger/internal/models"
	appErrors "github.com/classroomtools/conductledger/pkg/errors"
)

// conductRepository is the record persistence the ledger mutates.
type conductRepository interface {
	List(ctx context.Context) ([]models.ConductRecord, error)
	Find(ctx context.Context, studentID string, week int) (*models.ConductRecord, error)
	Save(ctx context.Context, rec *models.ConductRecord) error
	SaveAll(ctx context.Context, records []models.ConductRecord) error
	DeleteWeek(ctx context.Context, week int) error
}

// studentRoster exposes the active class roster for batch operations.
type studentRoster interface {
	ListActive(ctx context.Context) ([]models.Student, error)
}

// LedgerService owns per-student-per-week conduct records and the
// week-lock state machine.
type LedgerService struct {
	records   conductRepository
	students  studentRoster
	settings  settingsRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLedgerService constructs the service.
func NewLedgerService(records conductRepository, students studentRoster, settings settingsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		records:   records,
		students:  students,
		settings:  settings,
		cache:     cache,
		metrics:   metrics,
		validator: validator.New(),
		logger:    logger,
	}
}

// IsLocked reports whether the week is closed for edits.
func (s *LedgerService) IsLocked(ctx context.Context, week int) (bool, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return false, err
	}
	return settings.IsLocked(week), nil
}

// Lock closes the week for edits.
func (s *LedgerService) Lock(ctx context.Context, week int) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	settings.Lock(week)
	return s.settings.Save(ctx, settings)
}

// Unlock reopens the week.
func (s *LedgerService) Unlock(ctx context.Context, week int) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	settings.Unlock(week)
	return s.settings.Save(ctx, settings)
}

// AdjustmentRequest describes one behavior application or removal.
// Delta +1 appends an occurrence, -1 removes the first matching one.
// ActorRole is optional; when set, the role's point budget applies.
type AdjustmentRequest struct {
	StudentID string `validate:"required"`
	Week      int    `validate:"gt=0"`
	Label     string `validate:"required"`
	Points    int
	Positive  bool
	Delta     int    `validate:"oneof=-1 1"`
	ActorRole string `validate:"-"`
}

// ApplyAdjustment mutates one student's week. The record is created at
// the default score on first touch. Mutations on a locked week are
// silent no-ops and return the record unchanged.
func (s *LedgerService) ApplyAdjustment(ctx context.Context, req AdjustmentRequest) (*models.ConductRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid adjustment")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.IsLocked(req.Week) {
		s.logger.Debug("adjustment ignored, week locked",
			zap.String("student_id", req.StudentID),
			zap.Int("week", req.Week))
		return s.records.Find(ctx, req.StudentID, req.Week)
	}
	if req.ActorRole != "" && !settings.WithinRoleBudget(req.ActorRole, req.Points) {
		return nil, appErrors.Wrap(appErrors.ErrBudgetExceeded, appErrors.ErrBudgetExceeded.Code, "adjustment exceeds role budget")
	}

	rec, err := s.records.Find(ctx, req.StudentID, req.Week)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &models.ConductRecord{
			ID:        uuid.NewString(),
			StudentID: req.StudentID,
			Week:      req.Week,
			Score:     settings.DefaultScore,
		}
	}

	entry := models.BehaviorEntry{Label: req.Label, Points: req.Points}
	if req.Delta > 0 {
		if req.Positive {
			rec.Positives = append(rec.Positives, entry)
		} else {
			rec.Violations = append(rec.Violations, entry)
		}
	} else {
		if req.Positive {
			rec.Positives = removeFirst(rec.Positives, req.Label)
		} else {
			rec.Violations = removeFirst(rec.Violations, req.Label)
		}
	}

	rec.Score = settings.RecomputeScore(rec)
	rec.UpdatedAt = time.Now().UTC()
	if err := s.records.Save(ctx, rec); err != nil {
		return nil, err
	}
	s.metrics.ObserveAdjustment(req.Delta)
	s.invalidateAlerts(ctx)
	return rec, nil
}

// BatchClassBonus appends a positive occurrence for every active
// student in one conceptual transaction.
func (s *LedgerService) BatchClassBonus(ctx context.Context, week, points int, label string) (int, error) {
	return s.batchApply(ctx, week, points, label, true)
}

// BatchClassPenalty appends a violation occurrence for every active
// student in one conceptual transaction.
func (s *LedgerService) BatchClassPenalty(ctx context.Context, week, points int, label string) (int, error) {
	return s.batchApply(ctx, week, points, label, false)
}

func (s *LedgerService) batchApply(ctx context.Context, week, points int, label string, positive bool) (int, error) {
	if label == "" {
		return 0, appErrors.Wrap(appErrors.ErrValidation, appErrors.ErrValidation.Code, "label must not be blank")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	if settings.IsLocked(week) {
		s.logger.Debug("batch adjustment ignored, week locked", zap.Int("week", week))
		return 0, nil
	}

	students, err := s.students.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	records, err := s.records.List(ctx)
	if err != nil {
		return 0, err
	}

	byStudent := make(map[string]int, len(records))
	for i := range records {
		if records[i].Week == week {
			byStudent[records[i].StudentID] = i
		}
	}

	entry := models.BehaviorEntry{Label: label, Points: points}
	now := time.Now().UTC()
	touched := 0
	for _, student := range students {
		idx, ok := byStudent[student.ID]
		if !ok {
			records = append(records, models.ConductRecord{
				ID:        uuid.NewString(),
				StudentID: student.ID,
				Week:      week,
				Score:     settings.DefaultScore,
			})
			idx = len(records) - 1
		}
		rec := &records[idx]
		if positive {
			rec.Positives = append(rec.Positives, entry)
		} else {
			rec.Violations = append(rec.Violations, entry)
		}
		rec.Score = settings.RecomputeScore(rec)
		rec.UpdatedAt = now
		touched++
	}

	if err := s.records.SaveAll(ctx, records); err != nil {
		return 0, err
	}
	s.metrics.ObserveRecompute(touched)
	s.invalidateAlerts(ctx)
	s.logger.Info("batch adjustment applied",
		zap.Int("week", week),
		zap.String("label", label),
		zap.Bool("positive", positive),
		zap.Int("students", touched))
	return touched, nil
}

// FillMissing creates a default record for every active student without
// one in the week. Idempotent.
func (s *LedgerService) FillMissing(ctx context.Context, week int) (int, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	if settings.IsLocked(week) {
		s.logger.Debug("fill ignored, week locked", zap.Int("week", week))
		return 0, nil
	}

	students, err := s.students.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	records, err := s.records.List(ctx)
	if err != nil {
		return 0, err
	}

	have := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.Week == week {
			have[rec.StudentID] = true
		}
	}

	now := time.Now().UTC()
	created := 0
	for _, student := range students {
		if have[student.ID] {
			continue
		}
		records = append(records, models.ConductRecord{
			ID:        uuid.NewString(),
			StudentID: student.ID,
			Week:      week,
			Score:     settings.DefaultScore,
			UpdatedAt: now,
		})
		created++
	}
	if created == 0 {
		return 0, nil
	}
	if err := s.records.SaveAll(ctx, records); err != nil {
		return 0, err
	}
	return created, nil
}

// ClearWeek deletes every record of the week. Irreversible.
func (s *LedgerService) ClearWeek(ctx context.Context, week int) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if settings.IsLocked(week) {
		s.logger.Debug("clear ignored, week locked", zap.Int("week", week))
		return nil
	}
	if err := s.records.DeleteWeek(ctx, week); err != nil {
		return err
	}
	s.invalidateAlerts(ctx)
	s.logger.Info("week cleared", zap.Int("week", week))
	return nil
}

func (s *LedgerService) invalidateAlerts(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "alerts:*"); err != nil {
		s.logger.Warn("alert cache invalidation failed", zap.Error(err))
	}
}

// removeFirst drops the first occurrence of the label, exact match.
func removeFirst(entries []models.BehaviorEntry, label string) []models.BehaviorEntry {
	for i := range entries {
		if entries[i].Label == label {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}
