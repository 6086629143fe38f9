package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/classroomtools/conductledger/internal/models"
	appErrors "github.com/classroomtools/conductledger/pkg/errors"
)

// Alert rule tuning.
const (
	dropGap          = 15
	trendWindow      = 3
	trendMinDecline  = 5
	recurringBuckets = 3
	recurringHits    = 3
	thresholdMargin  = 3
)

// conductHistory is the read-only record access analytics needs.
type conductHistory interface {
	List(ctx context.Context) ([]models.ConductRecord, error)
	ListStudent(ctx context.Context, studentID string) ([]models.ConductRecord, error)
}

// AnalyticsService produces per-student risk signals from conduct
// history. It never mutates ledger state.
type AnalyticsService struct {
	records  conductHistory
	students studentRoster
	settings settingsRepository
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(records conductHistory, students studentRoster, settings settingsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{records: records, students: students, settings: settings, cache: cache, metrics: metrics, logger: logger}
}

// AlertsForStudent evaluates every rule over the student's history up
// to the as-of week.
func (s *AnalyticsService) AlertsForStudent(ctx context.Context, studentID string, asOfWeek int) (models.StudentAlerts, error) {
	if asOfWeek <= 0 {
		return models.StudentAlerts{}, appErrors.Wrap(appErrors.ErrValidation, appErrors.ErrValidation.Code, "as-of week must be positive")
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return models.StudentAlerts{}, err
	}
	history, err := s.records.ListStudent(ctx, studentID)
	if err != nil {
		return models.StudentAlerts{}, err
	}
	return evaluateStudent(studentID, "", history, settings, asOfWeek), nil
}

// ClassAlerts evaluates the whole roster. Students carrying any
// CRITICAL alert sort first; input order is otherwise preserved. The
// boolean indicates whether the report came from cache.
func (s *AnalyticsService) ClassAlerts(ctx context.Context, asOfWeek int) ([]models.StudentAlerts, bool, error) {
	if asOfWeek <= 0 {
		return nil, false, appErrors.Wrap(appErrors.ErrValidation, appErrors.ErrValidation.Code, "as-of week must be positive")
	}

	cacheKey := fmt.Sprintf("alerts:class:%d", asOfWeek)
	var cached []models.StudentAlerts
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, true, nil
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, false, err
	}
	records, err := s.records.List(ctx)
	if err != nil {
		return nil, false, err
	}

	byStudent := make(map[string][]models.ConductRecord, len(students))
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}
	for id := range byStudent {
		history := byStudent[id]
		sort.SliceStable(history, func(i, j int) bool { return history[i].Week < history[j].Week })
		byStudent[id] = history
	}

	report := make([]models.StudentAlerts, 0, len(students))
	for _, student := range students {
		report = append(report, evaluateStudent(student.ID, student.Name, byStudent[student.ID], settings, asOfWeek))
	}
	sort.SliceStable(report, func(i, j int) bool {
		return report[i].HasCritical() && !report[j].HasCritical()
	})

	if err := s.cache.Set(ctx, cacheKey, report, 0); err != nil {
		s.logger.Warn("cache class alerts", zap.Error(err))
	}
	return report, false, nil
}

// evaluateStudent runs all rules independently; each may fire.
// history must be sorted by week ascending.
func evaluateStudent(studentID, name string, history []models.ConductRecord, settings *models.Settings, asOfWeek int) models.StudentAlerts {
	visible := history[:0:0]
	for _, rec := range history {
		if rec.Week <= asOfWeek {
			visible = append(visible, rec)
		}
	}

	out := models.StudentAlerts{StudentID: studentID, StudentName: name}
	if len(visible) == 0 {
		return out
	}
	out.Rank = models.RankFor(visible[len(visible)-1].Score, settings.Thresholds)

	if a := evaluateDrop(visible); a != nil {
		out.Alerts = append(out.Alerts, *a)
	}
	if a := evaluateTrend(visible); a != nil {
		out.Alerts = append(out.Alerts, *a)
	}
	if a := evaluateRecurring(visible); a != nil {
		out.Alerts = append(out.Alerts, *a)
	}
	if a := evaluateThreshold(visible, settings.Thresholds); a != nil {
		out.Alerts = append(out.Alerts, *a)
	}
	return out
}

// evaluateDrop compares the current week against the average of the
// preceding one to three weeks.
func evaluateDrop(history []models.ConductRecord) *models.Alert {
	if len(history) < 2 {
		return nil
	}
	current := history[len(history)-1]
	prior := history[:len(history)-1]
	if len(prior) > 3 {
		prior = prior[len(prior)-3:]
	}
	sum := 0
	for _, rec := range prior {
		sum += rec.Score
	}
	avg := float64(sum) / float64(len(prior))
	if avg-float64(current.Score) >= dropGap {
		return &models.Alert{
			Type:    models.AlertWarning,
			Code:    models.AlertCodeDrop,
			Message: fmt.Sprintf("score dropped to %d, %.1f below the recent average of %.1f", current.Score, avg-float64(current.Score), avg),
		}
	}
	return nil
}

// evaluateTrend looks for a strict three-week decline of more than
// trendMinDecline points in total.
func evaluateTrend(history []models.ConductRecord) *models.Alert {
	if len(history) < trendWindow {
		return nil
	}
	last := history[len(history)-trendWindow:]
	for i := 1; i < len(last); i++ {
		if last[i-1].Score <= last[i].Score {
			return nil
		}
	}
	decline := last[0].Score - last[len(last)-1].Score
	if decline <= trendMinDecline {
		return nil
	}
	return &models.Alert{
		Type:    models.AlertCritical,
		Code:    models.AlertCodeTrend,
		Message: fmt.Sprintf("score declined three weeks in a row, %d points total", decline),
	}
}

// evaluateRecurring counts each bare violation label once per week
// bucket, across the most recent up-to-three violation-bearing weeks.
func evaluateRecurring(history []models.ConductRecord) *models.Alert {
	buckets := 0
	hits := make(map[string]int)
	for i := len(history) - 1; i >= 0 && buckets < recurringBuckets; i-- {
		if len(history[i].Violations) == 0 {
			continue
		}
		buckets++
		seen := make(map[string]bool)
		for _, entry := range history[i].Violations {
			label := models.StripAnnotation(entry.Label)
			if !seen[label] {
				seen[label] = true
				hits[label]++
			}
		}
	}

	var recurring []string
	for label, n := range hits {
		if n >= recurringHits {
			recurring = append(recurring, label)
		}
	}
	if len(recurring) == 0 {
		return nil
	}
	sort.Strings(recurring)
	return &models.Alert{
		Type:    models.AlertWarning,
		Code:    models.AlertCodeRecurring,
		Message: fmt.Sprintf("violation repeated across %d recent weeks: %s", recurringHits, recurring[0]),
	}
}

// evaluateThreshold checks the all-time average against the pass line.
func evaluateThreshold(history []models.ConductRecord, t models.Thresholds) *models.Alert {
	sum := 0
	for _, rec := range history {
		sum += rec.Score
	}
	avg := float64(sum) / float64(len(history))
	pass := float64(t.Pass)
	switch {
	case avg < pass:
		return &models.Alert{
			Type:    models.AlertCritical,
			Code:    models.AlertCodeThreshold,
			Message: fmt.Sprintf("all-time average %.1f is below the pass line of %d", avg, t.Pass),
		}
	case avg <= pass+thresholdMargin:
		return &models.Alert{
			Type:    models.AlertWarning,
			Code:    models.AlertCodeThreshold,
			Message: fmt.Sprintf("all-time average %.1f sits within %d points of the pass line", avg, thresholdMargin),
		}
	default:
		return nil
	}
}
