package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classroomtools/conductledger/internal/models"
	appErrors "github.com/classroomtools/conductledger/pkg/errors"
)

// Clock abstracts time for order and grant timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// studentAccount is the student persistence the economy mutates.
type studentAccount interface {
	Find(ctx context.Context, id string) (*models.Student, error)
	Save(ctx context.Context, student *models.Student) error
}

// orderBook persists the purchase workflow.
type orderBook interface {
	Find(ctx context.Context, id string) (*models.PendingOrder, error)
	Save(ctx context.Context, order *models.PendingOrder) error
}

// grantLedger is the settlement audit trail.
type grantLedger interface {
	Find(ctx context.Context, studentID string, week int) (*models.CoinGrant, error)
	Save(ctx context.Context, grant *models.CoinGrant) error
	Delete(ctx context.Context, studentID string, week int) error
}

// EconomyService converts conduct performance into coins and manages
// badges, purchases, and inventory.
type EconomyService struct {
	students  studentAccount
	records   conductHistory
	orders    orderBook
	grants    grantLedger
	settings  settingsRepository
	validator *validator.Validate
	clock     Clock
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEconomyService constructs the service.
func NewEconomyService(students studentAccount, records conductHistory, orders orderBook, grants grantLedger, settings settingsRepository, validate *validator.Validate, clock Clock, metrics *MetricsService, logger *zap.Logger) *EconomyService {
	if validate == nil {
		validate = validator.New()
	}
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EconomyService{
		students:  students,
		records:   records,
		orders:    orders,
		grants:    grants,
		settings:  settings,
		validator: validate,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
	svc.validator.RegisterValidation("item_type", func(fl validator.FieldLevel) bool {
		switch models.ItemType(fl.Field().String()) {
		case models.ItemTypeReward, models.ItemTypeAvatar, models.ItemTypeFrame:
			return true
		default:
			return false
		}
	})
	return svc
}

// SettleWeek credits the coins earned for one student's week and
// records the grant. A week already settled is rejected; undo first.
func (s *EconomyService) SettleWeek(ctx context.Context, studentID string, week int) (*models.CoinGrant, error) {
	if week <= 0 {
		return nil, appErrors.Wrap(appErrors.ErrValidation, appErrors.ErrValidation.Code, "week must be positive")
	}
	if existing, err := s.grants.Find(ctx, studentID, week); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, appErrors.Wrap(appErrors.ErrConflict, appErrors.ErrConflict.Code, "week already settled")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.records.ListStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	var rec, prev *models.ConductRecord
	for i := range history {
		switch history[i].Week {
		case week:
			rec = &history[i]
		case week - 1:
			prev = &history[i]
		}
	}
	if rec == nil {
		return nil, appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "no conduct record for week")
	}

	amount := settlementAmount(rec, prev, settings)
	return s.credit(ctx, studentID, week, amount)
}

// SettleSemester converts the student's all-time rank into the
// configured semester coin bonus, recorded under the reserved week.
func (s *EconomyService) SettleSemester(ctx context.Context, studentID string) (*models.CoinGrant, error) {
	if existing, err := s.grants.Find(ctx, studentID, models.SemesterGrantWeek); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, appErrors.Wrap(appErrors.ErrConflict, appErrors.ErrConflict.Code, "semester already settled")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.records.ListStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "no conduct history")
	}
	sum := 0
	for _, rec := range history {
		sum += rec.Score
	}
	rank := models.RankFor(sum/len(history), settings.Thresholds)
	return s.credit(ctx, studentID, models.SemesterGrantWeek, settings.SemesterCoins[rank])
}

func (s *EconomyService) credit(ctx context.Context, studentID string, week, amount int) (*models.CoinGrant, error) {
	student, err := s.students.Find(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "student not found")
	}

	grant := &models.CoinGrant{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Week:      week,
		Amount:    amount,
		GrantedAt: s.clock.Now(),
	}
	student.Balance += amount
	if err := s.students.Save(ctx, student); err != nil {
		return nil, err
	}
	if err := s.grants.Save(ctx, grant); err != nil {
		return nil, err
	}
	s.metrics.ObserveCoins(amount)
	s.logger.Info("coins settled",
		zap.String("student_id", studentID),
		zap.Int("week", week),
		zap.Int("amount", amount))
	return grant, nil
}

// UndoSettlement reverses exactly the amount previously credited for
// the student's week and removes the grant record.
func (s *EconomyService) UndoSettlement(ctx context.Context, studentID string, week int) error {
	grant, err := s.grants.Find(ctx, studentID, week)
	if err != nil {
		return err
	}
	if grant == nil {
		return appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "week was never settled")
	}
	student, err := s.students.Find(ctx, studentID)
	if err != nil {
		return err
	}
	if student == nil {
		return appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "student not found")
	}

	student.Balance -= grant.Amount
	if student.Balance < 0 {
		s.logger.Warn("undo clamped at zero balance",
			zap.String("student_id", studentID),
			zap.Int("week", week),
			zap.Int("shortfall", -student.Balance))
		student.Balance = 0
	}
	if err := s.students.Save(ctx, student); err != nil {
		return err
	}
	return s.grants.Delete(ctx, studentID, week)
}

// settlementAmount applies the weekly earning formula.
func settlementAmount(rec, prev *models.ConductRecord, settings *models.Settings) int {
	amount := len(rec.Positives) * settings.Coins.BehaviorBonus
	if rec.Score >= settings.Thresholds.Good {
		amount += settings.Coins.WeeklyGoodBonus
	}
	if prev != nil && rec.Score > prev.Score+10 {
		amount += settings.Coins.ImprovementBonus
	}
	if len(rec.Violations) == 0 {
		amount += settings.Coins.CleanSheetBonus
	}
	return amount
}

// CheckBadges re-evaluates every configured badge rule against the
// student's full history. Streak badges are revoked when the streak no
// longer holds; cumulative and one-time badges persist.
func (s *EconomyService) CheckBadges(ctx context.Context, studentID string) ([]string, error) {
	student, err := s.students.Find(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "student not found")
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.records.ListStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(history, func(i, j int) bool { return history[i].Week < history[j].Week })

	changed := false
	for _, rule := range settings.BadgeRules {
		eligible := badgeEligible(rule, history, settings)
		held := student.HasBadge(rule.ID)
		switch {
		case eligible && !held:
			student.GrantBadge(rule.ID)
			changed = true
		case !eligible && held && rule.Revocable():
			student.RevokeBadge(rule.ID)
			changed = true
		}
	}
	if changed {
		if err := s.students.Save(ctx, student); err != nil {
			return nil, err
		}
	}
	return student.Badges, nil
}

func badgeEligible(rule models.BadgeRule, history []models.ConductRecord, settings *models.Settings) bool {
	switch rule.Kind {
	case models.BadgeStreakGood:
		return streakLength(history, func(rec models.ConductRecord) bool {
			return rec.Score >= settings.Thresholds.Good
		}) >= rule.Threshold
	case models.BadgeNoViolationStreak:
		return streakLength(history, func(rec models.ConductRecord) bool {
			return len(rec.Violations) == 0
		}) >= rule.Threshold
	case models.BadgeCountBehavior:
		target := strings.ToLower(models.StripAnnotation(rule.TargetLabel))
		count := 0
		for _, rec := range history {
			for _, entry := range rec.Positives {
				if strings.Contains(strings.ToLower(models.StripAnnotation(entry.Label)), target) {
					count++
				}
			}
		}
		return count >= rule.Threshold
	case models.BadgeImprovement:
		for i := 1; i < len(history); i++ {
			if history[i].Score-history[i-1].Score > 10 {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// streakLength counts consecutive most-recent records satisfying ok.
func streakLength(history []models.ConductRecord, ok func(models.ConductRecord) bool) int {
	n := 0
	for i := len(history) - 1; i >= 0; i-- {
		if !ok(history[i]) {
			break
		}
		n++
	}
	return n
}

// CreateOrderRequest describes a purchase request.
type CreateOrderRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ItemID    string `json:"item_id" validate:"required"`
	ItemType  string `json:"item_type" validate:"required,item_type"`
	Cost      int    `json:"cost" validate:"gt=0"`
}

// CreateOrder debits the cost immediately and opens a PENDING order.
// Insufficient balance is a distinguishable failure with no debit.
func (s *EconomyService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.PendingOrder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid order payload")
	}
	student, err := s.students.Find(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "student not found")
	}
	if student.Balance < req.Cost {
		return nil, appErrors.Wrap(appErrors.ErrInsufficientBalance, appErrors.ErrInsufficientBalance.Code, "not enough coins")
	}

	student.Balance -= req.Cost
	if err := s.students.Save(ctx, student); err != nil {
		return nil, err
	}

	order := &models.PendingOrder{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		ItemID:    req.ItemID,
		ItemType:  models.ItemType(req.ItemType),
		Cost:      req.Cost,
		Status:    models.OrderPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.metrics.ObserveOrder(models.OrderPending)
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("student_id", req.StudentID),
		zap.Int("cost", req.Cost))
	return order, nil
}

// ResolveOrder moves a PENDING order to its terminal state. Rejection
// refunds exactly the cost; approval grants exactly one unit of the
// purchased effect and never re-debits.
func (s *EconomyService) ResolveOrder(ctx context.Context, orderID string, approve bool) (*models.PendingOrder, error) {
	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "order not found")
	}
	if order.Resolved() {
		return nil, appErrors.Wrap(appErrors.ErrOrderResolved, appErrors.ErrOrderResolved.Code, "order already resolved")
	}
	student, err := s.students.Find(ctx, order.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "student not found")
	}

	if approve {
		switch order.ItemType {
		case models.ItemTypeAvatar:
			student.OwnedAvatars = appendUnique(student.OwnedAvatars, order.ItemID)
		case models.ItemTypeFrame:
			student.OwnedFrames = appendUnique(student.OwnedFrames, order.ItemID)
		default:
			student.AddInventory(order.ItemID, 1)
		}
		order.Status = models.OrderApproved
	} else {
		student.Balance += order.Cost
		order.Status = models.OrderRejected
	}
	now := s.clock.Now()
	order.ResolvedAt = &now

	if err := s.students.Save(ctx, student); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.metrics.ObserveOrder(order.Status)
	s.logger.Info("order resolved",
		zap.String("order_id", order.ID),
		zap.String("status", string(order.Status)))
	return order, nil
}

// UseFunctionalItem consumes one unit from the student's inventory.
// Item side effects apply at consumption time, not at purchase.
func (s *EconomyService) UseFunctionalItem(ctx context.Context, studentID, itemID string) error {
	student, err := s.students.Find(ctx, studentID)
	if err != nil {
		return err
	}
	if student == nil {
		return appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "student not found")
	}
	if !student.ConsumeInventory(itemID) {
		return appErrors.Wrap(appErrors.ErrNotFound, appErrors.ErrNotFound.Code, "item not in inventory")
	}
	if itemID == models.SeatPriorityItemID {
		student.SeatPriority = true
	}
	return s.students.Save(ctx, student)
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
