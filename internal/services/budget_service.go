package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/calendar"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

const (
	minAlertPercentage = 50
	maxAlertPercentage = 100
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db, now: time.Now}
}

// CreateBudget creates a budget whose first window contains in.StartDate.
func (s *budgetService) CreateBudget(userID string, in BudgetInput) (*models.Budget, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if !in.Category.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown expense category")
	}
	if in.AlertPercentage == 0 {
		in.AlertPercentage = models.DefaultAlertPercentage
	}
	if err := checkAlertPercentage(in.AlertPercentage); err != nil {
		return nil, err
	}

	start := in.StartDate
	if start.IsZero() {
		start = s.now()
	}
	window, err := calendar.PeriodWindow(in.Period, start)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown budget period")
	}

	budget := &models.Budget{
		UserID:          userID,
		Name:            in.Name,
		Category:        in.Category,
		Amount:          in.Amount,
		Period:          in.Period,
		IsFixed:         in.IsFixed,
		RolloverEnabled: in.RolloverEnabled,
		RolloverAmount:  decimal.Zero,
		AlertPercentage: in.AlertPercentage,
		PeriodStart:     window.Start,
		IsActive:        true,
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	budget.Evaluate(decimal.Zero)
	return budget, nil
}

// GetUserBudgets returns a paginated list of budgets for the user with optional filters.
func (s *budgetService) GetUserBudgets(
	userID string,
	page pagination.PageRequest,
	isActive *bool,
	period *calendar.Period,
) (*pagination.PageResponse[models.Budget], error) {
	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}
	if period != nil {
		base = base.Where("period = ?", *period)
	}

	result, err := pagination.Find[models.Budget](base, page, "name ASC, id ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := s.now()
	for i := range result.Data {
		if _, err := s.evaluate(&result.Data[i], now); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user, evaluated for today.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	budget, err := s.find(userID, budgetID)
	if err != nil {
		return nil, err
	}
	if _, err := s.evaluate(budget, s.now()); err != nil {
		return nil, err
	}
	return budget, nil
}

// UpdateBudget updates an existing budget's fields.
func (s *budgetService) UpdateBudget(userID, budgetID string, in BudgetUpdate) (*models.Budget, error) {
	budget, err := s.find(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name cannot be empty")
		}
		updates["name"] = *in.Name
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, apperrors.ErrInvalidAmount
		}
		updates["amount"] = *in.Amount
	}
	if in.AlertPercentage != nil {
		if err := checkAlertPercentage(*in.AlertPercentage); err != nil {
			return nil, err
		}
		updates["alert_percentage"] = *in.AlertPercentage
	}
	if in.IsFixed != nil {
		updates["is_fixed"] = *in.IsFixed
	}
	if in.RolloverEnabled != nil {
		updates["rollover_enabled"] = *in.RolloverEnabled
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetBudgetByID(userID, budgetID)
}

// DeleteBudget soft-deletes a budget and unlinks its expenses.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.find(userID, budgetID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Expense{}).Where("budget_id = ?", budget.ID).Update("budget_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetBudgetProgress reports spending against the budget in the window containing today.
func (s *budgetService) GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.find(userID, budgetID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	window, err := s.evaluate(budget, now)
	if err != nil {
		return nil, err
	}

	return &BudgetProgress{
		BudgetID:       budget.ID,
		PeriodStart:    window.Start,
		PeriodEnd:      window.Last(),
		Budgeted:       budget.Amount,
		RolloverAmount: budget.RolloverAmount,
		Spent:          budget.CurrentSpent,
		Remaining:      budget.Available,
		Percentage:     budget.PercentageUsed,
		Status:         budget.Status,
		DaysRemaining:  max(calendar.DaysBetween(now, window.End), 0),
	}, nil
}

// RollOver moves every active budget whose window ended on or before asOf
// into the window containing asOf, one window at a time. A budget that
// another run already moved is skipped. It returns how many budgets moved.
func (s *budgetService) RollOver(ctx context.Context, asOf time.Time) (int, error) {
	log := logger.Named("budget")
	asOf = calendar.Truncate(asOf)

	var budgets []models.Budget
	if err := s.db.WithContext(ctx).Where("is_active = ? AND period_start <= ?", true, asOf).Find(&budgets).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rolled := 0
	for i := range budgets {
		if err := ctx.Err(); err != nil {
			return rolled, err
		}
		moved, err := s.roll(ctx, &budgets[i], asOf)
		if err != nil {
			log.Warnw("budget rollover failed", "budget_id", budgets[i].ID, "error", err)
			continue
		}
		if moved {
			rolled++
		}
	}
	return rolled, nil
}

func (s *budgetService) roll(ctx context.Context, b *models.Budget, asOf time.Time) (bool, error) {
	window, err := b.Window()
	if err != nil {
		return false, err
	}
	if window.End.After(asOf) {
		return false, nil
	}

	db := s.db.WithContext(ctx)
	from := b.PeriodStart
	for !window.End.After(asOf) {
		spent, err := s.spent(db, b.ID, window)
		if err != nil {
			return false, err
		}
		next, err := calendar.NextWindow(b.Period, window)
		if err != nil {
			return false, err
		}
		b.Roll(spent, next)
		window = next
	}

	result := db.Model(&models.Budget{}).
		Where("id = ? AND period_start = ?", b.ID, from).
		Updates(map[string]interface{}{
			"period_start":    b.PeriodStart,
			"rollover_amount": b.RolloverAmount,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// evaluate fills the budget's derived fields for the window containing at.
func (s *budgetService) evaluate(b *models.Budget, at time.Time) (calendar.Window, error) {
	window, err := calendar.PeriodWindow(b.Period, at)
	if err != nil {
		return window, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	spent, err := s.spent(s.db, b.ID, window)
	if err != nil {
		return window, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	b.Evaluate(spent)
	return window, nil
}

// spent sums the expenses linked to the budget that fall inside w.
func (s *budgetService) spent(db *gorm.DB, budgetID string, w calendar.Window) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := db.Model(&models.Expense{}).
		Where("budget_id = ? AND date >= ? AND date < ?", budgetID, w.Start, w.End).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

func (s *budgetService) find(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

func checkAlertPercentage(p int) error {
	if p < minAlertPercentage || p > maxAlertPercentage {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Alert percentage must be between 50 and 100")
	}
	return nil
}
