package services

import (
	"errors"

	"gorm.io/gorm"

	"fintrack/internal/calendar"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// expenseService handles expense-related business logic.
type expenseService struct {
	db *gorm.DB
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB) ExpenseServicer {
	return &expenseService{db: db}
}

// CreateExpense records an expense, optionally linked to one of the user's budgets.
func (s *expenseService) CreateExpense(userID string, in ExpenseInput) (*models.Expense, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if !in.Category.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown expense category")
	}
	if in.Date.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Date is required")
	}
	if err := s.checkBudget(userID, in.BudgetID); err != nil {
		return nil, err
	}

	rule, err := prepareRule(in.Rule, in.Date, in.Date)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		UserID:      userID,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		Vendor:      in.Vendor,
		Amount:      in.Amount,
		Description: in.Description,
		Date:        calendar.Truncate(in.Date),
		BudgetID:    in.BudgetID,
		Recurrence:  rule,
	}
	if err := s.db.Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expense, nil
}

// GetUserExpenses returns a paginated list of expenses, newest first.
func (s *expenseService) GetUserExpenses(
	userID string,
	page pagination.PageRequest,
	filter EntryFilter,
	category *models.ExpenseCategory,
) (*pagination.PageResponse[models.Expense], error) {
	base := applyEntryFilter(s.db.Model(&models.Expense{}).Where("user_id = ?", userID), filter)
	if category != nil {
		base = base.Where("category = ?", *category)
	}

	result, err := pagination.Find[models.Expense](base, page, "date DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return result, nil
}

// GetExpenseByID returns an expense by ID if it belongs to the user.
func (s *expenseService) GetExpenseByID(userID, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.Where("id = ? AND user_id = ?", expenseID, userID).First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

// UpdateExpense changes an expense, rescheduling a recurring one the same way UpdateIncome does.
func (s *expenseService) UpdateExpense(userID, expenseID string, in ExpenseUpdate) (*models.Expense, error) {
	expense, err := s.GetExpenseByID(userID, expenseID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Category != nil {
		if !in.Category.Valid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown expense category")
		}
		updates["category"] = *in.Category
	}
	if in.Subcategory != nil {
		updates["subcategory"] = *in.Subcategory
	}
	if in.Vendor != nil {
		updates["vendor"] = *in.Vendor
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, apperrors.ErrInvalidAmount
		}
		updates["amount"] = *in.Amount
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.BudgetID != nil {
		// an empty id unlinks the budget
		if *in.BudgetID == "" {
			updates["budget_id"] = nil
		} else {
			if err := s.checkBudget(userID, in.BudgetID); err != nil {
				return nil, err
			}
			updates["budget_id"] = *in.BudgetID
		}
	}

	date := expense.Date
	reschedule := false
	if in.Date != nil {
		date = calendar.Truncate(*in.Date)
		updates["date"] = date
		reschedule = expense.IsRecurring
	}

	rule := expense.Recurrence
	if in.Rule != nil {
		if expense.AutoGenerated && in.Rule.IsRecurring {
			return nil, apperrors.ErrEntryAutoGenerated
		}
		rule = mergeRule(rule, *in.Rule)
		reschedule = true
	}

	if reschedule {
		anchor, err := rescheduleAnchor(s.db, &models.Expense{}, expense.ID, date)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		rule, err = prepareRule(rule, date, anchor)
		if err != nil {
			return nil, err
		}
		for column, value := range ruleColumns(rule) {
			updates[column] = value
		}
	}

	if len(updates) == 0 {
		return expense, nil
	}

	result := s.db.Model(&models.Expense{}).
		Where("id = ? AND revision = ?", expense.ID, expense.Revision).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrConflict
	}

	return s.GetExpenseByID(userID, expenseID)
}

// DeleteExpense soft-deletes an expense.
func (s *expenseService) DeleteExpense(userID, expenseID string) error {
	expense, err := s.GetExpenseByID(userID, expenseID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(expense).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *expenseService) checkBudget(userID string, budgetID *string) error {
	if budgetID == nil {
		return nil
	}
	var count int64
	if err := s.db.Model(&models.Budget{}).Where("id = ? AND user_id = ?", *budgetID, userID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrBudgetNotFound
	}
	return nil
}
