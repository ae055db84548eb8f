package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/calendar"
	"fintrack/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestIncome creates a one-off salary income.
func CreateTestIncome(t *testing.T, db *gorm.DB, userID string, amount float64, date time.Time) *models.Income {
	t.Helper()

	income := &models.Income{
		UserID: userID,
		Source: fmt.Sprintf("Employer %d", nextID()),
		Type:   models.IncomeTypeSalary,
		Amount: decimal.NewFromFloat(amount),
		Date:   date,
	}
	if err := db.Create(income).Error; err != nil {
		t.Fatalf("failed to create test income: %v", err)
	}
	return income
}

// CreateTestRecurringIncome creates a recurring income whose first occurrence is date.
func CreateTestRecurringIncome(t *testing.T, db *gorm.DB, userID string, amount float64, date time.Time, rule models.Recurrence) *models.Income {
	t.Helper()

	rule.IsRecurring = true
	rule.AnchorDay(date)
	if err := rule.Reschedule(date); err != nil {
		t.Fatalf("failed to schedule test income: %v", err)
	}
	income := &models.Income{
		UserID:     userID,
		Source:     fmt.Sprintf("Recurring %d", nextID()),
		Type:       models.IncomeTypeSalary,
		Amount:     decimal.NewFromFloat(amount),
		Date:       date,
		Recurrence: rule,
	}
	if err := db.Create(income).Error; err != nil {
		t.Fatalf("failed to create test recurring income: %v", err)
	}
	return income
}

// CreateTestExpense creates a one-off expense in the given category.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID string, category models.ExpenseCategory, amount float64, date time.Time) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		UserID:   userID,
		Category: category,
		Vendor:   fmt.Sprintf("Vendor %d", nextID()),
		Amount:   decimal.NewFromFloat(amount),
		Date:     date,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// CreateTestRecurringExpense creates a recurring expense whose first occurrence is date.
func CreateTestRecurringExpense(t *testing.T, db *gorm.DB, userID string, category models.ExpenseCategory, amount float64, date time.Time, rule models.Recurrence) *models.Expense {
	t.Helper()

	rule.IsRecurring = true
	rule.AnchorDay(date)
	if err := rule.Reschedule(date); err != nil {
		t.Fatalf("failed to schedule test expense: %v", err)
	}
	expense := &models.Expense{
		UserID:     userID,
		Category:   category,
		Vendor:     fmt.Sprintf("Vendor %d", nextID()),
		Amount:     decimal.NewFromFloat(amount),
		Date:       date,
		Recurrence: rule,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test recurring expense: %v", err)
	}
	return expense
}

// CreateTestGoal creates a goal with the given target, balance and status.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string, target, current float64, status models.GoalStatus) *models.Goal {
	t.Helper()

	goal := &models.Goal{
		UserID:        userID,
		Name:          fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount:  decimal.NewFromFloat(target),
		CurrentAmount: decimal.NewFromFloat(current),
		TargetDate:    calendar.Truncate(time.Now().AddDate(1, 0, 0)),
		Priority:      models.GoalPriorityMedium,
		Status:        status,
	}
	if status == models.GoalStatusCompleted {
		now := time.Now()
		goal.CompletedAt = &now
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}

// CreateTestBudget creates a monthly budget whose current window starts at periodStart.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, category models.ExpenseCategory, amount float64, periodStart time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:          userID,
		Name:            fmt.Sprintf("Test Budget %d", nextID()),
		Category:        category,
		Amount:          decimal.NewFromFloat(amount),
		Period:          calendar.PeriodMonthly,
		AlertPercentage: models.DefaultAlertPercentage,
		PeriodStart:     periodStart,
		IsActive:        true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestInvestment creates an active stock position.
func CreateTestInvestment(t *testing.T, db *gorm.DB, userID, symbol string, quantity, price float64) *models.Investment {
	t.Helper()

	inv := &models.Investment{
		UserID:        userID,
		Symbol:        symbol,
		Name:          symbol + " Inc.",
		Type:          models.InvestmentTypeStock,
		Quantity:      decimal.NewFromFloat(quantity),
		PurchasePrice: decimal.NewFromFloat(price),
		PurchaseDate:  calendar.Date(2024, 1, 2),
		Status:        models.InvestmentStatusActive,
	}
	inv.Recompute()
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("failed to create test investment: %v", err)
	}
	return inv
}
