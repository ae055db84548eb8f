package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/calendar"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/testutil"
)

func TestCreateExpense(t *testing.T) {
	t.Run("recurring_with_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, models.ExpenseCategoryHousing, 1500, calendar.Date(2024, 1, 1))

		expense, err := svc.CreateExpense(user.ID, ExpenseInput{
			Category: models.ExpenseCategoryHousing,
			Vendor:   "Landlord",
			Amount:   decimal.NewFromInt(1200),
			Date:     calendar.Date(2024, 1, 1),
			BudgetID: &budget.ID,
			Rule:     monthlyOn(calendar.FirstDay, 0),
		})
		testutil.AssertNoError(t, err)

		if expense.BudgetID == nil || *expense.BudgetID != budget.ID {
			t.Errorf("expected budget %s, got %v", budget.ID, expense.BudgetID)
		}
		if !expense.NextOccurrence.Equal(calendar.Date(2024, 2, 1)) {
			t.Errorf("expected next occurrence 2024-02-01, got %v", expense.NextOccurrence)
		}
	})

	t.Run("budget_of_other_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, other.ID, models.ExpenseCategoryFood, 300, calendar.Date(2024, 1, 1))

		_, err := svc.CreateExpense(user.ID, ExpenseInput{
			Category: models.ExpenseCategoryFood,
			Amount:   decimal.NewFromInt(20),
			Date:     calendar.Date(2024, 1, 3),
			BudgetID: &budget.ID,
		})
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})

	t.Run("unknown_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateExpense(user.ID, ExpenseInput{
			Category: "yachts",
			Amount:   decimal.NewFromInt(20),
			Date:     calendar.Date(2024, 1, 3),
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserExpenses_category_filter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db)
	user := testutil.CreateTestUser(t, db)

	testutil.CreateTestExpense(t, db, user.ID, models.ExpenseCategoryFood, 10, calendar.Date(2024, 1, 1))
	testutil.CreateTestExpense(t, db, user.ID, models.ExpenseCategoryFood, 20, calendar.Date(2024, 1, 2))
	testutil.CreateTestExpense(t, db, user.ID, models.ExpenseCategoryTravel, 500, calendar.Date(2024, 1, 3))

	food := models.ExpenseCategoryFood
	page, err := svc.GetUserExpenses(user.ID, pagination.PageRequest{}, EntryFilter{}, &food)
	testutil.AssertNoError(t, err)

	if page.TotalItems != 2 {
		t.Errorf("expected 2 food expenses, got %d", page.TotalItems)
	}
}

func TestUpdateExpense(t *testing.T) {
	t.Run("unlink_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, models.ExpenseCategoryFood, 300, calendar.Date(2024, 1, 1))

		expense, err := svc.CreateExpense(user.ID, ExpenseInput{
			Category: models.ExpenseCategoryFood,
			Amount:   decimal.NewFromInt(20),
			Date:     calendar.Date(2024, 1, 3),
			BudgetID: &budget.ID,
		})
		testutil.AssertNoError(t, err)

		empty := ""
		got, err := svc.UpdateExpense(user.ID, expense.ID, ExpenseUpdate{BudgetID: &empty})
		testutil.AssertNoError(t, err)

		if got.BudgetID != nil {
			t.Errorf("expected budget unlinked, got %v", *got.BudgetID)
		}
	})

	t.Run("rule_change", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestRecurringExpense(t, db, user.ID, models.ExpenseCategorySubscriptions, 15, calendar.Date(2024, 1, 31),
			models.Recurrence{Frequency: calendar.Monthly, DayOption: calendar.CustomDay, CustomDay: 31})

		rule := models.Recurrence{IsRecurring: true, Frequency: calendar.Yearly}
		got, err := svc.UpdateExpense(user.ID, expense.ID, ExpenseUpdate{Rule: &rule})
		testutil.AssertNoError(t, err)

		if !got.NextOccurrence.Equal(calendar.Date(2025, 1, 31)) {
			t.Errorf("expected 2025-01-31, got %v", got.NextOccurrence)
		}
		if got.Revision <= expense.Revision {
			t.Errorf("expected revision to move past %d, got %d", expense.Revision, got.Revision)
		}
	})

	t.Run("invalid_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, user.ID, models.ExpenseCategoryFood, 10, calendar.Date(2024, 1, 1))

		amount := decimal.NewFromInt(-5)
		_, err := svc.UpdateExpense(user.ID, expense.ID, ExpenseUpdate{Amount: &amount})
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")
	})
}

func TestDeleteExpense(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	expense := testutil.CreateTestExpense(t, db, user.ID, models.ExpenseCategoryFood, 10, calendar.Date(2024, 1, 1))

	err := svc.DeleteExpense(other.ID, expense.ID)
	testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")

	testutil.AssertNoError(t, svc.DeleteExpense(user.ID, expense.ID))
}
