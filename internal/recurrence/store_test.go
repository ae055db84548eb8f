package recurrence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/calendar"
	"fintrack/internal/models"
	"fintrack/internal/recurrence"
	"fintrack/internal/testutil"
)

func TestGormStore_ProcessDue(t *testing.T) {
	ctx := context.Background()

	t.Run("materializes_income_and_expense_at_occurrence_dates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)

		income := testutil.CreateTestRecurringIncome(t, db, user.ID, 5000, calendar.Date(2024, 1, 31),
			models.Recurrence{Frequency: calendar.Monthly, DayOption: calendar.CustomDay, CustomDay: 31})
		expense := testutil.CreateTestRecurringExpense(t, db, user.ID, models.ExpenseCategoryHousing, 1200, calendar.Date(2024, 1, 1),
			models.Recurrence{Frequency: calendar.Monthly, DayOption: calendar.FirstDay})

		p := recurrence.NewProcessor(recurrence.NewGormStore(db), recurrence.Options{})
		result, err := p.ProcessDue(ctx, calendar.Date(2024, 3, 31))
		testutil.AssertNoError(t, err)

		if result.Materialized != 4 {
			t.Errorf("expected 4 entries, got %d", result.Materialized)
		}

		var generated []models.Income
		db.Where("source_id = ?", income.ID).Order("date").Find(&generated)
		if len(generated) != 2 {
			t.Fatalf("expected 2 generated incomes, got %d", len(generated))
		}
		for i, want := range []time.Time{calendar.Date(2024, 2, 29), calendar.Date(2024, 3, 31)} {
			g := generated[i]
			if !g.Date.Equal(want) {
				t.Errorf("income %d: expected %s, got %s", i, want, g.Date)
			}
			if g.IsRecurring || !g.AutoGenerated {
				t.Errorf("income %d: generated entries must be non-recurring and auto generated", i)
			}
			testutil.AssertDecimal(t, "amount", g.Amount, 5000)
		}

		var reloaded models.Income
		db.First(&reloaded, "id = ?", income.ID)
		if !reloaded.NextOccurrence.Equal(calendar.Date(2024, 4, 30)) {
			t.Errorf("expected next occurrence 2024-04-30, got %v", reloaded.NextOccurrence)
		}
		if reloaded.LastProcessed == nil || !reloaded.LastProcessed.Equal(calendar.Date(2024, 3, 31)) {
			t.Errorf("expected last processed 2024-03-31, got %v", reloaded.LastProcessed)
		}

		var expenses []models.Expense
		db.Where("source_id = ?", expense.ID).Order("date").Find(&expenses)
		if len(expenses) != 2 {
			t.Fatalf("expected 2 generated expenses, got %d", len(expenses))
		}
		if !expenses[0].Date.Equal(calendar.Date(2024, 2, 1)) || !expenses[1].Date.Equal(calendar.Date(2024, 3, 1)) {
			t.Errorf("unexpected expense dates %s, %s", expenses[0].Date, expenses[1].Date)
		}
		if expenses[0].Category != models.ExpenseCategoryHousing {
			t.Errorf("expected category to be copied, got %s", expenses[0].Category)
		}
	})

	t.Run("rerun_same_day_creates_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestRecurringIncome(t, db, user.ID, 10, calendar.Date(2024, 5, 1),
			models.Recurrence{Frequency: calendar.Daily})

		p := recurrence.NewProcessor(recurrence.NewGormStore(db), recurrence.Options{})
		asOf := calendar.Date(2024, 5, 4)
		first, err := p.ProcessDue(ctx, asOf)
		testutil.AssertNoError(t, err)
		second, err := p.ProcessDue(ctx, asOf)
		testutil.AssertNoError(t, err)

		if first.Materialized != 3 || second.Materialized != 0 {
			t.Errorf("expected 3 then 0, got %d then %d", first.Materialized, second.Materialized)
		}
		var total int64
		db.Model(&models.Income{}).Count(&total)
		if total != 4 {
			t.Errorf("expected template plus 3 entries, got %d rows", total)
		}
	})

	t.Run("respects_end_date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		end := calendar.Date(2024, 5, 22)
		testutil.CreateTestRecurringExpense(t, db, user.ID, models.ExpenseCategorySubscriptions, 9.99, calendar.Date(2024, 5, 1),
			models.Recurrence{Frequency: calendar.Weekly, EndDate: &end})

		store := recurrence.NewGormStore(db)
		p := recurrence.NewProcessor(store, recurrence.Options{})
		result, err := p.ProcessDue(ctx, calendar.Date(2024, 12, 31))
		testutil.AssertNoError(t, err)

		if result.Materialized != 3 {
			t.Errorf("expected 3 weekly entries up to the end date, got %d", result.Materialized)
		}
		due, err := store.ListDue(ctx, calendar.Date(2025, 12, 31))
		testutil.AssertNoError(t, err)
		if len(due) != 0 {
			t.Errorf("expected an ended definition not to be listed, got %d", len(due))
		}
	})

	t.Run("stale_revision_is_rejected_and_rolled_back", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		income := testutil.CreateTestRecurringIncome(t, db, user.ID, 10, calendar.Date(2024, 5, 1),
			models.Recurrence{Frequency: calendar.Daily})

		store := recurrence.NewGormStore(db)
		def, err := store.Load(ctx, models.EntryKindIncome, income.ID)
		testutil.AssertNoError(t, err)

		if _, err := store.Materialize(ctx, def, calendar.Date(2024, 5, 10)); err != nil {
			t.Fatalf("first materialize: %v", err)
		}
		_, err = store.Materialize(ctx, def, calendar.Date(2024, 5, 10))
		if !errors.Is(err, recurrence.ErrConcurrentAdvance) {
			t.Fatalf("expected ErrConcurrentAdvance, got %v", err)
		}

		var generated int64
		db.Model(&models.Income{}).Where("source_id = ?", income.ID).Count(&generated)
		if generated != 1 {
			t.Errorf("expected exactly 1 generated entry, got %d", generated)
		}
	})

	t.Run("not_due_is_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		income := testutil.CreateTestRecurringIncome(t, db, user.ID, 10, calendar.Date(2024, 5, 1),
			models.Recurrence{Frequency: calendar.Monthly, DayOption: calendar.FirstDay})

		store := recurrence.NewGormStore(db)
		def, _ := store.Load(ctx, models.EntryKindIncome, income.ID)
		if _, err := store.Materialize(ctx, def, calendar.Date(2024, 5, 15)); !errors.Is(err, recurrence.ErrNotDue) {
			t.Errorf("expected ErrNotDue, got %v", err)
		}
	})

	t.Run("one_off_entries_are_never_listed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestIncome(t, db, user.ID, 100, calendar.Date(2024, 1, 1))
		testutil.CreateTestExpense(t, db, user.ID, models.ExpenseCategoryFood, 20, calendar.Date(2024, 1, 1))

		due, err := recurrence.NewGormStore(db).ListDue(ctx, calendar.Date(2030, 1, 1))
		testutil.AssertNoError(t, err)
		if len(due) != 0 {
			t.Errorf("expected nothing due, got %d", len(due))
		}
	})
}
