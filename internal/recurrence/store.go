package recurrence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"fintrack/internal/calendar"
	"fintrack/internal/models"
)

const dueCondition = "is_recurring = ? AND next_occurrence IS NOT NULL AND next_occurrence <= ? " +
	"AND (recurrence_end_date IS NULL OR recurrence_end_date >= next_occurrence)"

// gormStore keeps definitions in the incomes and expenses tables.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by db.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ListDue(ctx context.Context, asOf time.Time) ([]Definition, error) {
	asOf = calendar.Truncate(asOf)
	db := s.db.WithContext(ctx)

	var incomes []models.Income
	if err := db.Where(dueCondition, true, asOf).Order("next_occurrence, id").Find(&incomes).Error; err != nil {
		return nil, fmt.Errorf("list due incomes: %w", err)
	}
	var expenses []models.Expense
	if err := db.Where(dueCondition, true, asOf).Order("next_occurrence, id").Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("list due expenses: %w", err)
	}

	defs := make([]Definition, 0, len(incomes)+len(expenses))
	for i := range incomes {
		defs = append(defs, incomeDefinition(&incomes[i]))
	}
	for i := range expenses {
		defs = append(defs, expenseDefinition(&expenses[i]))
	}
	return defs, nil
}

func (s *gormStore) Load(ctx context.Context, kind models.EntryKind, id string) (Definition, error) {
	r, err := loadRow(s.db.WithContext(ctx), kind, id)
	if err != nil {
		return Definition{}, err
	}
	return r.def, nil
}

func (s *gormStore) Materialize(ctx context.Context, def Definition, asOf time.Time) (Definition, error) {
	asOf = calendar.Truncate(asOf)
	var advanced Definition

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := loadRow(tx, def.Kind, def.ID)
		if err != nil {
			return err
		}
		if r.def.Rule.Revision != def.Rule.Revision {
			return ErrConcurrentAdvance
		}
		if !r.def.Rule.IsDue(asOf) {
			return ErrNotDue
		}

		on := *r.def.Rule.NextOccurrence
		next, err := r.def.Rule.Next(on)
		if err != nil {
			return err
		}

		if err := tx.Create(r.materialize(on)).Error; err != nil {
			return fmt.Errorf("create %s entry: %w", def.Kind, err)
		}

		res := tx.Model(r.model).
			Where("id = ? AND revision = ?", def.ID, def.Rule.Revision).
			Updates(map[string]interface{}{
				"next_occurrence": next,
				"last_processed":  asOf,
				"revision":        def.Rule.Revision + 1,
			})
		if res.Error != nil {
			return fmt.Errorf("advance %s %s: %w", def.Kind, def.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentAdvance
		}

		advanced = r.def
		advanced.Rule.NextOccurrence = &next
		advanced.Rule.LastProcessed = &asOf
		advanced.Rule.Revision++
		return nil
	})
	if err != nil {
		return Definition{}, err
	}
	return advanced, nil
}

// row is a loaded definition plus what is needed to write an occurrence of it.
type row struct {
	def         Definition
	model       interface{}
	materialize func(on time.Time) interface{}
}

func loadRow(db *gorm.DB, kind models.EntryKind, id string) (*row, error) {
	switch kind {
	case models.EntryKindIncome:
		var income models.Income
		if err := db.First(&income, "id = ?", id).Error; err != nil {
			return nil, fmt.Errorf("load income %s: %w", id, err)
		}
		return &row{
			def:         incomeDefinition(&income),
			model:       &models.Income{},
			materialize: func(on time.Time) interface{} { return income.Materialize(on) },
		}, nil
	case models.EntryKindExpense:
		var expense models.Expense
		if err := db.First(&expense, "id = ?", id).Error; err != nil {
			return nil, fmt.Errorf("load expense %s: %w", id, err)
		}
		return &row{
			def:         expenseDefinition(&expense),
			model:       &models.Expense{},
			materialize: func(on time.Time) interface{} { return expense.Materialize(on) },
		}, nil
	}
	return nil, fmt.Errorf("unknown entry kind %q", kind)
}

func incomeDefinition(i *models.Income) Definition {
	return Definition{Kind: models.EntryKindIncome, ID: i.ID, UserID: i.UserID, Rule: i.Recurrence}
}

func expenseDefinition(e *models.Expense) Definition {
	return Definition{Kind: models.EntryKindExpense, ID: e.ID, UserID: e.UserID, Rule: e.Recurrence}
}
