package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/calendar"
)

// ExpenseCategory classifies spending. Budgets target one category.
type ExpenseCategory string

const (
	ExpenseCategoryHousing        ExpenseCategory = "housing"
	ExpenseCategoryUtilities      ExpenseCategory = "utilities"
	ExpenseCategoryTransportation ExpenseCategory = "transportation"
	ExpenseCategoryGroceries      ExpenseCategory = "groceries"
	ExpenseCategoryInsurance      ExpenseCategory = "insurance"
	ExpenseCategoryFood           ExpenseCategory = "food"
	ExpenseCategoryEntertainment  ExpenseCategory = "entertainment"
	ExpenseCategoryClothing       ExpenseCategory = "clothing"
	ExpenseCategoryHealth         ExpenseCategory = "health"
	ExpenseCategoryEducation      ExpenseCategory = "education"
	ExpenseCategoryPersonal       ExpenseCategory = "personal"
	ExpenseCategoryGifts          ExpenseCategory = "gifts"
	ExpenseCategoryTravel         ExpenseCategory = "travel"
	ExpenseCategoryShopping       ExpenseCategory = "shopping"
	ExpenseCategorySubscriptions  ExpenseCategory = "subscriptions"
	ExpenseCategoryOther          ExpenseCategory = "other"
)

// Valid reports whether c is a known expense category.
func (c ExpenseCategory) Valid() bool {
	switch c {
	case ExpenseCategoryHousing, ExpenseCategoryUtilities, ExpenseCategoryTransportation,
		ExpenseCategoryGroceries, ExpenseCategoryInsurance, ExpenseCategoryFood,
		ExpenseCategoryEntertainment, ExpenseCategoryClothing, ExpenseCategoryHealth,
		ExpenseCategoryEducation, ExpenseCategoryPersonal, ExpenseCategoryGifts,
		ExpenseCategoryTravel, ExpenseCategoryShopping, ExpenseCategorySubscriptions,
		ExpenseCategoryOther:
		return true
	}
	return false
}

// IsFixedCost reports whether spending in c is a fixed cost rather than discretionary.
func (c ExpenseCategory) IsFixedCost() bool {
	switch c {
	case ExpenseCategoryHousing, ExpenseCategoryUtilities, ExpenseCategoryInsurance:
		return true
	}
	return false
}

// Expense is a ledger entry for money spent. Like Income, a recurring expense
// doubles as the definition its generated entries come from.
type Expense struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Category    ExpenseCategory `gorm:"not null;size:30;index" json:"category"`
	Subcategory string          `gorm:"size:100" json:"subcategory,omitempty"`
	Vendor      string          `gorm:"size:200" json:"vendor,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	BudgetID    *string         `gorm:"type:uuid;index" json:"budget_id,omitempty"`
	Recurrence
	SourceID      *string `gorm:"type:uuid;index" json:"source_id,omitempty"`
	AutoGenerated bool    `gorm:"not null;default:false" json:"auto_generated"`
}

// BeforeSave keeps every stored date at midnight UTC.
func (e *Expense) BeforeSave(tx *gorm.DB) error {
	e.Date = calendar.Truncate(e.Date)
	e.Recurrence.normalize()
	return nil
}

// Materialize builds the concrete entry for one occurrence of this recurring expense.
func (e *Expense) Materialize(on time.Time) *Expense {
	sourceID := e.ID
	return &Expense{
		UserID:        e.UserID,
		Category:      e.Category,
		Subcategory:   e.Subcategory,
		Vendor:        e.Vendor,
		Amount:        e.Amount,
		Description:   e.Description,
		Date:          calendar.Truncate(on),
		BudgetID:      e.BudgetID,
		SourceID:      &sourceID,
		AutoGenerated: true,
	}
}
