package models

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/calendar"
)

// BudgetStatus labels how much of a budget has been used.
type BudgetStatus string

const (
	BudgetStatusUnder   BudgetStatus = "under"
	BudgetStatusWarning BudgetStatus = "warning"
	BudgetStatusOver    BudgetStatus = "over"
)

// DefaultAlertPercentage is the usage at which a budget turns to warning.
const DefaultAlertPercentage = 80

// Budget caps spending in one category per period. PeriodStart marks the
// window the budget was last rolled into; spending is never stored and is
// recomputed by Evaluate on every read.
type Budget struct {
	Base
	UserID          string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name            string          `gorm:"not null;size:200" json:"name"`
	Category        ExpenseCategory `gorm:"not null;size:30" json:"category"`
	Amount          decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Period          calendar.Period `gorm:"not null;size:20" json:"period"`
	IsFixed         bool            `gorm:"not null;default:false" json:"is_fixed"`
	RolloverEnabled bool            `gorm:"not null;default:false" json:"rollover_enabled"`
	RolloverAmount  decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"rollover_amount"`
	AlertPercentage int             `gorm:"not null;default:80" json:"alert_percentage"`
	PeriodStart     time.Time       `gorm:"not null" json:"period_start"`
	IsActive        bool            `gorm:"not null;default:true" json:"is_active"`

	CurrentSpent   decimal.Decimal `gorm:"-" json:"current_spent"`
	Available      decimal.Decimal `gorm:"-" json:"available"`
	PercentageUsed float64         `gorm:"-" json:"percentage_used"`
	Status         BudgetStatus    `gorm:"-" json:"status"`
}

// Allowance is the amount usable in the current window: the base amount plus anything rolled over.
func (b *Budget) Allowance() decimal.Decimal {
	return b.Amount.Add(b.RolloverAmount)
}

// Evaluate recomputes the derived spending fields from spent.
func (b *Budget) Evaluate(spent decimal.Decimal) {
	allowance := b.Allowance()
	b.CurrentSpent = spent
	b.Available = allowance.Sub(spent)

	switch {
	case allowance.IsPositive():
		b.PercentageUsed = spent.Div(allowance).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	case spent.IsPositive() || allowance.IsNegative():
		// a previous overage has consumed the whole allowance
		b.PercentageUsed = 100
	default:
		b.PercentageUsed = 0
	}

	switch {
	case b.PercentageUsed >= 100:
		b.Status = BudgetStatusOver
	case b.PercentageUsed >= float64(b.AlertPercentage):
		b.Status = BudgetStatusWarning
	default:
		b.Status = BudgetStatusUnder
	}
}

// Roll closes the window that started at PeriodStart, where spent was used,
// and moves the budget into next. With rollover enabled the leftover amount,
// or the overage as a negative amount, is added to RolloverAmount.
func (b *Budget) Roll(spent decimal.Decimal, next calendar.Window) {
	if b.RolloverEnabled {
		b.RolloverAmount = b.RolloverAmount.Add(b.Amount.Sub(spent))
	}
	b.PeriodStart = next.Start
}

// Window returns the budget's current window.
func (b *Budget) Window() (calendar.Window, error) {
	return calendar.PeriodWindow(b.Period, b.PeriodStart)
}
