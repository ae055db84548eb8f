package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/calendar"
	apperrors "fintrack/internal/errors"
)

// GoalStatus is the lifecycle state of a savings goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusCancelled GoalStatus = "cancelled"
)

// Valid reports whether s is a known goal status.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusActive, GoalStatusPaused, GoalStatusCompleted, GoalStatusCancelled:
		return true
	}
	return false
}

// GoalPriority orders goals for the user.
type GoalPriority string

const (
	GoalPriorityLow      GoalPriority = "low"
	GoalPriorityMedium   GoalPriority = "medium"
	GoalPriorityHigh     GoalPriority = "high"
	GoalPriorityCritical GoalPriority = "critical"
)

// GoalPriorities lists every priority, lowest first.
var GoalPriorities = []GoalPriority{GoalPriorityLow, GoalPriorityMedium, GoalPriorityHigh, GoalPriorityCritical}

// Valid reports whether p is a known goal priority.
func (p GoalPriority) Valid() bool {
	switch p {
	case GoalPriorityLow, GoalPriorityMedium, GoalPriorityHigh, GoalPriorityCritical:
		return true
	}
	return false
}

// daysPerMonth converts days remaining into months for the contribution suggestion.
const daysPerMonth = 30.0

// monthsEpsilon keeps the suggestion finite when the target date is imminent.
const monthsEpsilon = 1.0 / daysPerMonth

// Goal is a savings target. CurrentAmount stays within [0, TargetAmount] and
// CompletedAt is set exactly when Status is completed.
type Goal struct {
	Base
	UserID               string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name                 string          `gorm:"not null;size:200" json:"name"`
	Description          string          `json:"description,omitempty"`
	Category             string          `gorm:"size:50" json:"category,omitempty"`
	TargetAmount         decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"target_amount"`
	CurrentAmount        decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"current_amount"`
	TargetDate           time.Time       `gorm:"not null" json:"target_date"`
	Priority             GoalPriority    `gorm:"not null;size:20;default:medium" json:"priority"`
	Status               GoalStatus      `gorm:"not null;size:20;default:active;index" json:"status"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
	LastContributionDate *time.Time      `json:"last_contribution_date,omitempty"`

	// Projections filled by Project; never stored.
	ProgressPercentage           float64         `gorm:"-" json:"progress_percentage"`
	RemainingAmount              decimal.Decimal `gorm:"-" json:"remaining_amount"`
	DaysRemaining                int             `gorm:"-" json:"days_remaining"`
	MonthlyContributionSuggested decimal.Decimal `gorm:"-" json:"monthly_contribution_suggested"`
}

// Contribute adds amount to an active goal, completing it once the target is reached.
func (g *Goal) Contribute(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if g.Status != GoalStatusActive {
		return apperrors.ErrGoalNotActive
	}

	g.CurrentAmount = g.CurrentAmount.Add(amount)
	g.LastContributionDate = &now
	if g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.complete(now)
	}
	return nil
}

// Withdraw takes amount out of the goal. Withdrawing from a completed goal reopens it.
func (g *Goal) Withdraw(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if g.Status == GoalStatusCancelled {
		return apperrors.ErrGoalCancelled
	}
	if amount.GreaterThan(g.CurrentAmount) {
		return apperrors.ErrInsufficientGoalFunds
	}

	g.CurrentAmount = g.CurrentAmount.Sub(amount)
	if g.Status == GoalStatusCompleted {
		g.Status = GoalStatusActive
		g.CompletedAt = nil
	}
	return nil
}

// Pause suspends an active goal.
func (g *Goal) Pause() error {
	if g.Status != GoalStatusActive {
		return apperrors.ErrInvalidGoalTransition
	}
	g.Status = GoalStatusPaused
	return nil
}

// Resume reactivates a paused goal.
func (g *Goal) Resume() error {
	if g.Status != GoalStatusPaused {
		return apperrors.ErrInvalidGoalTransition
	}
	g.Status = GoalStatusActive
	return nil
}

// Cancel ends the goal. Funds stay on it until withdrawn.
func (g *Goal) Cancel() error {
	if g.Status == GoalStatusCancelled {
		return apperrors.ErrInvalidGoalTransition
	}
	g.Status = GoalStatusCancelled
	g.CompletedAt = nil
	return nil
}

// SetTarget changes the target amount. Lowering an active goal's target to or
// below its current amount completes it; raising a completed goal's target
// above its current amount reopens it.
func (g *Goal) SetTarget(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if amount.LessThan(g.CurrentAmount) && g.Status != GoalStatusActive && g.Status != GoalStatusCompleted {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Target amount cannot be below the current amount")
	}

	g.TargetAmount = amount
	switch g.Status {
	case GoalStatusActive:
		if g.CurrentAmount.GreaterThanOrEqual(amount) {
			g.complete(now)
		}
	case GoalStatusCompleted:
		if g.CurrentAmount.LessThan(amount) {
			g.Status = GoalStatusActive
			g.CompletedAt = nil
		} else {
			g.CurrentAmount = amount
		}
	case GoalStatusPaused, GoalStatusCancelled:
	}
	return nil
}

// IsMet reports whether the goal has reached its target.
func (g *Goal) IsMet() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Progress returns CurrentAmount as a percentage of TargetAmount.
func (g *Goal) Progress() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	return g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

// SuggestedMonthlyContribution is the monthly amount needed to reach the target
// by the target date. It is zero once the goal is met or the date has passed.
func (g *Goal) SuggestedMonthlyContribution(now time.Time) decimal.Decimal {
	if g.IsMet() || g.Status == GoalStatusCompleted {
		return decimal.Zero
	}
	days := calendar.DaysBetween(now, g.TargetDate)
	if days <= 0 {
		return decimal.Zero
	}
	months := math.Max(float64(days)/daysPerMonth, monthsEpsilon)
	return g.TargetAmount.Sub(g.CurrentAmount).Div(decimal.NewFromFloat(months)).Round(2)
}

// Project fills the read-only projection fields for the given evaluation time.
func (g *Goal) Project(now time.Time) {
	g.ProgressPercentage = g.Progress()
	g.RemainingAmount = decimal.Max(g.TargetAmount.Sub(g.CurrentAmount), decimal.Zero)
	g.DaysRemaining = max(calendar.DaysBetween(now, g.TargetDate), 0)
	g.MonthlyContributionSuggested = g.SuggestedMonthlyContribution(now)
}

func (g *Goal) complete(now time.Time) {
	g.CurrentAmount = g.TargetAmount
	g.Status = GoalStatusCompleted
	g.CompletedAt = &now
}
