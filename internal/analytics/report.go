// Package analytics folds one user's ledger, goals and holdings into the
// dashboard report. Build is a pure function of its input and the prices it
// reads; the only side effect is the price refresh the PriceSource performs.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/calendar"
	"fintrack/internal/marketdata"
	"fintrack/internal/models"
)

// CashFlowPeriods is the number of trailing months in the cash-flow series.
const CashFlowPeriods = 6

// RecentTransactionsLimit caps the recent transactions list.
const RecentTransactionsLimit = 10

var hundred = decimal.NewFromInt(100)

// PriceSource resolves the latest known price for a symbol.
type PriceSource interface {
	Get(ctx context.Context, symbol string) marketdata.Price
}

// Input is everything a report is built from.
type Input struct {
	Year        int
	Month       time.Month
	Now         time.Time
	Incomes     []models.Income
	Expenses    []models.Expense
	Goals       []models.Goal
	Investments []models.Investment
}

// Report is the composed dashboard for one user and month.
type Report struct {
	Year                     int                 `json:"year"`
	Month                    time.Month          `json:"month"`
	GeneratedAt              time.Time           `json:"generated_at"`
	Summary                  Summary             `json:"financial_summary"`
	Monthly                  MonthlyOverview     `json:"monthly_overview"`
	CashFlow                 []CashFlowPoint     `json:"cash_flow"`
	IncomeByType             []Breakdown         `json:"income_by_type"`
	ExpensesByCategory       []Breakdown         `json:"expenses_by_category"`
	Goals                    GoalsSummary        `json:"goals_summary"`
	Investments              InvestmentsSummary  `json:"investments_summary"`
	RecentTransactions       []RecentTransaction `json:"recent_transactions"`
	AverageDailyExpense      decimal.Decimal     `json:"average_daily_expense"`
	DaysUntilMonthEnd        int                 `json:"days_until_month_end"`
	ProjectedMonthEndBalance decimal.Decimal     `json:"projected_month_end_balance"`
	Alerts                   []Alert             `json:"alerts"`
	ValuedInvestments        []models.Investment `json:"-"`
}

// Build composes the report for in.Year and in.Month.
func Build(ctx context.Context, in Input, prices PriceSource) *Report {
	window := calendar.MonthWindow(in.Year, in.Month)
	monthIncomes, monthExpenses := inWindow(in.Incomes, window), inWindow(in.Expenses, window)

	r := &Report{
		Year:               in.Year,
		Month:              in.Month,
		GeneratedAt:        in.Now,
		Summary:            Summarize(in.Incomes, in.Expenses),
		Monthly:            Overview(window, monthIncomes, monthExpenses),
		CashFlow:           CashFlow(in.Incomes, in.Expenses, in.Year, in.Month, CashFlowPeriods),
		IncomeByType:       IncomeBreakdown(in.Incomes),
		ExpensesByCategory: ExpenseBreakdown(in.Expenses),
		Goals:              SummarizeGoals(in.Goals),
		RecentTransactions: Recent(in.Incomes, in.Expenses, RecentTransactionsLimit),
	}
	r.Investments, r.ValuedInvestments = ValueInvestments(ctx, in.Investments, prices)

	daysPassed := daysElapsed(window, in.Now)
	r.DaysUntilMonthEnd = window.Days() - daysPassed
	if daysPassed > 0 {
		r.AverageDailyExpense = r.Monthly.Expenses.Div(decimal.NewFromInt(int64(daysPassed))).Round(2)
	} else {
		r.AverageDailyExpense = decimal.Zero
	}
	projectedSpend := r.Monthly.Expenses.Add(r.AverageDailyExpense.Mul(decimal.NewFromInt(int64(r.DaysUntilMonthEnd))))
	r.ProjectedMonthEndBalance = r.Monthly.Income.Sub(projectedSpend).Round(2)

	r.Alerts = Alerts(AlertInput{
		Now:             in.Now,
		MonthIncome:     r.Monthly.Income,
		MonthExpenses:   r.Monthly.Expenses,
		MonthByCategory: ExpenseBreakdown(monthExpenses),
		Goals:           in.Goals,
		Investments:     r.Investments,
	})
	return r
}

// daysElapsed counts the days of window up to and including now, clamped to the window.
func daysElapsed(w calendar.Window, now time.Time) int {
	today := calendar.Truncate(now)
	switch {
	case today.Before(w.Start):
		return 0
	case !w.Contains(today):
		return w.Days()
	}
	return calendar.DaysBetween(w.Start, today) + 1
}

// GoalsSummary totals every goal regardless of status.
type GoalsSummary struct {
	TotalGoals      int             `json:"total_goals"`
	ActiveGoals     int             `json:"active_goals"`
	CompletedGoals  int             `json:"completed_goals"`
	TotalTarget     decimal.Decimal `json:"total_target_amount"`
	TotalSaved      decimal.Decimal `json:"total_saved_amount"`
	OverallProgress float64         `json:"overall_progress"`
}

// SummarizeGoals counts goals by status and totals their amounts.
func SummarizeGoals(goals []models.Goal) GoalsSummary {
	s := GoalsSummary{TotalGoals: len(goals), TotalTarget: decimal.Zero, TotalSaved: decimal.Zero}
	for i := range goals {
		g := &goals[i]
		switch g.Status {
		case models.GoalStatusActive:
			s.ActiveGoals++
		case models.GoalStatusCompleted:
			s.CompletedGoals++
		case models.GoalStatusPaused, models.GoalStatusCancelled:
		}
		s.TotalTarget = s.TotalTarget.Add(g.TargetAmount)
		s.TotalSaved = s.TotalSaved.Add(g.CurrentAmount)
	}
	s.OverallProgress = Percentage(s.TotalSaved, s.TotalTarget)
	return s
}

// RecentTransaction is one row of the recent activity list.
type RecentTransaction struct {
	ID          string           `json:"id"`
	Kind        models.EntryKind `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Date        time.Time        `json:"date"`
}

// Recent merges incomes and expenses and returns the newest limit entries.
func Recent(incomes []models.Income, expenses []models.Expense, limit int) []RecentTransaction {
	out := make([]RecentTransaction, 0, len(incomes)+len(expenses))
	for i := range incomes {
		in := &incomes[i]
		out = append(out, RecentTransaction{
			ID:          in.ID,
			Kind:        models.EntryKindIncome,
			Amount:      in.Amount,
			Description: in.Source,
			Category:    string(in.Type),
			Date:        in.Date,
		})
	}
	for i := range expenses {
		e := &expenses[i]
		desc := e.Description
		if desc == "" {
			desc = e.Vendor
		}
		if desc == "" {
			desc = string(e.Category)
		}
		out = append(out, RecentTransaction{
			ID:          e.ID,
			Kind:        models.EntryKindExpense,
			Amount:      e.Amount,
			Description: desc,
			Category:    string(e.Category),
			Date:        e.Date,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Percentage is part as a percentage of total, rounded to two places. It is
// zero when total is not positive.
func Percentage(part, total decimal.Decimal) float64 {
	if !total.IsPositive() {
		return 0
	}
	return part.Div(total).Mul(hundred).Round(2).InexactFloat64()
}
