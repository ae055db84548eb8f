package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/calendar"
	"fintrack/internal/models"
)

// entry is the view of a ledger row the aggregations need.
type entry interface {
	models.Income | models.Expense
}

func amountOf[T entry](e *T) decimal.Decimal {
	switch v := any(e).(type) {
	case *models.Income:
		return v.Amount
	case *models.Expense:
		return v.Amount
	}
	return decimal.Zero
}

func dateOf[T entry](e *T) time.Time {
	switch v := any(e).(type) {
	case *models.Income:
		return v.Date
	case *models.Expense:
		return v.Date
	}
	return time.Time{}
}

func sum[T entry](entries []T) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		total = total.Add(amountOf(&entries[i]))
	}
	return total
}

func inWindow[T entry](entries []T, w calendar.Window) []T {
	var out []T
	for i := range entries {
		if w.Contains(dateOf(&entries[i])) {
			out = append(out, entries[i])
		}
	}
	return out
}

// SavingsRate is (income − expenses) / income as a percentage, zero without income.
func SavingsRate(income, expenses decimal.Decimal) float64 {
	return Percentage(income.Sub(expenses), income)
}

// Summary holds lifetime totals.
type Summary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetBalance    decimal.Decimal `json:"net_balance"`
	SavingsRate   float64         `json:"savings_rate"`
}

// Summarize totals every income and expense.
func Summarize(incomes []models.Income, expenses []models.Expense) Summary {
	income, spent := sum(incomes), sum(expenses)
	return Summary{
		TotalIncome:   income,
		TotalExpenses: spent,
		NetBalance:    income.Sub(spent),
		SavingsRate:   SavingsRate(income, spent),
	}
}

// MonthlyOverview holds the totals of one calendar month.
type MonthlyOverview struct {
	Year        int             `json:"year"`
	Month       string          `json:"month"`
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
	Balance     decimal.Decimal `json:"balance"`
	SavingsRate float64         `json:"savings_rate"`
}

// Overview totals entries already restricted to the month window w.
func Overview(w calendar.Window, incomes []models.Income, expenses []models.Expense) MonthlyOverview {
	income, spent := sum(incomes), sum(expenses)
	return MonthlyOverview{
		Year:        w.Start.Year(),
		Month:       w.Start.Month().String(),
		Income:      income,
		Expenses:    spent,
		Balance:     income.Sub(spent),
		SavingsRate: SavingsRate(income, spent),
	}
}

// CashFlowPoint is one month of the cash-flow series.
type CashFlowPoint struct {
	Period            string          `json:"date"`
	Income            decimal.Decimal `json:"income"`
	Expenses          decimal.Decimal `json:"expenses"`
	NetFlow           decimal.Decimal `json:"net_flow"`
	CumulativeBalance decimal.Decimal `json:"cumulative_balance"`
}

// CashFlow buckets incomes and expenses by calendar month for the periods
// months ending at year/month, oldest first, with a running balance.
func CashFlow(incomes []models.Income, expenses []models.Expense, year int, month time.Month, periods int) []CashFlowPoint {
	end := calendar.Date(year, month, 1)
	points := make([]CashFlowPoint, 0, periods)
	cumulative := decimal.Zero

	for i := periods - 1; i >= 0; i-- {
		start := end.AddDate(0, -i, 0)
		w := calendar.MonthWindow(start.Year(), start.Month())
		income, spent := sum(inWindow(incomes, w)), sum(inWindow(expenses, w))
		net := income.Sub(spent)
		cumulative = cumulative.Add(net)
		points = append(points, CashFlowPoint{
			Period:            fmt.Sprintf("%d-%02d", start.Year(), int(start.Month())),
			Income:            income,
			Expenses:          spent,
			NetFlow:           net,
			CumulativeBalance: cumulative,
		})
	}
	return points
}

// Breakdown is the share of one category or income type.
type Breakdown struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
	Count      int             `json:"count"`
}

// IncomeBreakdown groups incomes by type.
func IncomeBreakdown(incomes []models.Income) []Breakdown {
	return breakdown(incomes, func(i *models.Income) string { return string(i.Type) })
}

// ExpenseBreakdown groups expenses by category.
func ExpenseBreakdown(expenses []models.Expense) []Breakdown {
	return breakdown(expenses, func(e *models.Expense) string { return string(e.Category) })
}

// breakdown groups entries by key, largest amount first.
func breakdown[T entry](entries []T, key func(*T) string) []Breakdown {
	groups := make(map[string]*Breakdown)
	total := decimal.Zero
	for i := range entries {
		e := &entries[i]
		k := key(e)
		b, ok := groups[k]
		if !ok {
			b = &Breakdown{Category: k, Amount: decimal.Zero}
			groups[k] = b
		}
		b.Amount = b.Amount.Add(amountOf(e))
		b.Count++
		total = total.Add(amountOf(e))
	}

	out := make([]Breakdown, 0, len(groups))
	for _, b := range groups {
		b.Percentage = Percentage(b.Amount, total)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
