package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/calendar"
	"fintrack/internal/models"
)

// Severity orders alerts, most urgent first.
type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

func (s Severity) rank() int {
	switch s {
	case SeverityDanger:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	case SeveritySuccess:
		return 3
	}
	return 4
}

// MaxAlerts caps the alerts in one report.
const MaxAlerts = 5

// Alert thresholds.
const (
	highSpendingRatio      = 80
	categoryShareLimit     = 30
	goalDeadlineDays       = 30
	goalDeadlineProgress   = 80
	portfolioLossLimit     = -10
	portfolioGainThreshold = 20
)

// Alert is one dashboard notice.
type Alert struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

// AlertInput is what alert generation looks at.
type AlertInput struct {
	Now             time.Time
	MonthIncome     decimal.Decimal
	MonthExpenses   decimal.Decimal
	MonthByCategory []Breakdown
	Goals           []models.Goal
	Investments     InvestmentsSummary
}

// Alerts derives the alerts for in, ordered by severity and capped at MaxAlerts.
// The same input always yields the same alerts in the same order.
func Alerts(in AlertInput) []Alert {
	var alerts []Alert

	if in.MonthIncome.IsPositive() {
		limit := in.MonthIncome.Mul(decimal.NewFromInt(highSpendingRatio)).Div(hundred)
		if in.MonthExpenses.GreaterThan(limit) {
			ratio := Percentage(in.MonthExpenses, in.MonthIncome)
			alerts = append(alerts, Alert{
				Type:     "high_spending",
				Severity: SeverityWarning,
				Title:    "High spending",
				Message:  fmt.Sprintf("You have spent %.1f%% of your income this month", ratio),
			})
		}
	}

	for _, b := range in.MonthByCategory {
		if b.Percentage > categoryShareLimit {
			alerts = append(alerts, Alert{
				Type:     "category_concentration",
				Severity: SeverityInfo,
				Title:    fmt.Sprintf("High spending on %s", b.Category),
				Message:  fmt.Sprintf("This category is %.2f%% of your expenses this month", b.Percentage),
			})
		}
	}

	alerts = append(alerts, goalAlerts(in.Goals, in.Now)...)

	if in.Investments.PricedHoldings > 0 {
		ret := in.Investments.ReturnPercentage
		switch {
		case ret < portfolioLossLimit:
			alerts = append(alerts, Alert{
				Type:     "portfolio_loss",
				Severity: SeverityDanger,
				Title:    "Investment losses",
				Message:  fmt.Sprintf("Your portfolio has lost %.1f%% of its value", -ret),
			})
		case ret > portfolioGainThreshold:
			alerts = append(alerts, Alert{
				Type:     "portfolio_gain",
				Severity: SeveritySuccess,
				Title:    "Excellent performance",
				Message:  fmt.Sprintf("Your portfolio has gained %.1f%%", ret),
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.rank() < alerts[j].Severity.rank()
	})
	if len(alerts) > MaxAlerts {
		alerts = alerts[:MaxAlerts]
	}
	return alerts
}

// goalAlerts flags active goals due within goalDeadlineDays that are behind.
func goalAlerts(goals []models.Goal, now time.Time) []Alert {
	upcoming := make([]*models.Goal, 0)
	for i := range goals {
		g := &goals[i]
		if g.Status != models.GoalStatusActive {
			continue
		}
		days := calendar.DaysBetween(now, g.TargetDate)
		if days < 0 || days > goalDeadlineDays || g.Progress() >= goalDeadlineProgress {
			continue
		}
		upcoming = append(upcoming, g)
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		if !upcoming[i].TargetDate.Equal(upcoming[j].TargetDate) {
			return upcoming[i].TargetDate.Before(upcoming[j].TargetDate)
		}
		return upcoming[i].Name < upcoming[j].Name
	})

	alerts := make([]Alert, 0, len(upcoming))
	for _, g := range upcoming {
		alerts = append(alerts, Alert{
			Type:     "goal_deadline",
			Severity: SeverityWarning,
			Title:    fmt.Sprintf("Upcoming goal: %s", g.Name),
			Message: fmt.Sprintf("%d days left and %.1f%% of the target reached",
				calendar.DaysBetween(now, g.TargetDate), g.Progress()),
		})
	}
	return alerts
}
