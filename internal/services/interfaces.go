package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/calendar"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	UpdateProfile(userID string, update ProfileUpdate) (*models.User, error)
}

// ProfileUpdate carries the profile fields a user may change. Nil names are
// left alone; an empty NewPassword keeps the current password.
type ProfileUpdate struct {
	FirstName       *string
	LastName        *string
	CurrentPassword string
	NewPassword     string
}

// EntryFilter holds optional filter parameters for listing incomes and expenses.
type EntryFilter struct {
	FromDate      *time.Time
	ToDate        *time.Time
	Recurring     *bool
	AutoGenerated *bool
}

// IncomeInput holds the fields of a new income.
type IncomeInput struct {
	Source      string
	Type        models.IncomeType
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	Rule        models.Recurrence
}

// IncomeUpdate holds the fields of an income to change; nil means unchanged.
type IncomeUpdate struct {
	Source      *string
	Type        *models.IncomeType
	Amount      *decimal.Decimal
	Description *string
	Date        *time.Time
	Rule        *models.Recurrence
}

// IncomeServicer defines the contract for income-related business logic.
type IncomeServicer interface {
	CreateIncome(userID string, in IncomeInput) (*models.Income, error)
	GetUserIncomes(userID string, page pagination.PageRequest, filter EntryFilter) (*pagination.PageResponse[models.Income], error)
	GetIncomeByID(userID, incomeID string) (*models.Income, error)
	UpdateIncome(userID, incomeID string, in IncomeUpdate) (*models.Income, error)
	DeleteIncome(userID, incomeID string) error
}

// ExpenseInput holds the fields of a new expense.
type ExpenseInput struct {
	Category    models.ExpenseCategory
	Subcategory string
	Vendor      string
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	BudgetID    *string
	Rule        models.Recurrence
}

// ExpenseUpdate holds the fields of an expense to change; nil means unchanged.
type ExpenseUpdate struct {
	Category    *models.ExpenseCategory
	Subcategory *string
	Vendor      *string
	Amount      *decimal.Decimal
	Description *string
	Date        *time.Time
	BudgetID    *string
	Rule        *models.Recurrence
}

// ExpenseServicer defines the contract for expense-related business logic.
type ExpenseServicer interface {
	CreateExpense(userID string, in ExpenseInput) (*models.Expense, error)
	GetUserExpenses(userID string, page pagination.PageRequest, filter EntryFilter, category *models.ExpenseCategory) (*pagination.PageResponse[models.Expense], error)
	GetExpenseByID(userID, expenseID string) (*models.Expense, error)
	UpdateExpense(userID, expenseID string, in ExpenseUpdate) (*models.Expense, error)
	DeleteExpense(userID, expenseID string) error
}

// GoalInput holds the fields of a new goal.
type GoalInput struct {
	Name          string
	Description   string
	Category      string
	TargetAmount  decimal.Decimal
	InitialAmount decimal.Decimal
	TargetDate    time.Time
	Priority      models.GoalPriority
}

// GoalUpdate holds the fields of a goal to change; nil means unchanged.
type GoalUpdate struct {
	Name         *string
	Description  *string
	Category     *string
	TargetAmount *decimal.Decimal
	TargetDate   *time.Time
	Priority     *models.GoalPriority
}

// PriorityTotals sums the active goals of one priority.
type PriorityTotals struct {
	Count       int             `json:"count"`
	TotalTarget decimal.Decimal `json:"total_target"`
	TotalSaved  decimal.Decimal `json:"total_saved"`
}

// UpcomingDeadline is an active goal whose target date has not passed yet.
type UpcomingDeadline struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	TargetDate         time.Time `json:"target_date"`
	DaysRemaining      int       `json:"days_remaining"`
	ProgressPercentage float64   `json:"progress_percentage"`
}

// GoalSummary aggregates all of a user's goals.
type GoalSummary struct {
	analytics.GoalsSummary
	PausedGoals       int                                    `json:"paused_goals"`
	ByPriority        map[models.GoalPriority]PriorityTotals `json:"goals_by_priority"`
	UpcomingDeadlines []UpcomingDeadline                     `json:"upcoming_deadlines"`
}

// GoalServicer defines the contract for goal-related business logic.
type GoalServicer interface {
	CreateGoal(userID string, in GoalInput) (*models.Goal, error)
	GetUserGoals(userID string, page pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.Goal], error)
	GetGoalByID(userID, goalID string) (*models.Goal, error)
	UpdateGoal(userID, goalID string, in GoalUpdate) (*models.Goal, error)
	DeleteGoal(userID, goalID string) error
	Contribute(userID, goalID string, amount decimal.Decimal) (*models.Goal, error)
	Withdraw(userID, goalID string, amount decimal.Decimal) (*models.Goal, error)
	Pause(userID, goalID string) (*models.Goal, error)
	Resume(userID, goalID string) (*models.Goal, error)
	Cancel(userID, goalID string) (*models.Goal, error)
	GetSummary(userID string) (*GoalSummary, error)
}

// BudgetInput holds the fields of a new budget.
type BudgetInput struct {
	Name            string
	Category        models.ExpenseCategory
	Amount          decimal.Decimal
	Period          calendar.Period
	IsFixed         bool
	RolloverEnabled bool
	AlertPercentage int
	StartDate       time.Time
}

// BudgetUpdate holds the fields of a budget to change; nil means unchanged.
type BudgetUpdate struct {
	Name            *string
	Amount          *decimal.Decimal
	AlertPercentage *int
	IsFixed         *bool
	RolloverEnabled *bool
	IsActive        *bool
}

// BudgetProgress contains spending vs budget data for a budget's current period.
type BudgetProgress struct {
	BudgetID       string              `json:"budget_id"`
	PeriodStart    time.Time           `json:"period_start"`
	PeriodEnd      time.Time           `json:"period_end"`
	Budgeted       decimal.Decimal     `json:"budgeted"`
	RolloverAmount decimal.Decimal     `json:"rollover_amount"`
	Spent          decimal.Decimal     `json:"spent"`
	Remaining      decimal.Decimal     `json:"remaining"`
	Percentage     float64             `json:"percentage"`
	Status         models.BudgetStatus `json:"status"`
	DaysRemaining  int                 `json:"days_remaining"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID string, in BudgetInput) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, isActive *bool, period *calendar.Period) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, in BudgetUpdate) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error)
	RollOver(ctx context.Context, asOf time.Time) (int, error)
}

// InvestmentInput holds the fields of a new investment.
type InvestmentInput struct {
	Symbol        string
	Name          string
	Type          models.InvestmentType
	Quantity      decimal.Decimal
	PurchasePrice decimal.Decimal
	PurchaseFees  decimal.Decimal
	PurchaseDate  time.Time
	Notes         string
}

// InvestmentUpdate holds the fields of an investment to change; nil means unchanged.
type InvestmentUpdate struct {
	Name          *string
	Quantity      *decimal.Decimal
	PurchasePrice *decimal.Decimal
	PurchaseFees  *decimal.Decimal
	Notes         *string
}

// SellInput describes a sale of part or all of a position.
type SellInput struct {
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Fees     decimal.Decimal
	Date     time.Time
	Notes    string
}

// TypeBreakdown summarizes holdings of one investment type.
type TypeBreakdown struct {
	Type       models.InvestmentType `json:"type"`
	Count      int                   `json:"count"`
	Invested   decimal.Decimal       `json:"invested"`
	Value      decimal.Decimal       `json:"value"`
	Percentage float64               `json:"percentage"`
}

// PortfolioSummary contains aggregated portfolio data across all held investments.
type PortfolioSummary struct {
	analytics.InvestmentsSummary
	RealizedProfit   decimal.Decimal       `json:"realized_profit"`
	ByType           []TypeBreakdown       `json:"by_type"`
	TopPerformers    []analytics.Performer `json:"top_performers"`
	BottomPerformers []analytics.Performer `json:"bottom_performers"`
}

// PriceRefresh reports the outcome of a manual price refresh.
type PriceRefresh struct {
	Updated         int      `json:"updated"`
	StaleSymbols    []string `json:"stale_symbols,omitempty"`
	UnpricedSymbols []string `json:"unpriced_symbols,omitempty"`
}

// InvestmentServicer defines the contract for investment-related business logic.
type InvestmentServicer interface {
	AddInvestment(userID string, in InvestmentInput) (*models.Investment, error)
	GetUserInvestments(userID string, page pagination.PageRequest, status *models.InvestmentStatus) (*pagination.PageResponse[models.Investment], error)
	GetInvestmentByID(userID, investmentID string) (*models.Investment, error)
	UpdateInvestment(userID, investmentID string, in InvestmentUpdate) (*models.Investment, error)
	DeleteInvestment(userID, investmentID string) error
	SellInvestment(userID, investmentID string, in SellInput) (*models.Investment, *models.InvestmentTransaction, error)
	GetInvestmentTransactions(userID, investmentID string, page pagination.PageRequest) (*pagination.PageResponse[models.InvestmentTransaction], error)
	RefreshPrices(ctx context.Context, userID string) (*PriceRefresh, error)
	GetPortfolioSummary(ctx context.Context, userID string) (*PortfolioSummary, error)
}

// QuickStats is the small header widget summary.
type QuickStats struct {
	CurrentMonthBalance decimal.Decimal `json:"current_month_balance"`
	ActiveGoals         int64           `json:"active_goals_count"`
	PortfolioValue      decimal.Decimal `json:"portfolio_value"`
	MonthName           string          `json:"month_name"`
}

// ReportServicer defines the contract for dashboard reports.
type ReportServicer interface {
	BuildReport(ctx context.Context, userID string, year int, month time.Month) (*analytics.Report, error)
	GetQuickStats(userID string) (*QuickStats, error)
}

// BatchServicer runs the daily batch: recurrence materialization and budget rollover.
type BatchServicer interface {
	Run(ctx context.Context, asOf time.Time) (*BatchResult, error)
}

// AuditEntry is one decoded audit event.
type AuditEntry struct {
	Action    string                 `json:"action"`
	Changes   map[string]interface{} `json:"changes,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
	History(userID, resourceType, resourceID string) ([]AuditEntry, error)
}
