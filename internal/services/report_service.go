package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/analytics"
	"fintrack/internal/calendar"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// reportService builds dashboard reports.
type reportService struct {
	db        *gorm.DB
	prices    analytics.PriceSource
	priceWait time.Duration
	now       func() time.Time
}

// NewReportService creates a new ReportServicer. priceWait bounds how long a
// report waits on market data before falling back to stored prices.
func NewReportService(db *gorm.DB, prices analytics.PriceSource, priceWait time.Duration) ReportServicer {
	return &reportService{db: db, prices: prices, priceWait: priceWait, now: time.Now}
}

// BuildReport aggregates all of the user's data into the report for year and month.
func (s *reportService) BuildReport(ctx context.Context, userID string, year int, month time.Month) (*analytics.Report, error) {
	if month < time.January || month > time.December {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Month must be between 1 and 12")
	}
	if year < 1900 || year > 9999 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Year is out of range")
	}

	in := analytics.Input{Year: year, Month: month, Now: s.now()}
	db := s.db.WithContext(ctx)
	if err := db.Where("user_id = ?", userID).Find(&in.Incomes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := db.Where("user_id = ?", userID).Find(&in.Expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := db.Where("user_id = ?", userID).Find(&in.Goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	investments, err := loadInvestments(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	in.Investments = investments

	priceCtx := ctx
	if s.priceWait > 0 {
		var cancel context.CancelFunc
		priceCtx, cancel = context.WithTimeout(ctx, s.priceWait)
		defer cancel()
	}
	report := analytics.Build(priceCtx, in, s.prices)

	if _, err := saveValuations(ctx, s.db, report.ValuedInvestments); err != nil {
		logger.Get().Warnw("failed to store report valuations", "user_id", userID, "error", err)
	}
	return report, nil
}

// GetQuickStats returns the header widget figures from stored data only.
func (s *reportService) GetQuickStats(userID string) (*QuickStats, error) {
	now := s.now()
	window := calendar.MonthWindow(now.Year(), now.Month())

	income, err := sumAmounts(s.db.Model(&models.Income{}), userID, window)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	expenses, err := sumAmounts(s.db.Model(&models.Expense{}), userID, window)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var activeGoals int64
	if err := s.db.Model(&models.Goal{}).
		Where("user_id = ? AND status = ?", userID, models.GoalStatusActive).
		Count(&activeGoals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var values []decimal.NullDecimal
	if err := s.db.Model(&models.Investment{}).
		Where("user_id = ? AND status IN ?", userID, []models.InvestmentStatus{models.InvestmentStatusActive, models.InvestmentStatusPartialSold}).
		Pluck("current_value", &values).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	portfolio := decimal.Zero
	for _, v := range values {
		if v.Valid {
			portfolio = portfolio.Add(v.Decimal)
		}
	}

	return &QuickStats{
		CurrentMonthBalance: income.Sub(expenses),
		ActiveGoals:         activeGoals,
		PortfolioValue:      portfolio,
		MonthName:           now.Format("January 2006"),
	}, nil
}

func sumAmounts(q *gorm.DB, userID string, w calendar.Window) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := q.Where("user_id = ? AND date >= ? AND date < ?", userID, w.Start, w.End).Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}
