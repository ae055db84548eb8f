package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/analytics"
	"fintrack/internal/calendar"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/marketdata"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// performersListed is how many top and bottom performers the portfolio summary lists.
const performersListed = 5

// investmentService handles investment-related business logic.
type investmentService struct {
	db     *gorm.DB
	prices analytics.PriceSource
	now    func() time.Time
}

// NewInvestmentService creates a new InvestmentServicer. prices may be nil,
// in which case only stored prices are used.
func NewInvestmentService(db *gorm.DB, prices analytics.PriceSource) InvestmentServicer {
	return &investmentService{db: db, prices: prices, now: time.Now}
}

// AddInvestment opens a position and records its buy transaction.
func (s *investmentService) AddInvestment(userID string, in InvestmentInput) (*models.Investment, error) {
	symbol := marketdata.NormalizeSymbol(in.Symbol)
	if symbol == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol is required")
	}
	if !in.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown investment type")
	}
	if !in.Quantity.IsPositive() || !in.PurchasePrice.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if in.PurchaseFees.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Fees cannot be negative")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = symbol
	}
	purchaseDate := in.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = s.now()
	}

	investment := &models.Investment{
		UserID:        userID,
		Symbol:        symbol,
		Name:          name,
		Type:          in.Type,
		Quantity:      in.Quantity,
		PurchasePrice: in.PurchasePrice,
		PurchaseFees:  in.PurchaseFees,
		PurchaseDate:  calendar.Truncate(purchaseDate),
		Status:        models.InvestmentStatusActive,
		Notes:         in.Notes,
	}
	investment.Recompute()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(investment).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		buy := &models.InvestmentTransaction{
			InvestmentID: investment.ID,
			Type:         models.InvestmentTransactionBuy,
			Date:         investment.PurchaseDate,
			Quantity:     investment.Quantity,
			PricePerUnit: investment.PurchasePrice,
			Fee:          investment.PurchaseFees,
			TotalAmount:  investment.Quantity.Mul(investment.PurchasePrice).Add(investment.PurchaseFees).Round(2),
			Notes:        in.Notes,
		}
		if err := tx.Create(buy).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return investment, nil
}

// GetUserInvestments returns a paginated list of investments ordered by symbol.
func (s *investmentService) GetUserInvestments(
	userID string,
	page pagination.PageRequest,
	status *models.InvestmentStatus,
) (*pagination.PageResponse[models.Investment], error) {
	base := s.db.Model(&models.Investment{}).Where("user_id = ?", userID)
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	result, err := pagination.Find[models.Investment](base, page, "symbol ASC, id ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return result, nil
}

// GetInvestmentByID returns an investment by ID if it belongs to the user.
func (s *investmentService) GetInvestmentByID(userID, investmentID string) (*models.Investment, error) {
	return findInvestment(s.db, userID, investmentID)
}

// UpdateInvestment edits a position's purchase details and recomputes its valuation.
func (s *investmentService) UpdateInvestment(userID, investmentID string, in InvestmentUpdate) (*models.Investment, error) {
	var investment *models.Investment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		investment, err = findInvestment(forUpdate(tx), userID, investmentID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "Name cannot be empty")
			}
			investment.Name = *in.Name
		}
		if in.Quantity != nil {
			if !in.Quantity.IsPositive() {
				return apperrors.ErrInvalidAmount
			}
			if in.Quantity.LessThan(investment.SoldQuantity) {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "Quantity cannot be below the quantity already sold")
			}
			investment.Quantity = *in.Quantity
		}
		if in.PurchasePrice != nil {
			if !in.PurchasePrice.IsPositive() {
				return apperrors.ErrInvalidAmount
			}
			investment.PurchasePrice = *in.PurchasePrice
		}
		if in.PurchaseFees != nil {
			if in.PurchaseFees.IsNegative() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "Fees cannot be negative")
			}
			investment.PurchaseFees = *in.PurchaseFees
		}
		if in.Notes != nil {
			investment.Notes = *in.Notes
		}

		if investment.SoldQuantity.IsPositive() {
			if investment.SoldQuantity.GreaterThanOrEqual(investment.Quantity) {
				investment.Status = models.InvestmentStatusSold
			} else {
				investment.Status = models.InvestmentStatusPartialSold
			}
		}
		investment.Recompute()

		if err := tx.Save(investment).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return investment, nil
}

// DeleteInvestment soft-deletes an investment together with its transactions.
func (s *investmentService) DeleteInvestment(userID, investmentID string) error {
	investment, err := findInvestment(s.db, userID, investmentID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("investment_id = ?", investment.ID).Delete(&models.InvestmentTransaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(investment).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// SellInvestment sells part or all of a position and records the sale.
func (s *investmentService) SellInvestment(userID, investmentID string, in SellInput) (*models.Investment, *models.InvestmentTransaction, error) {
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	var investment *models.Investment
	var sale *models.InvestmentTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		investment, err = findInvestment(forUpdate(tx), userID, investmentID)
		if err != nil {
			return err
		}

		sale, err = investment.Sell(in.Quantity, in.Price, in.Fees, calendar.Truncate(date))
		if err != nil {
			return err
		}
		sale.Notes = in.Notes

		if err := tx.Save(investment).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(sale).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return investment, sale, nil
}

// GetInvestmentTransactions returns a paginated list of transactions for an investment, newest first.
func (s *investmentService) GetInvestmentTransactions(
	userID, investmentID string,
	page pagination.PageRequest,
) (*pagination.PageResponse[models.InvestmentTransaction], error) {
	if _, err := findInvestment(s.db, userID, investmentID); err != nil {
		return nil, err
	}

	base := s.db.Model(&models.InvestmentTransaction{}).Where("investment_id = ?", investmentID)

	result, err := pagination.Find[models.InvestmentTransaction](base, page, "date DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return result, nil
}

// RefreshPrices revalues the user's held investments and stores the prices.
func (s *investmentService) RefreshPrices(ctx context.Context, userID string) (*PriceRefresh, error) {
	investments, err := loadInvestments(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	summary, valued := analytics.ValueInvestments(ctx, investments, s.prices)
	updated, err := saveValuations(ctx, s.db, valued)
	if err != nil {
		return nil, err
	}

	return &PriceRefresh{
		Updated:         updated,
		StaleSymbols:    summary.StaleSymbols,
		UnpricedSymbols: summary.UnpricedSymbols,
	}, nil
}

// GetPortfolioSummary values the user's portfolio and breaks it down by type.
func (s *investmentService) GetPortfolioSummary(ctx context.Context, userID string) (*PortfolioSummary, error) {
	investments, err := loadInvestments(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	summary, valued := analytics.ValueInvestments(ctx, investments, s.prices)
	if _, err := saveValuations(ctx, s.db, valued); err != nil {
		return nil, err
	}

	realized := decimal.Zero
	for i := range investments {
		realized = realized.Add(investments[i].RealizedProfit)
	}

	top, bottom := rankPerformers(valued)
	return &PortfolioSummary{
		InvestmentsSummary: summary,
		RealizedProfit:     realized,
		ByType:             breakdownByType(valued, summary.CurrentValue),
		TopPerformers:      top,
		BottomPerformers:   bottom,
	}, nil
}

// WarmPriceCache seeds cache with the newest stored price of every symbol so
// reads after a restart can fall back to them.
func WarmPriceCache(ctx context.Context, db *gorm.DB, cache *marketdata.Cache) (int, error) {
	var investments []models.Investment
	err := db.WithContext(ctx).
		Select("symbol", "current_price", "price_updated_at").
		Where("current_price IS NOT NULL AND price_updated_at IS NOT NULL").
		Order("price_updated_at DESC").
		Find(&investments).Error
	if err != nil {
		return 0, err
	}

	seeded := make(map[string]bool)
	for _, inv := range investments {
		if seeded[inv.Symbol] {
			continue
		}
		cache.Seed(inv.Symbol, inv.CurrentPrice.Decimal, *inv.PriceUpdatedAt)
		seeded[inv.Symbol] = true
	}
	return len(seeded), nil
}

func findInvestment(db *gorm.DB, userID, investmentID string) (*models.Investment, error) {
	var investment models.Investment
	if err := db.Where("id = ? AND user_id = ?", investmentID, userID).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &investment, nil
}

func loadInvestments(ctx context.Context, db *gorm.DB, userID string) ([]models.Investment, error) {
	var investments []models.Investment
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Find(&investments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return investments, nil
}

// saveValuations stores the price and derived fields of every priced holding.
// A row whose quantities or cost changed since it was loaded, by a sale or an
// edit, is left alone and not counted.
func saveValuations(ctx context.Context, db *gorm.DB, valued []models.Investment) (int, error) {
	saved := 0
	for i := range valued {
		inv := &valued[i]
		if !inv.CurrentPrice.Valid {
			continue
		}
		res := db.WithContext(ctx).Model(&models.Investment{}).
			Where("id = ? AND quantity = ? AND sold_quantity = ? AND purchase_price = ? AND purchase_fees = ?",
				inv.ID, inv.Quantity, inv.SoldQuantity, inv.PurchasePrice, inv.PurchaseFees).
			Updates(map[string]interface{}{
				"current_price":          inv.CurrentPrice,
				"price_updated_at":       inv.PriceUpdatedAt,
				"total_invested":         inv.TotalInvested,
				"current_value":          inv.CurrentValue,
				"profit_loss":            inv.ProfitLoss,
				"profit_loss_percentage": inv.ProfitLossPercentage,
			})
		if res.Error != nil {
			return saved, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 1 {
			saved++
		}
	}
	return saved, nil
}

func rankPerformers(valued []models.Investment) (top, bottom []analytics.Performer) {
	var ranked []analytics.Performer
	for i := range valued {
		inv := &valued[i]
		if inv.ProfitLossPercentage == nil {
			continue
		}
		ranked = append(ranked, analytics.Performer{
			InvestmentID:         inv.ID,
			Symbol:               inv.Symbol,
			Name:                 inv.Name,
			ProfitLossPercentage: *inv.ProfitLossPercentage,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ProfitLossPercentage > ranked[j].ProfitLossPercentage
	})

	top = ranked[:min(performersListed, len(ranked))]
	for i := len(ranked) - 1; i >= 0 && len(bottom) < performersListed; i-- {
		bottom = append(bottom, ranked[i])
	}
	return top, bottom
}

func breakdownByType(valued []models.Investment, total decimal.Decimal) []TypeBreakdown {
	byType := make(map[models.InvestmentType]*TypeBreakdown)
	var order []models.InvestmentType
	for i := range valued {
		inv := &valued[i]
		if !inv.CurrentValue.Valid {
			continue
		}
		b, ok := byType[inv.Type]
		if !ok {
			b = &TypeBreakdown{Type: inv.Type, Invested: decimal.Zero, Value: decimal.Zero}
			byType[inv.Type] = b
			order = append(order, inv.Type)
		}
		b.Count++
		b.Invested = b.Invested.Add(inv.TotalInvested)
		b.Value = b.Value.Add(inv.CurrentValue.Decimal)
	}

	out := make([]TypeBreakdown, 0, len(order))
	for _, t := range order {
		b := byType[t]
		b.Percentage = analytics.Percentage(b.Value, total)
		out = append(out, *b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].Type < out[j].Type
	})
	return out
}
