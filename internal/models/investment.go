package models

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
)

// InvestmentType is the asset class of a holding.
type InvestmentType string

const (
	InvestmentTypeStock      InvestmentType = "stock"
	InvestmentTypeETF        InvestmentType = "etf"
	InvestmentTypeMutualFund InvestmentType = "mutual_fund"
	InvestmentTypeBond       InvestmentType = "bond"
	InvestmentTypeCrypto     InvestmentType = "crypto"
	InvestmentTypeRealEstate InvestmentType = "real_estate"
	InvestmentTypeCommodity  InvestmentType = "commodity"
	InvestmentTypeOther      InvestmentType = "other"
)

// Valid reports whether t is a known investment type.
func (t InvestmentType) Valid() bool {
	switch t {
	case InvestmentTypeStock, InvestmentTypeETF, InvestmentTypeMutualFund, InvestmentTypeBond,
		InvestmentTypeCrypto, InvestmentTypeRealEstate, InvestmentTypeCommodity, InvestmentTypeOther:
		return true
	}
	return false
}

// InvestmentStatus tracks how much of a holding has been sold.
type InvestmentStatus string

const (
	InvestmentStatusActive      InvestmentStatus = "active"
	InvestmentStatusPartialSold InvestmentStatus = "partial_sold"
	InvestmentStatusSold        InvestmentStatus = "sold"
)

// IsHeld reports whether any quantity remains in the portfolio.
func (s InvestmentStatus) IsHeld() bool {
	switch s {
	case InvestmentStatusActive, InvestmentStatusPartialSold:
		return true
	case InvestmentStatusSold:
		return false
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Investment is a position in one symbol. TotalInvested, CurrentValue,
// ProfitLoss and ProfitLossPercentage are projections of the other fields and
// are only ever written by Recompute.
type Investment struct {
	Base
	UserID         string           `gorm:"type:uuid;not null;index" json:"user_id"`
	Symbol         string           `gorm:"not null;size:20;index" json:"symbol"`
	Name           string           `gorm:"not null;size:200" json:"name"`
	Type           InvestmentType   `gorm:"column:investment_type;not null;size:20" json:"investment_type"`
	Quantity       decimal.Decimal  `gorm:"type:numeric(20,8);not null" json:"quantity"`
	PurchasePrice  decimal.Decimal  `gorm:"type:numeric(15,4);not null" json:"purchase_price"`
	PurchaseDate   time.Time        `gorm:"not null" json:"purchase_date"`
	PurchaseFees   decimal.Decimal  `gorm:"type:numeric(15,2);not null;default:0" json:"purchase_fees"`
	SoldQuantity   decimal.Decimal  `gorm:"type:numeric(20,8);not null;default:0" json:"sold_quantity"`
	SalePrice      decimal.Decimal  `gorm:"type:numeric(15,4);not null;default:0" json:"sale_price"`
	SaleFees       decimal.Decimal  `gorm:"type:numeric(15,2);not null;default:0" json:"sale_fees"`
	SaleDate       *time.Time       `json:"sale_date,omitempty"`
	RealizedProfit decimal.Decimal  `gorm:"type:numeric(15,2);not null;default:0" json:"realized_profit"`
	Status         InvestmentStatus `gorm:"not null;size:20;default:active;index" json:"status"`
	Notes          string           `json:"notes,omitempty"`

	CurrentPrice         decimal.NullDecimal `gorm:"type:numeric(15,4)" json:"current_price"`
	PriceUpdatedAt       *time.Time          `json:"price_updated_at,omitempty"`
	TotalInvested        decimal.Decimal     `gorm:"type:numeric(15,2);not null;default:0" json:"total_invested"`
	CurrentValue         decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"current_value"`
	ProfitLoss           decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"profit_loss"`
	ProfitLossPercentage *float64            `json:"profit_loss_percentage"`

	Transactions []InvestmentTransaction `gorm:"foreignKey:InvestmentID" json:"transactions,omitempty"`
}

// RemainingQuantity is the quantity still held.
func (inv *Investment) RemainingQuantity() decimal.Decimal {
	return inv.Quantity.Sub(inv.SoldQuantity)
}

// Recompute derives the valuation fields for the remaining quantity. Purchase
// fees are attributed pro rata. Without a current price the value fields are null.
func (inv *Investment) Recompute() {
	remaining := inv.RemainingQuantity()
	inv.TotalInvested = inv.costOf(remaining).Round(2)

	if !inv.CurrentPrice.Valid {
		inv.CurrentValue = decimal.NullDecimal{}
		inv.ProfitLoss = decimal.NullDecimal{}
		inv.ProfitLossPercentage = nil
		return
	}

	value := remaining.Mul(inv.CurrentPrice.Decimal).Round(2)
	profit := value.Sub(inv.TotalInvested)
	pct := 0.0
	if inv.TotalInvested.IsPositive() {
		pct = profit.Div(inv.TotalInvested).Mul(hundred).Round(2).InexactFloat64()
	}

	inv.CurrentValue = decimal.NewNullDecimal(value)
	inv.ProfitLoss = decimal.NewNullDecimal(profit)
	inv.ProfitLossPercentage = &pct
}

// ApplyPrice records a market price and recomputes the valuation.
func (inv *Investment) ApplyPrice(price decimal.Decimal, at time.Time) {
	inv.CurrentPrice = decimal.NewNullDecimal(price)
	inv.PriceUpdatedAt = &at
	inv.Recompute()
}

// Sell disposes of quantity units at price. Selling everything that remains
// marks the investment sold; anything less marks it partially sold.
func (inv *Investment) Sell(quantity, price, fees decimal.Decimal, date time.Time) (*InvestmentTransaction, error) {
	if !quantity.IsPositive() || !price.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if fees.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Fees cannot be negative")
	}
	if inv.Status == InvestmentStatusSold {
		return nil, apperrors.ErrInvestmentAlreadySold
	}
	if quantity.GreaterThan(inv.RemainingQuantity()) {
		return nil, apperrors.ErrInsufficientShares
	}

	proceeds := quantity.Mul(price).Sub(fees).Round(2)
	realized := proceeds.Sub(inv.costOf(quantity)).Round(2)

	inv.SoldQuantity = inv.SoldQuantity.Add(quantity)
	inv.SalePrice = price
	inv.SaleFees = inv.SaleFees.Add(fees)
	inv.SaleDate = &date
	inv.RealizedProfit = inv.RealizedProfit.Add(realized)
	if inv.SoldQuantity.GreaterThanOrEqual(inv.Quantity) {
		inv.Status = InvestmentStatusSold
	} else {
		inv.Status = InvestmentStatusPartialSold
	}
	inv.Recompute()

	return &InvestmentTransaction{
		InvestmentID:     inv.ID,
		Type:             InvestmentTransactionSell,
		Date:             date,
		Quantity:         quantity,
		PricePerUnit:     price,
		Fee:              fees,
		TotalAmount:      proceeds,
		RealizedGainLoss: realized,
	}, nil
}

// costOf is the purchase cost attributable to quantity units, fees included.
func (inv *Investment) costOf(quantity decimal.Decimal) decimal.Decimal {
	cost := quantity.Mul(inv.PurchasePrice)
	if inv.Quantity.IsPositive() {
		cost = cost.Add(inv.PurchaseFees.Mul(quantity).Div(inv.Quantity))
	}
	return cost
}

// InvestmentTransactionType is the kind of investment transaction.
type InvestmentTransactionType string

const (
	InvestmentTransactionBuy  InvestmentTransactionType = "buy"
	InvestmentTransactionSell InvestmentTransactionType = "sell"
)

// InvestmentTransaction is the history of buys and sells on an investment.
type InvestmentTransaction struct {
	Base
	InvestmentID     string                    `gorm:"type:uuid;not null;index" json:"investment_id"`
	Type             InvestmentTransactionType `gorm:"not null;size:10" json:"type"`
	Date             time.Time                 `gorm:"not null" json:"date"`
	Quantity         decimal.Decimal           `gorm:"type:numeric(20,8);not null" json:"quantity"`
	PricePerUnit     decimal.Decimal           `gorm:"type:numeric(15,4);not null" json:"price_per_unit"`
	Fee              decimal.Decimal           `gorm:"type:numeric(15,2);not null;default:0" json:"fee"`
	TotalAmount      decimal.Decimal           `gorm:"type:numeric(15,2);not null" json:"total_amount"`
	RealizedGainLoss decimal.Decimal           `gorm:"type:numeric(15,2);not null;default:0" json:"realized_gain_loss"`
	Notes            string                    `json:"notes,omitempty"`
}
