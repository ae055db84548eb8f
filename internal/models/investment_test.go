package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
)

func newInvestment(quantity, price, fees float64) *Investment {
	inv := &Investment{
		Symbol:        "AAPL",
		Name:          "Apple Inc.",
		Type:          InvestmentTypeStock,
		Quantity:      dec(quantity),
		PurchasePrice: dec(price),
		PurchaseFees:  dec(fees),
		PurchaseDate:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Status:        InvestmentStatusActive,
	}
	inv.Recompute()
	return inv
}

func TestInvestment_Recompute(t *testing.T) {
	t.Run("without_price", func(t *testing.T) {
		inv := newInvestment(10, 100, 5)

		if !inv.TotalInvested.Equal(dec(1005)) {
			t.Errorf("expected total invested 1005, got %s", inv.TotalInvested)
		}
		if inv.CurrentValue.Valid || inv.ProfitLoss.Valid || inv.ProfitLossPercentage != nil {
			t.Error("expected null valuation without a price")
		}
	})

	t.Run("with_price", func(t *testing.T) {
		inv := newInvestment(10, 100, 5)
		inv.ApplyPrice(dec(120), time.Now())

		if !inv.CurrentValue.Decimal.Equal(dec(1200)) {
			t.Errorf("expected value 1200, got %s", inv.CurrentValue.Decimal)
		}
		if !inv.ProfitLoss.Decimal.Equal(dec(195)) {
			t.Errorf("expected profit 195, got %s", inv.ProfitLoss.Decimal)
		}
		if inv.ProfitLossPercentage == nil || *inv.ProfitLossPercentage != 19.4 {
			t.Errorf("expected 19.4%%, got %v", inv.ProfitLossPercentage)
		}
	})

	t.Run("zero_cost_has_zero_percentage", func(t *testing.T) {
		inv := newInvestment(10, 0, 0)
		inv.ApplyPrice(dec(5), time.Now())

		if inv.ProfitLossPercentage == nil || *inv.ProfitLossPercentage != 0 {
			t.Errorf("expected 0%%, got %v", inv.ProfitLossPercentage)
		}
	})
}

func TestInvestment_Sell(t *testing.T) {
	saleDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("full_sale_marks_sold", func(t *testing.T) {
		inv := newInvestment(10, 100, 0)

		tx, err := inv.Sell(dec(10), dec(150), decimal.Zero, saleDate)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inv.Status != InvestmentStatusSold {
			t.Errorf("expected sold, got %s", inv.Status)
		}
		if !inv.RealizedProfit.Equal(dec(500)) {
			t.Errorf("expected realized 500, got %s", inv.RealizedProfit)
		}
		if tx.Type != InvestmentTransactionSell || !tx.TotalAmount.Equal(dec(1500)) {
			t.Errorf("unexpected transaction %+v", tx)
		}

		_, err = inv.Sell(dec(1), dec(150), decimal.Zero, saleDate)
		if !errors.Is(err, apperrors.ErrInvestmentAlreadySold) {
			t.Errorf("expected INVESTMENT_ALREADY_SOLD, got %v", err)
		}
	})

	t.Run("partial_sale", func(t *testing.T) {
		inv := newInvestment(10, 100, 10)

		if _, err := inv.Sell(dec(4), dec(110), dec(2), saleDate); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inv.Status != InvestmentStatusPartialSold {
			t.Errorf("expected partial_sold, got %s", inv.Status)
		}
		if !inv.RemainingQuantity().Equal(dec(6)) {
			t.Errorf("expected 6 remaining, got %s", inv.RemainingQuantity())
		}
		// proceeds 440-2=438, cost 400+4=404
		if !inv.RealizedProfit.Equal(dec(34)) {
			t.Errorf("expected realized 34, got %s", inv.RealizedProfit)
		}
		if !inv.TotalInvested.Equal(dec(606)) {
			t.Errorf("expected remaining cost 606, got %s", inv.TotalInvested)
		}
	})

	t.Run("rejects_overselling", func(t *testing.T) {
		inv := newInvestment(10, 100, 0)
		_, _ = inv.Sell(dec(7), dec(100), decimal.Zero, saleDate)

		_, err := inv.Sell(dec(4), dec(100), decimal.Zero, saleDate)
		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Errorf("expected INSUFFICIENT_SHARES, got %v", err)
		}
		if !inv.SoldQuantity.Equal(dec(7)) {
			t.Errorf("rejected sale must not change sold quantity, got %s", inv.SoldQuantity)
		}
	})

	t.Run("remaining_after_partial_can_be_sold", func(t *testing.T) {
		inv := newInvestment(10, 100, 0)
		_, _ = inv.Sell(dec(7), dec(100), decimal.Zero, saleDate)

		if _, err := inv.Sell(dec(3), dec(100), decimal.Zero, saleDate); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inv.Status != InvestmentStatusSold {
			t.Errorf("expected sold, got %s", inv.Status)
		}
	})

	t.Run("rejects_invalid_input", func(t *testing.T) {
		inv := newInvestment(10, 100, 0)
		if _, err := inv.Sell(decimal.Zero, dec(100), decimal.Zero, saleDate); !errors.Is(err, apperrors.ErrInvalidAmount) {
			t.Errorf("expected INVALID_AMOUNT, got %v", err)
		}
		if _, err := inv.Sell(dec(1), dec(100), dec(-1), saleDate); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("expected INVALID_INPUT, got %v", err)
		}
	})
}

func TestInvestmentStatus_IsHeld(t *testing.T) {
	if !InvestmentStatusActive.IsHeld() || !InvestmentStatusPartialSold.IsHeld() {
		t.Error("active and partially sold positions are held")
	}
	if InvestmentStatusSold.IsHeld() {
		t.Error("sold positions are not held")
	}
}
