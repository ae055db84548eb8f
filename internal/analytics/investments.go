package analytics

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"fintrack/internal/marketdata"
	"fintrack/internal/models"
)

// Performer identifies the best or worst holding by return.
type Performer struct {
	InvestmentID         string  `json:"investment_id"`
	Symbol               string  `json:"symbol"`
	Name                 string  `json:"name"`
	ProfitLossPercentage float64 `json:"profit_loss_percentage"`
}

// InvestmentsSummary values the held portfolio. Totals cover priced holdings
// only; holdings without any known price are listed in UnpricedSymbols.
type InvestmentsSummary struct {
	Holdings         int             `json:"holdings"`
	PricedHoldings   int             `json:"priced_holdings"`
	TotalInvested    decimal.Decimal `json:"total_invested"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	TotalReturn      decimal.Decimal `json:"total_return"`
	ReturnPercentage float64         `json:"return_percentage"`
	BestPerformer    *Performer      `json:"best_performer,omitempty"`
	WorstPerformer   *Performer      `json:"worst_performer,omitempty"`
	StaleSymbols     []string        `json:"stale_symbols,omitempty"`
	UnpricedSymbols  []string        `json:"unpriced_symbols,omitempty"`
}

// ValueInvestments prices every held investment through prices and returns
// the portfolio summary along with the revalued holdings. Sold positions are
// ignored. A holding whose price is unavailable keeps its stored price, if any.
func ValueInvestments(ctx context.Context, investments []models.Investment, prices PriceSource) (InvestmentsSummary, []models.Investment) {
	held := make([]models.Investment, 0, len(investments))
	for i := range investments {
		if investments[i].Status.IsHeld() {
			held = append(held, investments[i])
		}
	}
	sort.SliceStable(held, func(i, j int) bool {
		if held[i].Symbol != held[j].Symbol {
			return held[i].Symbol < held[j].Symbol
		}
		return held[i].ID < held[j].ID
	})

	quotes := fetchAll(ctx, held, prices)

	s := InvestmentsSummary{
		Holdings:      len(held),
		TotalInvested: decimal.Zero,
		CurrentValue:  decimal.Zero,
		TotalReturn:   decimal.Zero,
	}
	stale := make(map[string]bool)
	unpriced := make(map[string]bool)

	for i := range held {
		inv := &held[i]
		q := quotes[i]
		switch q.Status {
		case marketdata.StatusFresh:
			inv.ApplyPrice(q.Value, q.FetchedAt)
		case marketdata.StatusStale:
			inv.ApplyPrice(q.Value, q.FetchedAt)
			stale[inv.Symbol] = true
		case marketdata.StatusUnavailable:
			inv.Recompute()
			if inv.CurrentPrice.Valid {
				stale[inv.Symbol] = true
			}
		}
		if !inv.CurrentValue.Valid {
			unpriced[inv.Symbol] = true
			continue
		}

		s.PricedHoldings++
		s.TotalInvested = s.TotalInvested.Add(inv.TotalInvested)
		s.CurrentValue = s.CurrentValue.Add(inv.CurrentValue.Decimal)

		if inv.ProfitLossPercentage == nil {
			continue
		}
		pct := *inv.ProfitLossPercentage
		if pct > 0 && (s.BestPerformer == nil || pct > s.BestPerformer.ProfitLossPercentage) {
			s.BestPerformer = performer(inv)
		}
		if pct < 0 && (s.WorstPerformer == nil || pct < s.WorstPerformer.ProfitLossPercentage) {
			s.WorstPerformer = performer(inv)
		}
	}

	s.TotalReturn = s.CurrentValue.Sub(s.TotalInvested)
	s.ReturnPercentage = Percentage(s.TotalReturn, s.TotalInvested)
	s.StaleSymbols = sortedKeys(stale)
	s.UnpricedSymbols = sortedKeys(unpriced)
	return s, held
}

// fetchAll reads every holding's price concurrently so one slow symbol does
// not hold up the rest.
func fetchAll(ctx context.Context, held []models.Investment, prices PriceSource) []marketdata.Price {
	out := make([]marketdata.Price, len(held))
	if prices == nil {
		for i := range held {
			out[i] = marketdata.Price{Symbol: held[i].Symbol, Status: marketdata.StatusUnavailable}
		}
		return out
	}

	var wg sync.WaitGroup
	for i := range held {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = prices.Get(ctx, held[i].Symbol)
		}()
	}
	wg.Wait()
	return out
}

func performer(inv *models.Investment) *Performer {
	return &Performer{
		InvestmentID:         inv.ID,
		Symbol:               inv.Symbol,
		Name:                 inv.Name,
		ProfitLossPercentage: *inv.ProfitLossPercentage,
	}
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
