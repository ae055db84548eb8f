// Package marketdata fetches quotes from an external market-data provider and
// keeps the latest known price per symbol behind a rate-limited cache.
package marketdata

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrRateLimited      = errors.New("market data provider rate limit reached")
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrMalformedPayload = errors.New("malformed market data payload")
	ErrNotConfigured    = errors.New("market data provider is not configured")
)

// Quote is a single price observation returned by a provider.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent float64         `json:"change_percent"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Volume        int64           `json:"volume"`
	Timestamp     time.Time       `json:"timestamp"`
}

// SymbolMatch is one result of a symbol search.
type SymbolMatch struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Region     string  `json:"region"`
	Currency   string  `json:"currency"`
	MatchScore float64 `json:"match_score"`
}

// Provider is an external source of quotes.
type Provider interface {
	// Name returns the provider's display name.
	Name() string

	// FetchQuote returns the latest quote for symbol.
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)

	// SearchSymbol returns symbols matching query, best match first.
	SearchSymbol(ctx context.Context, query string) ([]SymbolMatch, error)
}

// NormalizeSymbol upper-cases and trims a ticker so cache keys are stable.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
