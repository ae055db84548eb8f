package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	alphaVantageBaseURL = "https://www.alphavantage.co/query"
	maxSearchResults    = 10
)

// alphaVantageEnvelope carries the status keys Alpha Vantage puts next to any payload.
type alphaVantageEnvelope struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

type alphaVantageQuoteResponse struct {
	alphaVantageEnvelope
	GlobalQuote map[string]string `json:"Global Quote"`
}

type alphaVantageSearchResponse struct {
	alphaVantageEnvelope
	BestMatches []map[string]string `json:"bestMatches"`
}

// AlphaVantageProvider fetches quotes from the Alpha Vantage REST API.
type AlphaVantageProvider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewAlphaVantageProvider creates a provider. An empty baseURL selects the public endpoint.
func NewAlphaVantageProvider(httpClient *http.Client, apiKey, baseURL string) *AlphaVantageProvider {
	if baseURL == "" {
		baseURL = alphaVantageBaseURL
	}
	return &AlphaVantageProvider{httpClient: httpClient, apiKey: apiKey, baseURL: baseURL}
}

// Name returns the provider's display name.
func (p *AlphaVantageProvider) Name() string { return "Alpha Vantage" }

// FetchQuote calls GLOBAL_QUOTE for a single symbol.
func (p *AlphaVantageProvider) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	var resp alphaVantageQuoteResponse
	if err := p.get(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}}, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	if len(resp.GlobalQuote) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return parseGlobalQuote(symbol, resp.GlobalQuote)
}

// SearchSymbol calls SYMBOL_SEARCH and returns at most ten matches.
func (p *AlphaVantageProvider) SearchSymbol(ctx context.Context, query string) ([]SymbolMatch, error) {
	var resp alphaVantageSearchResponse
	if err := p.get(ctx, url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {query}}, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}

	matches := make([]SymbolMatch, 0, min(len(resp.BestMatches), maxSearchResults))
	for _, m := range resp.BestMatches {
		if len(matches) == maxSearchResults {
			break
		}
		score, _ := strconv.ParseFloat(m["9. matchScore"], 64)
		matches = append(matches, SymbolMatch{
			Symbol:     m["1. symbol"],
			Name:       m["2. name"],
			Type:       m["3. type"],
			Region:     m["4. region"],
			Currency:   m["8. currency"],
			MatchScore: score,
		})
	}
	return matches, nil
}

func (p *AlphaVantageProvider) get(ctx context.Context, params url.Values, out any) error {
	if p.apiKey == "" {
		return ErrNotConfigured
	}
	params.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func (e alphaVantageEnvelope) check() error {
	switch {
	case e.ErrorMessage != "":
		return fmt.Errorf("%w: %s", ErrSymbolNotFound, e.ErrorMessage)
	case e.Note != "":
		return fmt.Errorf("%w: %s", ErrRateLimited, e.Note)
	case e.Information != "":
		return fmt.Errorf("%w: %s", ErrRateLimited, e.Information)
	}
	return nil
}

func parseGlobalQuote(symbol string, q map[string]string) (*Quote, error) {
	price, err := decimal.NewFromString(q["05. price"])
	if err != nil {
		return nil, fmt.Errorf("%w: price %q", ErrMalformedPayload, q["05. price"])
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive price for %s", ErrMalformedPayload, symbol)
	}

	quote := &Quote{
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}
	if s := q["01. symbol"]; s != "" {
		quote.Symbol = s
	}
	if v, err := decimal.NewFromString(q["09. change"]); err == nil {
		quote.Change = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSuffix(q["10. change percent"], "%"), 64); err == nil {
		quote.ChangePercent = v
	}
	if v, err := decimal.NewFromString(q["08. previous close"]); err == nil {
		quote.PreviousClose = v
	}
	if v, err := strconv.ParseInt(q["06. volume"], 10, 64); err == nil {
		quote.Volume = v
	}
	if d, err := time.Parse(time.DateOnly, q["07. latest trading day"]); err == nil {
		quote.Timestamp = d
	}
	return quote, nil
}
