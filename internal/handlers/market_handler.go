package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/marketdata"
)

// QuoteSource serves cached quotes and symbol searches.
type QuoteSource interface {
	Get(ctx context.Context, symbol string) marketdata.Price
	Search(ctx context.Context, query string) ([]marketdata.SymbolMatch, error)
}

// MarketHandler handles market data lookups.
type MarketHandler struct {
	quotes QuoteSource
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(quotes QuoteSource) *MarketHandler {
	return &MarketHandler{quotes: quotes}
}

// GetQuote handles a price lookup for one symbol.
// @Summary     Get quote
// @Description Latest known price for a symbol; stale when the provider could not be reached
// @Tags        market
// @Produce     json
// @Security    BearerAuth
// @Param       symbol path string true "Ticker symbol"
// @Success     200 {object} marketdata.Price "Price"
// @Failure     400 {object} ErrorResponse "Invalid symbol"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "No price available"
// @Router      /market/quote/{symbol} [get]
func (h *MarketHandler) GetQuote(c *gin.Context) {
	symbol := marketdata.NormalizeSymbol(c.Param("symbol"))
	if symbol == "" || len(symbol) > 20 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid symbol"))
		return
	}

	price := h.quotes.Get(c.Request.Context(), symbol)
	if !price.Available() {
		respondWithError(c, apperrors.ErrMarketDataUnavailable)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quote": price})
}

// SearchSymbols handles a symbol search.
// @Summary     Search symbols
// @Description Find ticker symbols matching a keyword
// @Tags        market
// @Produce     json
// @Security    BearerAuth
// @Param       q query string true "Search keywords"
// @Success     200 {array}  marketdata.SymbolMatch "Matches, best first"
// @Failure     400 {object} ErrorResponse "Missing query"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Market data unavailable"
// @Router      /market/search [get]
func (h *MarketHandler) SearchSymbols(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "q is required"))
		return
	}

	matches, err := h.quotes.Search(c.Request.Context(), query)
	if err != nil {
		respondWithError(c, marketError(err))
		return
	}
	if matches == nil {
		matches = []marketdata.SymbolMatch{}
	}

	c.JSON(http.StatusOK, gin.H{"results": matches})
}

func marketError(err error) error {
	switch {
	case errors.Is(err, marketdata.ErrSymbolNotFound):
		return apperrors.ErrSymbolNotFound
	case errors.Is(err, marketdata.ErrRateLimited),
		errors.Is(err, marketdata.ErrNotConfigured),
		errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrMarketDataUnavailable
	default:
		return apperrors.Wrap(apperrors.ErrMarketDataUnavailable, err)
	}
}
