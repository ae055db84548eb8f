package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"fintrack/internal/logger"
)

// Status describes how trustworthy a cached price is.
type Status string

const (
	StatusFresh       Status = "fresh"
	StatusStale       Status = "stale"
	StatusUnavailable Status = "unavailable"
)

// Price is the result of a cache read.
type Price struct {
	Symbol        string          `json:"symbol"`
	Value         decimal.Decimal `json:"value"`
	ChangePercent float64         `json:"change_percent"`
	FetchedAt     time.Time       `json:"fetched_at"`
	Status        Status          `json:"status"`
}

// Available reports whether the price carries a value.
func (p Price) Available() bool {
	return p.Status != StatusUnavailable
}

// Options configures a Cache. Zero values select the defaults.
type Options struct {
	// TTL is how long a fetched price counts as fresh. Default 15 minutes.
	TTL time.Duration
	// MinSpacing is the minimum gap between two provider calls across all symbols.
	// Default 12 seconds; a negative value disables spacing.
	MinSpacing time.Duration
	// FetchTimeout bounds a single provider call. Default 10 seconds.
	FetchTimeout time.Duration
	// Now overrides the clock.
	Now func() time.Time
}

const (
	DefaultTTL          = 15 * time.Minute
	DefaultMinSpacing   = 12 * time.Second
	defaultFetchTimeout = 10 * time.Second
)

type entry struct {
	price         decimal.Decimal
	changePercent float64
	fetchedAt     time.Time
}

// Cache maps a symbol to its latest known price. Entries are never evicted;
// freshness is judged against the TTL at read time.
type Cache struct {
	provider     Provider
	ttl          time.Duration
	fetchTimeout time.Duration
	limiter      *rate.Limiter
	now          func() time.Time
	log          *zap.SugaredLogger

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]entry
}

// NewCache creates a Cache in front of provider. A nil provider serves only
// seeded prices.
func NewCache(provider Provider, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MinSpacing == 0 {
		opts.MinSpacing = DefaultMinSpacing
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	limit := rate.Inf
	if opts.MinSpacing > 0 {
		limit = rate.Every(opts.MinSpacing)
	}

	return &Cache{
		provider:     provider,
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		limiter:      rate.NewLimiter(limit, 1),
		now:          opts.Now,
		log:          logger.Named("marketdata"),
		entries:      make(map[string]entry),
	}
}

// Get returns the price for symbol. A fresh entry is returned without network
// access. Otherwise one refresh is attempted, shared by every concurrent caller
// for the same symbol. If the refresh fails, or ctx ends before it completes,
// the last known value is returned as stale, or unavailable when none exists.
// An abandoned refresh keeps its place behind the spacer and fills the cache
// when it finishes, so at most one refresh per symbol is ever queued.
func (c *Cache) Get(ctx context.Context, symbol string) Price {
	symbol = NormalizeSymbol(symbol)

	if e, ok := c.lookup(symbol); ok && c.isFresh(e) {
		return e.toPrice(symbol, StatusFresh)
	}

	ch := c.group.DoChan(symbol, func() (any, error) {
		return c.refresh(symbol)
	})

	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(entry).toPrice(symbol, StatusFresh)
		}
	case <-ctx.Done():
		c.log.Warnw("price refresh still in flight, using last known value", "symbol", symbol)
	}

	return c.fallback(symbol)
}

// Search runs a symbol search through the same spacer as quote fetches.
func (c *Cache) Search(ctx context.Context, query string) ([]SymbolMatch, error) {
	if c.provider == nil {
		return nil, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return c.provider.SearchSymbol(ctx, query)
}

// Seed records a previously persisted price so it can serve as the stale
// fallback after a restart. Existing entries are left untouched.
func (c *Cache) Seed(symbol string, price decimal.Decimal, fetchedAt time.Time) {
	symbol = NormalizeSymbol(symbol)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[symbol]; ok {
		return
	}
	c.entries[symbol] = entry{price: price, fetchedAt: fetchedAt}
}

// Len returns the number of symbols ever cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) refresh(symbol string) (entry, error) {
	if c.provider == nil {
		return entry{}, ErrNotConfigured
	}

	if err := c.limiter.Wait(context.Background()); err != nil {
		return entry{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	fetchCtx, cancelFetch := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancelFetch()
	quote, err := c.provider.FetchQuote(fetchCtx, symbol)
	if err != nil {
		c.log.Warnw("price refresh failed",
			"symbol", symbol,
			"provider", c.provider.Name(),
			"error", err,
		)
		return entry{}, err
	}

	e := entry{price: quote.Price, changePercent: quote.ChangePercent, fetchedAt: c.now()}
	c.mu.Lock()
	c.entries[symbol] = e
	c.mu.Unlock()
	return e, nil
}

func (c *Cache) lookup(symbol string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	return e, ok
}

func (c *Cache) isFresh(e entry) bool {
	return c.now().Sub(e.fetchedAt) < c.ttl
}

func (c *Cache) fallback(symbol string) Price {
	e, ok := c.lookup(symbol)
	if !ok {
		return Price{Symbol: symbol, Status: StatusUnavailable}
	}
	if c.isFresh(e) {
		return e.toPrice(symbol, StatusFresh)
	}
	return e.toPrice(symbol, StatusStale)
}

func (e entry) toPrice(symbol string, status Status) Price {
	return Price{
		Symbol:        symbol,
		Value:         e.price,
		ChangePercent: e.changePercent,
		FetchedAt:     e.fetchedAt,
		Status:        status,
	}
}
