package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/calendar"
	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/logger"
	"fintrack/internal/marketdata"
	"fintrack/internal/recurrence"
	"fintrack/internal/services"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fintrack-batch",
		Short:         "Run fintrack batch jobs and market data lookups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newQuoteCmd(), newSearchCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var date string
	var workers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Materialize due recurring entries and roll over budgets",
		Long: `Run executes one daily batch: every recurring income and expense due on
or before the given date is materialized, then budgets whose period has
ended are rolled into the current one. Running it twice for the same date
creates nothing new.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := time.Now()
			if date != "" {
				parsed, err := time.ParseInLocation(time.DateOnly, date, time.UTC)
				if err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD: %w", date, err)
				}
				asOf = parsed
			}

			ctx, stop := signal.NotifyContext(services.WithTrigger(cmd.Context(), services.TriggerCLI), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			dbManager, err := database.NewManager(database.NewConfig(cfg))
			if err != nil {
				return err
			}
			defer dbManager.Close()

			db := dbManager.DB()
			processor := recurrence.NewProcessor(recurrence.NewGormStore(db), recurrence.Options{Workers: workers})
			batch := services.NewBatchService(processor, services.NewBudgetService(db), services.NewAuditService(db))

			result, err := batch.Run(ctx, calendar.Truncate(asOf))
			if result != nil {
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
					return werr
				}
			}
			if err != nil {
				return err
			}
			if len(result.Failures) > 0 {
				for _, f := range result.Failures {
					logger.Get().Warnw("definition failed", "kind", f.Kind, "id", f.ID, "error", f.Error)
				}
				return errBatchFailures
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "process occurrences due on or before this date (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&workers, "workers", 0, "definitions processed in parallel (default 4)")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Fetch the current price of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := newPriceCache()
			if err != nil {
				return err
			}
			symbol := marketdata.NormalizeSymbol(args[0])
			if symbol == "" {
				return fmt.Errorf("symbol is required")
			}

			price := cache.Get(cmd.Context(), symbol)
			if !price.Available() {
				return fmt.Errorf("no price available for %s", symbol)
			}
			return writeJSON(cmd.OutOrStdout(), price)
		},
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the market data provider for matching symbols",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := newPriceCache()
			if err != nil {
				return err
			}
			matches, err := cache.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if matches == nil {
				matches = []marketdata.SymbolMatch{}
			}
			return writeJSON(cmd.OutOrStdout(), matches)
		},
	}
}

// newPriceCache builds a cache with no spacing since a CLI call makes one request.
func newPriceCache() (*marketdata.Cache, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	provider := marketdata.NewAlphaVantageProvider(
		&http.Client{Timeout: cfg.PriceFetchTimeout},
		cfg.AlphaVantageAPIKey,
		cfg.AlphaVantageBaseURL,
	)
	return marketdata.NewCache(provider, marketdata.Options{
		MinSpacing:   -1,
		FetchTimeout: cfg.PriceFetchTimeout,
	}), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
