package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/logger"
	"fintrack/internal/marketdata"
	"fintrack/internal/scheduler"
	"fintrack/internal/server"
	"fintrack/internal/services"

	"github.com/gin-gonic/gin"

	_ "fintrack/internal/docs" // Import swagger docs
)

// @title           Fintrack API
// @version         1.0
// @description     Fintrack tracks incomes, expenses, budgets, savings goals and investments, materializes recurring entries and aggregates them into dashboards.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Pipeline API key for batch endpoints.

func main() {
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()

	// Market data
	provider := marketdata.NewAlphaVantageProvider(
		&http.Client{Timeout: appConfig.PriceFetchTimeout},
		appConfig.AlphaVantageAPIKey,
		appConfig.AlphaVantageBaseURL,
	)
	priceCache := marketdata.NewCache(provider, marketdata.Options{
		TTL:          appConfig.PriceCacheTTL,
		MinSpacing:   appConfig.PriceMinSpacing,
		FetchTimeout: appConfig.PriceFetchTimeout,
	})
	if warmed, err := services.WarmPriceCache(ctx, db, priceCache); err != nil {
		log.Warnf("failed to warm price cache: %v", err)
	} else {
		log.Infof("Price cache warmed with %d stored prices", warmed)
	}

	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(db, priceCache, server.Config{
		PipelineAPIKey:  appConfig.PipelineAPIKey,
		ReportPriceWait: appConfig.ReportPriceWait,
		Health: func(c *gin.Context) {
			pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := dbManager.Ping(pingCtx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
		},
	})

	// Daily batch
	if appConfig.EnableScheduledTasks {
		daily, err := scheduler.NewDaily(appConfig.SchedulerRunAt, func(ctx context.Context, asOf time.Time) error {
			_, err := srv.Batch.Run(services.WithTrigger(ctx, services.TriggerScheduler), asOf)
			return err
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to configure scheduler: %w", err)
		}
		go daily.Run(ctx)
		log.Infof("Daily batch scheduled at %s", appConfig.SchedulerRunAt)
	}

	httpServer := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Fintrack backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
