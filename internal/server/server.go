// Package server wires the services and handlers into the HTTP router.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/handlers"
	"fintrack/internal/marketdata"
	"fintrack/internal/middleware"
	"fintrack/internal/recurrence"
	"fintrack/internal/services"
	"fintrack/internal/validator"
)

// Config holds the settings the router needs beyond the database.
type Config struct {
	PipelineAPIKey  string
	ReportPriceWait time.Duration
	// Workers is how many recurring definitions the batch processes in parallel.
	Workers int
	// Health serves /api/health. Defaults to a static ok.
	Health gin.HandlerFunc
}

// Server is the assembled application.
type Server struct {
	Router *gin.Engine
	Batch  services.BatchServicer
}

// New builds every service over db and mounts the API routes.
func New(db *gorm.DB, prices *marketdata.Cache, cfg Config) *Server {
	validator.Register()

	// Initialize services
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db)
	incomeService := services.NewIncomeService(db)
	expenseService := services.NewExpenseService(db)
	goalService := services.NewGoalService(db)
	budgetService := services.NewBudgetService(db)
	investmentService := services.NewInvestmentService(db, prices)
	reportService := services.NewReportService(db, prices, cfg.ReportPriceWait)
	processor := recurrence.NewProcessor(recurrence.NewGormStore(db), recurrence.Options{Workers: cfg.Workers})
	batchService := services.NewBatchService(processor, budgetService, auditService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	incomeHandler := handlers.NewIncomeHandler(incomeService, auditService)
	expenseHandler := handlers.NewExpenseHandler(expenseService, auditService)
	goalHandler := handlers.NewGoalHandler(goalService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	investmentHandler := handlers.NewInvestmentHandler(investmentService, auditService)
	dashboardHandler := handlers.NewDashboardHandler(reportService)
	marketHandler := handlers.NewMarketHandler(prices)
	pipelineHandler := handlers.NewPipelineHandler(batchService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.ErrNotFound)
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	health := cfg.Health
	if health == nil {
		health = func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		}
	}
	router.GET("/api/health", health)

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Pipeline routes (API key)
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(cfg.PipelineAPIKey))
	pipeline.POST("/batch", pipelineHandler.RunBatch)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)
	protected.PUT("/profile", authHandler.UpdateProfile)

	// Income routes
	incomes := protected.Group("/incomes")
	incomes.POST("", incomeHandler.CreateIncome)
	incomes.GET("", incomeHandler.GetIncomes)
	incomes.GET("/:id", incomeHandler.GetIncome)
	incomes.PUT("/:id", incomeHandler.UpdateIncome)
	incomes.DELETE("/:id", incomeHandler.DeleteIncome)

	// Expense routes
	expenses := protected.Group("/expenses")
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("", expenseHandler.GetExpenses)
	expenses.GET("/:id", expenseHandler.GetExpense)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	// Goal routes
	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetGoals)
	goals.GET("/summary", goalHandler.GetGoalSummary)
	goals.GET("/:id", goalHandler.GetGoal)
	goals.GET("/:id/history", goalHandler.GetGoalHistory)
	goals.PUT("/:id", goalHandler.UpdateGoal)
	goals.DELETE("/:id", goalHandler.DeleteGoal)
	goals.POST("/:id/contribute", goalHandler.Contribute)
	goals.POST("/:id/withdraw", goalHandler.Withdraw)
	goals.POST("/:id/pause", goalHandler.PauseGoal)
	goals.POST("/:id/resume", goalHandler.ResumeGoal)
	goals.POST("/:id/cancel", goalHandler.CancelGoal)

	// Budget routes
	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)

	// Investment routes
	investments := protected.Group("/investments")
	investments.POST("", investmentHandler.AddInvestment)
	investments.GET("", investmentHandler.GetInvestments)
	investments.GET("/portfolio", investmentHandler.GetPortfolio)
	investments.POST("/refresh-prices", investmentHandler.RefreshPrices)
	investments.GET("/:id", investmentHandler.GetInvestment)
	investments.PUT("/:id", investmentHandler.UpdateInvestment)
	investments.DELETE("/:id", investmentHandler.DeleteInvestment)
	investments.POST("/:id/sell", investmentHandler.SellInvestment)
	investments.GET("/:id/transactions", investmentHandler.GetInvestmentTransactions)

	// Dashboard routes
	dashboard := protected.Group("/dashboard")
	dashboard.GET("", dashboardHandler.GetDashboard)
	dashboard.GET("/quick-stats", dashboardHandler.GetQuickStats)

	// Market data routes
	market := protected.Group("/market")
	market.GET("/quote/:symbol", marketHandler.GetQuote)
	market.GET("/search", marketHandler.SearchSymbols)

	return &Server{Router: router, Batch: batchService}
}
