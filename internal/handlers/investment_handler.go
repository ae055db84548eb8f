package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// InvestmentHandler handles investment-related requests.
type InvestmentHandler struct {
	investmentService services.InvestmentServicer
	auditService      services.AuditServicer
}

// NewInvestmentHandler creates a new InvestmentHandler.
func NewInvestmentHandler(investmentService services.InvestmentServicer, auditService services.AuditServicer) *InvestmentHandler {
	return &InvestmentHandler{investmentService: investmentService, auditService: auditService}
}

// AddInvestmentRequest represents the request payload for adding an investment.
type AddInvestmentRequest struct {
	Symbol         string                `json:"symbol" binding:"required,ticker"`
	Name           string                `json:"name" binding:"max=200"`
	InvestmentType models.InvestmentType `json:"investment_type" binding:"required,investment_type"`
	Quantity       *decimal.Decimal      `json:"quantity" binding:"required" swaggertype:"string"`
	PurchasePrice  *decimal.Decimal      `json:"purchase_price" binding:"required" swaggertype:"string"`
	PurchaseFees   *decimal.Decimal      `json:"purchase_fees" swaggertype:"string"`
	PurchaseDate   *string               `json:"purchase_date" example:"2024-01-02"`
	Notes          string                `json:"notes" binding:"max=500"`
}

// UpdateInvestmentRequest represents the request payload for updating an investment.
type UpdateInvestmentRequest struct {
	Name          *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Quantity      *decimal.Decimal `json:"quantity" swaggertype:"string"`
	PurchasePrice *decimal.Decimal `json:"purchase_price" swaggertype:"string"`
	PurchaseFees  *decimal.Decimal `json:"purchase_fees" swaggertype:"string"`
	Notes         *string          `json:"notes" binding:"omitempty,max=500"`
}

// SellRequest represents the request payload for selling part or all of a position.
type SellRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"required" swaggertype:"string"`
	Price    *decimal.Decimal `json:"price" binding:"required" swaggertype:"string"`
	Fees     *decimal.Decimal `json:"fees" swaggertype:"string"`
	Date     *string          `json:"date" example:"2024-06-03"`
	Notes    string           `json:"notes" binding:"max=500"`
}

// SellResponse is the investment after a sale along with the sale transaction.
type SellResponse struct {
	Investment  *models.Investment            `json:"investment"`
	Transaction *models.InvestmentTransaction `json:"transaction"`
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// AddInvestment handles adding a new investment holding.
// @Summary     Add investment
// @Description Open a position and record its buy transaction
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AddInvestmentRequest true "Investment details"
// @Success     201 {object} models.Investment "Investment created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /investments [post]
func (h *InvestmentHandler) AddInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	in := services.InvestmentInput{
		Symbol:        req.Symbol,
		Name:          req.Name,
		Type:          req.InvestmentType,
		Quantity:      *req.Quantity,
		PurchasePrice: *req.PurchasePrice,
		PurchaseFees:  decimalOrZero(req.PurchaseFees),
		Notes:         req.Notes,
	}
	purchaseDate, err := parseOptionalDate("purchase_date", req.PurchaseDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if purchaseDate != nil {
		in.PurchaseDate = *purchaseDate
	}

	investment, err := h.investmentService.AddInvestment(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ADD_INVESTMENT", "investment", investment.ID, c.ClientIP(),
		map[string]interface{}{
			"symbol":         investment.Symbol,
			"quantity":       investment.Quantity,
			"purchase_price": investment.PurchasePrice,
		})

	c.JSON(http.StatusCreated, gin.H{"investment": investment})
}

// GetInvestments handles listing investments for the authenticated user.
// @Summary     Get investments
// @Description Get a paginated list of investments ordered by symbol
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       status    query string false "Filter by status (active/partial_sold/sold)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Investment] "Paginated investments"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /investments [get]
func (h *InvestmentHandler) GetInvestments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var status *models.InvestmentStatus
	if v := c.Query("status"); v != "" {
		s := models.InvestmentStatus(v)
		switch s {
		case models.InvestmentStatusActive, models.InvestmentStatusPartialSold, models.InvestmentStatusSold:
			status = &s
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown investment status"))
			return
		}
	}

	result, err := h.investmentService.GetUserInvestments(userID, page, status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetInvestment handles retrieving a specific investment.
// @Summary     Get investment by ID
// @Description Get a specific investment with its stored valuation
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Investment ID"
// @Success     200 {object} models.Investment "Investment details"
// @Failure     400 {object} ErrorResponse "Invalid investment ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Investment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /investments/{id} [get]
func (h *InvestmentHandler) GetInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	investment, err := h.investmentService.GetInvestmentByID(userID, investmentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"investment": investment})
}

// UpdateInvestment handles editing an investment's purchase details.
// @Summary     Update investment
// @Description Update an investment and recompute its valuation
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Investment ID"
// @Param       request body UpdateInvestmentRequest true "Fields to change"
// @Success     200 {object} models.Investment "Updated investment"
// @Failure     400 {object} ErrorResponse "Invalid input or investment ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Investment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /investments/{id} [put]
func (h *InvestmentHandler) UpdateInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	investment, err := h.investmentService.UpdateInvestment(userID, investmentID, services.InvestmentUpdate{
		Name:          req.Name,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		PurchaseFees:  req.PurchaseFees,
		Notes:         req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"investment": investment})
}

// DeleteInvestment handles deleting an investment.
// @Summary     Delete investment
// @Description Delete an investment and its transactions (soft delete)
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Investment ID"
// @Success     200 {object} MessageResponse "Investment deleted"
// @Failure     400 {object} ErrorResponse "Invalid investment ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Investment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /investments/{id} [delete]
func (h *InvestmentHandler) DeleteInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.investmentService.DeleteInvestment(userID, investmentID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_INVESTMENT", "investment", investmentID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Investment deleted successfully"})
}

// SellInvestment handles selling part or all of a position.
// @Summary     Sell investment
// @Description Sell part or all of a position and record the realized gain or loss
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string      true "Investment ID"
// @Param       request body SellRequest true "Sale details"
// @Success     200 {object} SellResponse "Investment after the sale"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient shares"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Investment not found"
// @Failure     409 {object} ErrorResponse "Investment already sold"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /investments/{id}/sell [post]
func (h *InvestmentHandler) SellInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	in := services.SellInput{
		Quantity: *req.Quantity,
		Price:    *req.Price,
		Fees:     decimalOrZero(req.Fees),
		Notes:    req.Notes,
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if date != nil {
		in.Date = *date
	}

	investment, sale, err := h.investmentService.SellInvestment(userID, investmentID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "SELL_INVESTMENT", "investment", investmentID, c.ClientIP(),
		map[string]interface{}{
			"quantity":        sale.Quantity,
			"price":           sale.PricePerUnit,
			"realized_profit": sale.RealizedGainLoss,
			"status":          investment.Status,
		})

	c.JSON(http.StatusOK, SellResponse{Investment: investment, Transaction: sale})
}

// GetInvestmentTransactions handles listing the buy and sell history of an investment.
// @Summary     Get investment transactions
// @Description Get a paginated list of transactions for an investment, newest first
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Investment ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.InvestmentTransaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid investment ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Investment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /investments/{id}/transactions [get]
func (h *InvestmentHandler) GetInvestmentTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.investmentService.GetInvestmentTransactions(userID, investmentID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RefreshPrices handles a manual price refresh of the user's holdings.
// @Summary     Refresh prices
// @Description Fetch current prices for every held investment and store the valuations
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.PriceRefresh "Refresh outcome"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /investments/refresh-prices [post]
func (h *InvestmentHandler) RefreshPrices(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	refresh, err := h.investmentService.RefreshPrices(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, refresh)
}

// GetPortfolio handles the portfolio summary.
// @Summary     Get portfolio summary
// @Description Value the held portfolio and break it down by type and performance
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.PortfolioSummary "Portfolio summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /investments/portfolio [get]
func (h *InvestmentHandler) GetPortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.investmentService.GetPortfolioSummary(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
