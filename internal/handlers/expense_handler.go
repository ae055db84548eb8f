package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// ExpenseHandler handles expense-related requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	auditService   services.AuditServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer, auditService services.AuditServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, auditService: auditService}
}

// CreateExpenseRequest represents the request payload for creating an expense.
type CreateExpenseRequest struct {
	Category    models.ExpenseCategory `json:"category" binding:"required,expense_category"`
	Subcategory string                 `json:"subcategory" binding:"max=100"`
	Vendor      string                 `json:"vendor" binding:"max=200"`
	Amount      *decimal.Decimal       `json:"amount" binding:"required" swaggertype:"string"`
	Description string                 `json:"description" binding:"max=500"`
	Date        string                 `json:"date" binding:"required" example:"2024-01-31"`
	BudgetID    *string                `json:"budget_id"`
	RecurrenceRequest
}

// UpdateExpenseRequest represents the request payload for updating an expense.
// An empty budget_id unlinks the budget; a recurrence object replaces the whole rule.
type UpdateExpenseRequest struct {
	Category    *models.ExpenseCategory `json:"category" binding:"omitempty,expense_category"`
	Subcategory *string                 `json:"subcategory" binding:"omitempty,max=100"`
	Vendor      *string                 `json:"vendor" binding:"omitempty,max=200"`
	Amount      *decimal.Decimal        `json:"amount" swaggertype:"string"`
	Description *string                 `json:"description" binding:"omitempty,max=500"`
	Date        *string                 `json:"date" example:"2024-01-31"`
	BudgetID    *string                 `json:"budget_id"`
	Recurrence  *RecurrenceRequest      `json:"recurrence"`
}

// checkBudgetID rejects a budget reference that is not a UUID. Empty means unlink.
func checkBudgetID(id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	if _, err := uuid.Parse(*id); err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid budget_id")
	}
	return nil
}

// CreateExpense handles the creation of a new expense.
// @Summary     Create an expense
// @Description Record an expense, optionally counted against a budget. A recurring expense also schedules its future occurrences.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateExpenseRequest true "Expense details"
// @Success     201 {object} models.Expense "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input or recurrence rule"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if err := checkBudgetID(req.BudgetID); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	rule, err := req.rule()
	if err != nil {
		respondWithError(c, err)
		return
	}
	if req.BudgetID != nil && *req.BudgetID == "" {
		req.BudgetID = nil
	}

	expense, err := h.expenseService.CreateExpense(userID, services.ExpenseInput{
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Vendor:      req.Vendor,
		Amount:      *req.Amount,
		Description: req.Description,
		Date:        date,
		BudgetID:    req.BudgetID,
		Rule:        rule,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_EXPENSE", "expense", expense.ID, c.ClientIP(),
		map[string]interface{}{"amount": expense.Amount, "category": expense.Category, "is_recurring": expense.IsRecurring})

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// GetExpenses handles listing expenses for the authenticated user.
// @Summary     Get expenses
// @Description Get a paginated list of expenses, newest first
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       category       query string false "Filter by category"
// @Param       from_date      query string false "Only entries on or after this date (YYYY-MM-DD)"
// @Param       to_date        query string false "Only entries on or before this date (YYYY-MM-DD)"
// @Param       is_recurring   query bool   false "Filter by recurring definitions"
// @Param       auto_generated query bool   false "Filter by generated entries"
// @Param       page           query int    false "Page number (default 1)"
// @Param       page_size      query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [get]
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
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
	filter, err := entryFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var category *models.ExpenseCategory
	if v := c.Query("category"); v != "" {
		cat := models.ExpenseCategory(v)
		if !cat.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown expense category"))
			return
		}
		category = &cat
	}

	result, err := h.expenseService.GetUserExpenses(userID, page, filter, category)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetExpense handles retrieving a specific expense.
// @Summary     Get expense by ID
// @Description Get a specific expense by ID
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} models.Expense "Expense details"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.GetExpenseByID(userID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// UpdateExpense handles updating an existing expense.
// @Summary     Update expense
// @Description Update an expense. Changing the date or rule of a recurring expense reschedules it from its latest entry.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Expense ID"
// @Param       request body UpdateExpenseRequest true "Fields to change"
// @Success     200 {object} models.Expense "Updated expense"
// @Failure     400 {object} ErrorResponse "Invalid input or expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense or budget not found"
// @Failure     409 {object} ErrorResponse "Modified concurrently"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if err := checkBudgetID(req.BudgetID); err != nil {
		respondWithError(c, err)
		return
	}

	in := services.ExpenseUpdate{
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Vendor:      req.Vendor,
		Amount:      req.Amount,
		Description: req.Description,
		BudgetID:    req.BudgetID,
	}
	if in.Date, err = parseOptionalDate("date", req.Date); err != nil {
		respondWithError(c, err)
		return
	}
	if req.Recurrence != nil {
		rule, err := req.Recurrence.rule()
		if err != nil {
			respondWithError(c, err)
			return
		}
		in.Rule = &rule
	}

	expense, err := h.expenseService.UpdateExpense(userID, expenseID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// DeleteExpense handles deleting an expense.
// @Summary     Delete expense
// @Description Delete an expense (soft delete). Entries generated from it are kept.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} MessageResponse "Expense deleted"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.expenseService.DeleteExpense(userID, expenseID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_EXPENSE", "expense", expenseID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}
