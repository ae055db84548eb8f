package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/services"
)

// DashboardHandler handles dashboard report requests.
type DashboardHandler struct {
	reportService services.ReportServicer
	now           func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(reportService services.ReportServicer) *DashboardHandler {
	return &DashboardHandler{reportService: reportService, now: time.Now}
}

// GetDashboard handles the monthly dashboard report.
// @Summary     Get dashboard
// @Description Aggregate incomes, expenses, goals and investments into the report for one month
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int false "Report year (default current year)"
// @Param       month query int false "Report month 1-12 (default current month)"
// @Success     200 {object} analytics.Report "Dashboard report"
// @Failure     400 {object} ErrorResponse "Invalid year or month"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := h.now()
	year, err := queryInt(c, "year", now.Year())
	if err != nil {
		respondWithError(c, err)
		return
	}
	month, err := queryInt(c, "month", int(now.Month()))
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.BuildReport(c.Request.Context(), userID, year, time.Month(month))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetQuickStats handles the header widget figures.
// @Summary     Get quick stats
// @Description Current month balance, active goal count and stored portfolio value
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.QuickStats "Quick stats"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /dashboard/quick-stats [get]
func (h *DashboardHandler) GetQuickStats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.reportService.GetQuickStats(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, name+" must be a number")
	}
	return n, nil
}
