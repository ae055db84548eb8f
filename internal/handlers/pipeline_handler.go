package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fintrack/internal/services"
)

// PipelineHandler exposes the daily batch to the external scheduler.
type PipelineHandler struct {
	batchService services.BatchServicer
	now          func() time.Time
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(batchService services.BatchServicer) *PipelineHandler {
	return &PipelineHandler{batchService: batchService, now: time.Now}
}

// RunBatch handles a daily batch trigger.
// @Summary     Run daily batch
// @Description Materialize due recurring entries and roll over ended budget periods
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Param       date query string false "Processing date YYYY-MM-DD (default today)"
// @Success     200 {object} services.BatchResult "Batch outcome"
// @Failure     400 {object} ErrorResponse "Invalid date"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Batch failed"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/batch [post]
func (h *PipelineHandler) RunBatch(c *gin.Context) {
	asOf, err := queryDate(c, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if asOf == nil {
		now := h.now()
		asOf = &now
	}

	result, err := h.batchService.Run(c.Request.Context(), *asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
