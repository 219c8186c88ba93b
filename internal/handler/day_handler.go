package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/records-timeline/internal/middleware"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/service"
	"github.com/jengzang/records-timeline/pkg/response"
)

// DayHandler handles HTTP requests scoped to one local day
type DayHandler struct {
	timeline     *service.TimelineService
	reprocess    *service.ReprocessService
	verification *service.VerificationService
	patterns     *service.PatternService
}

// NewDayHandler creates a new day handler
func NewDayHandler(services *service.Services) *DayHandler {
	return &DayHandler{
		timeline:     services.Timeline,
		reprocess:    services.Reprocess,
		verification: services.Verification,
		patterns:     services.Patterns,
	}
}

// GetBlocks handles GET /api/v1/days/:date/blocks
func (h *DayHandler) GetBlocks(c *gin.Context) {
	blocks, err := h.timeline.GetBlocks(c.Request.Context(), middleware.UserID(c), c.Param("date"))
	if err != nil {
		response.FromError(c, "Failed to get blocks", err)
		return
	}

	response.Success(c, blocks)
}

// Reprocess handles POST /api/v1/days/:date/reprocess
func (h *DayHandler) Reprocess(c *gin.Context) {
	result, err := h.reprocess.ReprocessDay(c.Request.Context(), middleware.UserID(c), c.Param("date"))
	if err != nil {
		response.FromError(c, "Failed to reprocess day", err)
		return
	}

	response.Success(c, result)
}

// GetSummary handles GET /api/v1/days/:date/summary
func (h *DayHandler) GetSummary(c *gin.Context) {
	summary, err := h.reprocess.Summary(c.Request.Context(), middleware.UserID(c), c.Param("date"))
	if err != nil {
		response.FromError(c, "Failed to get day summary", err)
		return
	}

	response.Success(c, summary)
}

// GetVerification handles GET /api/v1/days/:date/verification
func (h *DayHandler) GetVerification(c *gin.Context) {
	report, err := h.verification.Verify(c.Request.Context(), middleware.UserID(c), c.Param("date"))
	if err != nil {
		response.FromError(c, "Failed to verify day", err)
		return
	}

	response.Success(c, report)
}

// GetAnomalies handles GET /api/v1/days/:date/anomalies
func (h *DayHandler) GetAnomalies(c *gin.Context) {
	var query models.PatternQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	anomalies, err := h.patterns.Anomalies(c.Request.Context(), middleware.UserID(c), c.Param("date"), query.MinConfidence)
	if err != nil {
		response.FromError(c, "Failed to score anomalies", err)
		return
	}

	response.Success(c, anomalies)
}

// GetPredictions handles GET /api/v1/days/:date/predictions
func (h *DayHandler) GetPredictions(c *gin.Context) {
	var query models.PatternQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	predictions, err := h.patterns.Predictions(c.Request.Context(), middleware.UserID(c), c.Param("date"), query.MinConfidence)
	if err != nil {
		response.FromError(c, "Failed to predict day", err)
		return
	}

	response.Success(c, gin.H{
		"date":        c.Param("date"),
		"predictions": predictions,
	})
}
