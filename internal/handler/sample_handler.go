package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/records-timeline/internal/ingest"
	"github.com/jengzang/records-timeline/internal/middleware"
	"github.com/jengzang/records-timeline/internal/service"
	"github.com/jengzang/records-timeline/pkg/response"
)

// maxUploadBytes caps one sample upload
const maxUploadBytes = 8 << 20

// SampleHandler handles HTTP requests for sample uploads
type SampleHandler struct {
	service *service.SampleService
}

// NewSampleHandler creates a new sample handler
func NewSampleHandler(service *service.SampleService) *SampleHandler {
	return &SampleHandler{service: service}
}

// Ingest handles POST /api/v1/samples
func (h *SampleHandler) Ingest(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	records, err := ingest.DecodeBatch(body)
	if err != nil {
		response.BadRequest(c, "Invalid sample batch", err)
		return
	}

	report, err := h.service.Ingest(c.Request.Context(), middleware.UserID(c), records)
	if err != nil {
		response.FromError(c, "Failed to ingest samples", err)
		return
	}

	response.Success(c, report)
}

// Flush handles POST /api/v1/samples/flush
func (h *SampleHandler) Flush(c *gin.Context) {
	n, err := h.service.Flush(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, "Failed to flush samples", err)
		return
	}

	response.Success(c, gin.H{"flushed": n})
}

// GetPending handles GET /api/v1/samples/pending
func (h *SampleHandler) GetPending(c *gin.Context) {
	n, err := h.service.Pending(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, "Failed to count pending samples", err)
		return
	}

	response.Success(c, gin.H{"pending": n})
}

// Clear handles DELETE /api/v1/samples
func (h *SampleHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context(), middleware.UserID(c)); err != nil {
		response.FromError(c, "Failed to clear pending samples", err)
		return
	}

	response.Success(c, nil)
}
