package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/records-timeline/internal/middleware"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/service"
	"github.com/jengzang/records-timeline/pkg/response"
)

// AnchorHandler handles HTTP requests for anchors
type AnchorHandler struct {
	service *service.AnchorService
}

// NewAnchorHandler creates a new anchor handler
func NewAnchorHandler(service *service.AnchorService) *AnchorHandler {
	return &AnchorHandler{service: service}
}

// ListAnchors handles GET /api/v1/anchors
func (h *AnchorHandler) ListAnchors(c *gin.Context) {
	var filter models.AnchorFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	anchors, err := h.service.List(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		response.FromError(c, "Failed to list anchors", err)
		return
	}

	response.Success(c, gin.H{
		"data":  anchors,
		"total": len(anchors),
	})
}

// ConfirmAnchor handles PUT /api/v1/anchors/:id
func (h *AnchorHandler) ConfirmAnchor(c *gin.Context) {
	var update models.AnchorUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.BadRequest(c, "Invalid anchor update", err)
		return
	}

	anchor, err := h.service.Confirm(c.Request.Context(), middleware.UserID(c), c.Param("id"), update)
	if err != nil {
		response.FromError(c, "Failed to confirm anchor", err)
		return
	}

	response.Success(c, anchor)
}
