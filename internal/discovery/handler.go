package discovery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// --------------------------------------------------
// POST /discover {"city": "...", "target_count": N}
// --------------------------------------------------
func (h *Handler) Discover(c *gin.Context) {
	var req struct {
		City        string `json:"city" binding:"required"`
		TargetCount int    `json:"target_count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city is required"})
		return
	}
	if req.TargetCount <= 0 {
		req.TargetCount = 3
	}

	report, err := h.service.Discover(c.Request.Context(), req.City, req.TargetCount)

	// A failed run still returns whatever was committed before the
	// failure; the report rides along with the error.
	if errors.Is(err, ErrCollaboratorUnavailable) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}

	c.JSON(http.StatusOK, report)
}
