package bar

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// --------------------------------------------------
// GET /bars/:city
// --------------------------------------------------
func (h *Handler) List(c *gin.Context) {
	city := c.Param("city")

	records, err := h.store.List(c.Request.Context(), city)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []*Record{}
	}

	c.JSON(http.StatusOK, gin.H{"city": city, "bars": records, "count": len(records)})
}

// --------------------------------------------------
// GET /bars/:city/:id
// --------------------------------------------------
func (h *Handler) Get(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("city"), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "bar not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// --------------------------------------------------
// GET /bars/:city/export (CSV download)
// --------------------------------------------------
func (h *Handler) Export(c *gin.Context) {
	city := c.Param("city")

	records, err := h.store.List(c.Request.Context(), city)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data, err := ExportCSV(records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="bars-`+city+`.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// --------------------------------------------------
// GET /stats
// --------------------------------------------------
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// --------------------------------------------------
// PATCH /bars/:city/:id/menu (menu scraper write-back)
// --------------------------------------------------
func (h *Handler) UpdateMenu(c *gin.Context) {
	var req struct {
		MenuURL string `json:"menu_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "menu_url is required"})
		return
	}

	rec, err := h.store.UpdateMenuInfo(c.Request.Context(), c.Param("city"), c.Param("id"), req.MenuURL)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "bar not found"})
		return
	}
	if errors.Is(err, ErrLockTimeout) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// --------------------------------------------------
// DELETE /bars/:city and DELETE /bars
// --------------------------------------------------
func (h *Handler) Reset(c *gin.Context) {
	removed, err := h.store.Reset(c.Request.Context(), c.Param("city"))
	if errors.Is(err, ErrLockTimeout) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
