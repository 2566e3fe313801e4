package cost

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// --------------------------------------------------
// GET /costs/total?provider=&city=&from=&to=
// --------------------------------------------------
func (h *Handler) Total(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	total, err := h.ledger.Total(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	breakdown, err := h.ledger.Breakdown(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":       total,
		"by_provider": breakdown,
	})
}

// --------------------------------------------------
// GET /costs/entries?provider=&city=&from=&to=
// --------------------------------------------------
func (h *Handler) Entries(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := h.ledger.Entries(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []*Entry{}
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// --------------------------------------------------
// DELETE /costs
// --------------------------------------------------
func (h *Handler) Clear(c *gin.Context) {
	removed, err := h.ledger.Clear(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func filterFromQuery(c *gin.Context) (Filter, error) {
	filter := Filter{
		Provider: c.Query("provider"),
		City:     c.Query("city"),
	}

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filter{}, err
		}
		filter.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filter{}, err
		}
		filter.To = t
	}

	return filter, nil
}
