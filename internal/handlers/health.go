package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger checks database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process health.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health pings the database and reports readiness.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
