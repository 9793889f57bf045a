package handlers

import (
	"context"
	"net/http"
	"time"

	"personal-organizer/backend/internal/api"
	"personal-organizer/backend/internal/db"

	"github.com/gin-gonic/gin"
)

// SystemHandler serves health and readiness checks
type SystemHandler struct {
	database *db.Database
	timeout  time.Duration
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(database *db.Database, timeout time.Duration) *SystemHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SystemHandler{database: database, timeout: timeout}
}

// Health reports process and database liveness. GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.database.HealthCheck(ctx); err != nil {
		api.SendError(c, http.StatusServiceUnavailable, api.ErrCodeInternal, "Database unreachable", err.Error())
		return
	}
	api.SendSuccess(c, http.StatusOK, gin.H{
		"status":   "ok",
		"database": "ok",
		"time":     time.Now().UTC(),
	})
}
