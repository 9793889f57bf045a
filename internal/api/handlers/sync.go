// Package handlers holds the HTTP route handlers.
package handlers

import (
	"errors"
	"net/http"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/api"
	"personal-organizer/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// SyncHandler handles sync-related HTTP requests
type SyncHandler struct {
	syncService *service.SyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// TriggerDomain runs one domain's sync pass synchronously and returns
// its result. POST /sync/:domain
func (h *SyncHandler) TriggerDomain(c *gin.Context) {
	domain, err := account.ParseDomain(c.Param("domain"))
	if err != nil {
		api.SendValidationError(c, "Unknown sync domain", err.Error())
		return
	}

	result, err := h.syncService.SyncDomain(c.Request.Context(), domain)
	if err != nil {
		var busy *service.ErrSyncInProgress
		if errors.As(err, &busy) {
			api.SendError(c, http.StatusConflict, api.ErrCodeConflict, busy.Error(), "")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Sync failed", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, result)
}

// TriggerAll runs every domain in order. POST /sync
func (h *SyncHandler) TriggerAll(c *gin.Context) {
	results := h.syncService.SyncAll(c.Request.Context())
	api.SendSuccess(c, http.StatusOK, results)
}

// GetStatus reports each domain's running flag and last result.
// GET /sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	api.SendSuccess(c, http.StatusOK, h.syncService.Status())
}
