package handlers

import (
	"errors"
	"net/http"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/api"
	"personal-organizer/backend/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles linked-account HTTP requests
type AccountHandler struct {
	accounts account.Store
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts account.Store) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// accountView is the wire shape of an account; credential material
// never leaves the server
type accountView struct {
	ID           uuid.UUID            `json:"id"`
	Kind         account.Kind         `json:"kind"`
	DisplayEmail string               `json:"display_email"`
	Capabilities account.Capabilities `json:"capabilities"`
	Status       account.Status       `json:"status"`
}

func viewOf(acct *account.IntegrationAccount) accountView {
	return accountView{
		ID:           acct.ID,
		Kind:         acct.Kind,
		DisplayEmail: acct.DisplayEmail,
		Capabilities: acct.Capabilities,
		Status:       acct.Status(),
	}
}

// List returns all linked accounts. GET /accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context())
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to list accounts", err.Error())
		return
	}

	views := make([]accountView, 0, len(accounts))
	for i := range accounts {
		views = append(views, viewOf(&accounts[i]))
	}
	api.SendSuccess(c, http.StatusOK, views)
}

// Get returns one linked account. GET /accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.SendValidationError(c, "Invalid account id", err.Error())
		return
	}

	acct, err := h.accounts.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			api.SendNotFound(c, "Account")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to get account", err.Error())
		return
	}
	api.SendSuccess(c, http.StatusOK, viewOf(acct))
}

// SetCapabilities replaces an account's per-domain sync flags.
// PUT /accounts/:id/capabilities
func (h *AccountHandler) SetCapabilities(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.SendValidationError(c, "Invalid account id", err.Error())
		return
	}

	var caps account.Capabilities
	if err := c.ShouldBindJSON(&caps); err != nil {
		api.SendValidationError(c, "Invalid capabilities body", err.Error())
		return
	}

	if err := h.accounts.SetCapabilities(c.Request.Context(), id, caps); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			api.SendNotFound(c, "Account")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to update capabilities", err.Error())
		return
	}
	api.SendSuccess(c, http.StatusOK, gin.H{"id": id, "capabilities": caps})
}

// Delete unlinks an account. DELETE /accounts/:id
func (h *AccountHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.SendValidationError(c, "Invalid account id", err.Error())
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			api.SendNotFound(c, "Account")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to delete account", err.Error())
		return
	}
	api.SendSuccess(c, http.StatusOK, gin.H{"id": id})
}
