package handlers

import (
	"net/http"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/api"
	"personal-organizer/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// LinkHandler handles the OAuth account-linking flow
type LinkHandler struct {
	linkService *service.LinkService
	frontendURL string
	validator   *validator.Validate
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(linkService *service.LinkService, frontendURL string) *LinkHandler {
	return &LinkHandler{
		linkService: linkService,
		frontendURL: frontendURL,
		validator:   validator.New(),
	}
}

// callbackParams is what the provider redirect carries back
type callbackParams struct {
	State string `form:"state" validate:"required"`
	Code  string `form:"code" validate:"required"`
	Error string `form:"error"`
}

// Start returns the provider consent URL for an account kind.
// GET /link/:kind
func (h *LinkHandler) Start(c *gin.Context) {
	kind, err := account.ParseKind(c.Param("kind"))
	if err != nil {
		api.SendValidationError(c, "Unknown account kind", err.Error())
		return
	}

	url, state, err := h.linkService.AuthURL(kind)
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to build auth URL", err.Error())
		return
	}
	api.SendSuccess(c, http.StatusOK, gin.H{"auth_url": url, "state": state})
}

// Callback completes the flow after the provider redirect. The browser
// lands here, so errors redirect back to the frontend rather than
// rendering JSON. GET /link/callback
func (h *LinkHandler) Callback(c *gin.Context) {
	var params callbackParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.redirect(c, "error=invalid_callback")
		return
	}
	if params.Error != "" {
		h.redirect(c, "error="+params.Error)
		return
	}
	if err := h.validator.Struct(params); err != nil {
		h.redirect(c, "error=missing_state_or_code")
		return
	}

	acct, err := h.linkService.Complete(c.Request.Context(), params.State, params.Code)
	if err != nil {
		h.redirect(c, "error=link_failed")
		return
	}
	h.redirect(c, "linked="+acct.ID.String())
}

func (h *LinkHandler) redirect(c *gin.Context, query string) {
	if h.frontendURL == "" {
		api.SendSuccess(c, http.StatusOK, gin.H{"result": query})
		return
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/settings/accounts?"+query)
}
