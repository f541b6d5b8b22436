package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/internhq/internhub/internal/middleware"
	"github.com/internhq/internhub/internal/services"
	appErrors "github.com/internhq/internhub/pkg/errors"
	"github.com/internhq/internhub/pkg/response"
)

// ProfileHandler exposes HTTP endpoints for account management.
type ProfileHandler struct {
	service *services.ProfileService
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(service *services.ProfileService) (*ProfileHandler, error) {
	if service == nil {
		return nil, errors.New("profile handler: service is required")
	}
	return &ProfileHandler{service: service}, nil
}

// Update applies self-service profile edits.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	var payload services.UpdateProfileInput
	if !bindAndValidate(c, &payload) {
		return
	}

	profile, err := h.service.Update(requestContext(c), userID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// ListPending returns accounts awaiting admin review.
func (h *ProfileHandler) ListPending(c *gin.Context) {
	profiles, err := h.service.ListPending(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profiles)
}

// Review records the admin decision on a pending account.
func (h *ProfileHandler) Review(c *gin.Context) {
	var payload reviewPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	adminID := c.GetString(middleware.CtxUserIDKey)
	profile, err := h.service.Review(requestContext(c), adminID, strings.TrimSpace(c.Param("id")), payload.Approve)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}
