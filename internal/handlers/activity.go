package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/internhq/internhub/internal/services"
	"github.com/internhq/internhub/pkg/response"
)

// ActivityHandler exposes the admin-facing audit trail.
type ActivityHandler struct {
	service *services.ActivityService
}

// NewActivityHandler constructs an activity handler.
func NewActivityHandler(service *services.ActivityService) (*ActivityHandler, error) {
	if service == nil {
		return nil, errors.New("activity handler: service is required")
	}
	return &ActivityHandler{service: service}, nil
}

// List returns paginated activity logs.
func (h *ActivityHandler) List(c *gin.Context) {
	logs, total, err := h.service.List(requestContext(c), services.ActivityListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 50),
		Filters: services.ActivityFilters{
			UserID:   strings.TrimSpace(c.Query("user_id")),
			Action:   strings.TrimSpace(c.Query("action")),
			Resource: strings.TrimSpace(c.Query("resource")),
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{Total: int(total)})
}

// ListAdmin returns the recent admin decision log.
func (h *ActivityHandler) ListAdmin(c *gin.Context) {
	logs, err := h.service.ListAdmin(requestContext(c), parseIntQuery(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, logs)
}
