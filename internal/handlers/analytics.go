package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/internhq/internhub/internal/services"
	"github.com/internhq/internhub/pkg/response"
)

// AnalyticsHandler exposes the admin dashboard rollups.
type AnalyticsHandler struct {
	service *services.AnalyticsService
}

// NewAnalyticsHandler constructs an analytics handler.
func NewAnalyticsHandler(service *services.AnalyticsService) (*AnalyticsHandler, error) {
	if service == nil {
		return nil, errors.New("analytics handler: service is required")
	}
	return &AnalyticsHandler{service: service}, nil
}

// Overview returns the headline counters.
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, overview)
}

// Report returns the full rollup payload with trends and distributions.
func (h *AnalyticsHandler) Report(c *gin.Context) {
	months := parseIntQuery(c, "months", 0)

	report, err := h.service.Report(requestContext(c), months)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}
