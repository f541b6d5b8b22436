package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/internhq/internhub/internal/middleware"
	"github.com/internhq/internhub/internal/services"
	"github.com/internhq/internhub/pkg/response"
)

// InternshipHandler exposes HTTP endpoints for internship postings.
type InternshipHandler struct {
	service *services.InternshipService
}

// NewInternshipHandler constructs an internship handler.
func NewInternshipHandler(service *services.InternshipService) (*InternshipHandler, error) {
	if service == nil {
		return nil, errors.New("internship handler: service is required")
	}
	return &InternshipHandler{service: service}, nil
}

// Create posts a new internship for review.
func (h *InternshipHandler) Create(c *gin.Context) {
	var payload services.CreateInternshipInput
	if !bindAndValidate(c, &payload) {
		return
	}

	internship, err := h.service.Create(requestContext(c), currentActor(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, internship)
}

// List returns browsable postings.
func (h *InternshipHandler) List(c *gin.Context) {
	internships, err := h.service.List(requestContext(c), currentActor(c), services.ListInternshipsInput{
		Field:     strings.TrimSpace(c.Query("field")),
		Status:    strings.TrimSpace(c.Query("status")),
		CompanyID: strings.TrimSpace(c.Query("company_id")),
		Limit:     parseIntQuery(c, "limit", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, internships)
}

// Get returns a single posting.
func (h *InternshipHandler) Get(c *gin.Context) {
	internship, err := h.service.Get(requestContext(c), currentActor(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, internship)
}

// ListPending returns the admin review queue.
func (h *InternshipHandler) ListPending(c *gin.Context) {
	internships, err := h.service.ListPending(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, internships)
}

type reviewPayload struct {
	Approve bool `json:"approve"`
}

// Review records the admin decision on a pending posting.
func (h *InternshipHandler) Review(c *gin.Context) {
	var payload reviewPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	adminID := c.GetString(middleware.CtxUserIDKey)
	internship, err := h.service.Review(requestContext(c), adminID, strings.TrimSpace(c.Param("id")), payload.Approve)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, internship)
}
