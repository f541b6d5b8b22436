package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/internhq/internhub/internal/services"
	"github.com/internhq/internhub/pkg/response"
)

// ApplicationHandler exposes HTTP endpoints for the application flow.
type ApplicationHandler struct {
	service *services.ApplicationService
}

// NewApplicationHandler constructs an application handler.
func NewApplicationHandler(service *services.ApplicationService) (*ApplicationHandler, error) {
	if service == nil {
		return nil, errors.New("application handler: service is required")
	}
	return &ApplicationHandler{service: service}, nil
}

// Apply submits an application to a posting.
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var payload services.ApplyInput
	if !bindAndValidate(c, &payload) {
		return
	}

	application, err := h.service.Apply(requestContext(c), currentActor(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, application)
}

type decisionPayload struct {
	Accept bool `json:"accept"`
}

// Decide records the owning company's decision.
func (h *ApplicationHandler) Decide(c *gin.Context) {
	var payload decisionPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	application, err := h.service.Decide(requestContext(c), currentActor(c), strings.TrimSpace(c.Param("id")), payload.Accept)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, application)
}

// Withdraw retracts a pending application.
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	application, err := h.service.Withdraw(requestContext(c), currentActor(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, application)
}

// ListMine returns the student's own applications.
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	applications, err := h.service.ListForStudent(requestContext(c), currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, applications)
}

// ListForInternship returns the applications for one of the company's postings.
func (h *ApplicationHandler) ListForInternship(c *gin.Context) {
	applications, err := h.service.ListForInternship(requestContext(c), currentActor(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, applications)
}
