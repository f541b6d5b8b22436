package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/internhq/internhub/internal/services"
	"github.com/internhq/internhub/pkg/response"
)

// CVFormHandler exposes the student CV builder endpoints.
type CVFormHandler struct {
	service *services.CVFormService
}

// NewCVFormHandler constructs a CV form handler.
func NewCVFormHandler(service *services.CVFormService) (*CVFormHandler, error) {
	if service == nil {
		return nil, errors.New("cv form handler: service is required")
	}
	return &CVFormHandler{service: service}, nil
}

// Get returns the student's saved CV form.
func (h *CVFormHandler) Get(c *gin.Context) {
	form, err := h.service.Get(requestContext(c), currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, form)
}

// Save upserts the student's CV form.
func (h *CVFormHandler) Save(c *gin.Context) {
	var payload services.SaveCVFormInput
	if !bindAndValidate(c, &payload) {
		return
	}

	form, err := h.service.Save(requestContext(c), currentActor(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, form)
}
