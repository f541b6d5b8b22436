package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/internhq/internhub/internal/auth"
	"github.com/internhq/internhub/internal/middleware"
	"github.com/internhq/internhub/internal/services"
	appErrors "github.com/internhq/internhub/pkg/errors"
	"github.com/internhq/internhub/pkg/metrics"
	"github.com/internhq/internhub/pkg/response"
)

// AuthHandler exposes registration and login endpoints.
type AuthHandler struct {
	profiles *services.ProfileService
	jwt      *iauth.JWTService
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(profiles *services.ProfileService, jwt *iauth.JWTService) (*AuthHandler, error) {
	if profiles == nil {
		return nil, errors.New("auth handler: profile service is required")
	}
	if jwt == nil {
		return nil, errors.New("auth handler: jwt service is required")
	}
	return &AuthHandler{profiles: profiles, jwt: jwt}, nil
}

// Register creates a new pending account.
func (h *AuthHandler) Register(c *gin.Context) {
	var payload services.RegisterInput
	if !bindAndValidate(c, &payload) {
		return
	}

	profile, err := h.profiles.Register(requestContext(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, profile)
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and issues an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var payload loginPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	profile, err := h.profiles.Authenticate(requestContext(c), payload.Email, payload.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: profile.ID,
		Role:   profile.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, gin.H{
		"token":   token,
		"profile": profile,
	})
}

// Me returns the authenticated profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	profile, err := h.profiles.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}
