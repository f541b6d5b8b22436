package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/internhq/internhub/internal/auth"
	"github.com/internhq/internhub/internal/realtime"
	"github.com/internhq/internhub/internal/services"
	appErrors "github.com/internhq/internhub/pkg/errors"
	"github.com/internhq/internhub/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for the notification feed.
type NotificationHandler struct {
	service *services.NotificationService
	hub     *realtime.Hub
	jwt     *iauth.JWTService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService, hub *realtime.Hub, jwt *iauth.JWTService) (*NotificationHandler, error) {
	if service == nil {
		return nil, errors.New("notification handler: service is required")
	}
	return &NotificationHandler{
		service: service,
		hub:     hub,
		jwt:     jwt,
	}, nil
}

// List returns the role-visible notifications for the current user.
func (h *NotificationHandler) List(c *gin.Context) {
	input := services.ListNotificationsInput{
		Type:  strings.TrimSpace(c.Query("type")),
		Limit: parseIntQuery(c, "limit", 0),
	}
	if raw := strings.TrimSpace(c.Query("is_read")); raw != "" {
		isRead := raw == "true" || raw == "1"
		input.IsRead = &isRead
	}

	items, err := h.service.VisibleForActor(requestContext(c), currentActor(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

// UnreadCount returns the number of unread, role-visible notifications.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(requestContext(c), currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread": count})
}

// MarkRead flags one notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	dto, err := h.service.MarkRead(requestContext(c), currentActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// MarkAllRead marks every visible unread notification as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.service.MarkAllRead(requestContext(c), currentActor(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// Delete removes one notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := h.service.Delete(requestContext(c), currentActor(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// DeleteAll wipes the current user's notifications.
func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	if err := h.service.DeleteAll(requestContext(c), currentActor(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Stream upgrades the connection to a WebSocket carrying change signals.
// The token rides the query string because browsers cannot set headers on
// websocket upgrades.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.jwt == nil || h.hub == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}

	if token == "" {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	h.hub.Serve(claims.UserID, c.Writer, c.Request)
}
