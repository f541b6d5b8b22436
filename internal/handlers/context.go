package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/internhq/internhub/internal/middleware"
	"github.com/internhq/internhub/internal/services"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentActor builds the service-layer actor from the authenticated
// request. An empty actor means the auth middleware did not run.
func currentActor(c *gin.Context) services.Actor {
	return services.Actor{
		ID:   c.GetString(middleware.CtxUserIDKey),
		Role: c.GetString(middleware.CtxRoleKey),
	}
}
