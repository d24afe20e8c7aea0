package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/rautatech/catalog/internal/middleware"
	"github.com/rautatech/catalog/internal/models"
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

// currentUser returns the authenticated user placed by the session middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	value, ok := c.Get(middleware.CtxUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}
