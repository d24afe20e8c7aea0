package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rautatech/catalog/internal/handlers"
)

func registerAuthRoutes(public, authed *gin.RouterGroup, handler *handlers.AuthHandler) {
	public.POST("/auth/login", handler.Login)
	public.POST("/auth/logout", handler.Logout)

	authed.GET("/auth/me", handler.Me)
}
