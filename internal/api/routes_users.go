package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rautatech/catalog/internal/handlers"
)

func registerUserRoutes(admin *gin.RouterGroup, handler *handlers.UserHandler) {
	users := admin.Group("/users")
	{
		users.GET("", handler.List)
		users.POST("", handler.Create)
		users.GET("/:id", handler.Get)
		users.PUT("/:id/role", handler.UpdateRole)
		users.PUT("/:id/password", handler.UpdatePassword)
		users.DELETE("/:id", handler.Delete)
	}
}
