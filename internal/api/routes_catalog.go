package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rautatech/catalog/internal/handlers"
)

func registerCatalogRoutes(public, admin *gin.RouterGroup, categories *handlers.CategoryHandler, products *handlers.ProductHandler) {
	// Storefront reads
	public.GET("/categories", categories.List)
	public.GET("/categories/slug/:slug", categories.GetBySlug)
	public.GET("/categories/:id", categories.Get)
	public.GET("/categories/:id/tags", categories.ListTags)
	public.GET("/products", products.List)
	public.GET("/products/:id", products.Get)

	// Admin catalog management
	admin.POST("/categories", categories.Create)
	admin.PUT("/categories/:id", categories.Update)
	admin.DELETE("/categories/:id", categories.Delete)
	admin.GET("/categories/:id/message", categories.GetMessage)
	admin.PUT("/categories/:id/message", categories.SetMessage)
	admin.POST("/categories/:id/tags", categories.CreateTag)
	admin.DELETE("/tags/:id", categories.DeleteTag)

	admin.GET("/admin/products", products.ListAll)
	admin.POST("/products", products.Create)
	admin.PUT("/products/:id", products.Update)
	admin.DELETE("/products/:id", products.Delete)
}
