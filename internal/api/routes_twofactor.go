package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rautatech/catalog/internal/handlers"
)

func registerTwoFactorRoutes(public, authed *gin.RouterGroup, handler *handlers.TwoFactorHandler) {
	// Account recovery must work without a session.
	public.POST("/two-factor/backup-code/verify", handler.VerifyBackupCode)

	twoFactor := authed.Group("/two-factor")
	{
		twoFactor.GET("/status", handler.Status)
		twoFactor.POST("/generate", handler.Generate)
		twoFactor.POST("/verify", handler.Verify)
		twoFactor.POST("/disable", handler.Disable)
	}
}
