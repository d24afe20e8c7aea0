package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/app"
	iauth "github.com/rautatech/catalog/internal/auth"
	"github.com/rautatech/catalog/internal/auth/mfa"
	"github.com/rautatech/catalog/internal/handlers"
	"github.com/rautatech/catalog/internal/middleware"
	"github.com/rautatech/catalog/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config, sessions *iauth.SessionService) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}

	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}

	totp, err := mfa.NewTOTPService(db, []byte(cfg.MFA.EncryptionKey),
		mfa.WithIssuer(cfg.MFA.Issuer),
		mfa.WithQRCodeSize(cfg.MFA.QRCodeSize),
	)
	if err != nil {
		return nil, err
	}
	twoFactor, err := services.NewTwoFactorService(totp)
	if err != nil {
		return nil, err
	}

	categories, err := services.NewCategoryService(db)
	if err != nil {
		return nil, err
	}
	tags, err := services.NewTagService(db)
	if err != nil {
		return nil, err
	}
	products, err := services.NewProductService(db)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(users, sessions)
	userHandler := handlers.NewUserHandler(users)
	twoFactorHandler := handlers.NewTwoFactorHandler(twoFactor)
	categoryHandler := handlers.NewCategoryHandler(categories, tags)
	productHandler := handlers.NewProductHandler(products, categories, cfg.Catalog.WhatsAppNumber)

	public := r.Group("/api")
	authed := r.Group("/api", middleware.SessionAuth(sessions, users))
	admin := r.Group("/api", middleware.SessionAuth(sessions, users), middleware.RequireAdmin())

	registerAuthRoutes(public, authed, authHandler)
	registerTwoFactorRoutes(public, authed, twoFactorHandler)
	registerCatalogRoutes(public, admin, categoryHandler, productHandler)
	registerUserRoutes(admin, userHandler)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
