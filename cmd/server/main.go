package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rautatech/catalog/internal/api"
	"github.com/rautatech/catalog/internal/app"
	"github.com/rautatech/catalog/internal/app/maintenance"
	iauth "github.com/rautatech/catalog/internal/auth"
	"github.com/rautatech/catalog/internal/database"
	"github.com/rautatech/catalog/internal/services"
	"github.com/rautatech/catalog/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "additional directory to search for config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	paths := []string{}
	if configPath != "" {
		paths = append(paths, configPath)
	}

	cfg, err := app.LoadConfig(paths...)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.WithModule("server")

	db, err := database.Open(cfg.DatabaseSettings())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db, database.SeedConfig{
		AdminEmail:    cfg.Bootstrap.AdminEmail,
		AdminPassword: cfg.Bootstrap.AdminPassword,
		AdminName:     cfg.Bootstrap.AdminName,
	}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	sessions, err := iauth.NewSessionService(cfg.SessionServiceConfig())
	if err != nil {
		return fmt.Errorf("session service: %w", err)
	}

	router, err := api.NewRouter(db, cfg, sessions)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	products, err := services.NewProductService(db)
	if err != nil {
		return fmt.Errorf("product service: %w", err)
	}

	var cleaner *maintenance.Cleaner
	if cfg.Maintenance.Enabled {
		cleaner = maintenance.NewCleaner(db, products,
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithRetentionDays(cfg.Maintenance.RetentionDays),
		)
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("start maintenance: %w", err)
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	if cleaner != nil {
		<-cleaner.Stop().Done()
		if err := cleaner.RunOnce(shutdownCtx); err != nil {
			log.Warn("final cleanup", zap.Error(err))
		}
	}

	log.Info("stopped")
	return nil
}
