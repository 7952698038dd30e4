package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/airline-extractor/internal/config"
	"github.com/BerylCAtieno/airline-extractor/internal/db"
	"github.com/BerylCAtieno/airline-extractor/internal/engine"
	"github.com/BerylCAtieno/airline-extractor/internal/handlers"
	"github.com/BerylCAtieno/airline-extractor/internal/metrics"
	"github.com/BerylCAtieno/airline-extractor/internal/repository"
	"github.com/BerylCAtieno/airline-extractor/internal/router"
	"github.com/BerylCAtieno/airline-extractor/internal/services"
	"github.com/BerylCAtieno/airline-extractor/internal/storage"
	"github.com/BerylCAtieno/airline-extractor/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Run migrations
	if err := db.RunMigrations(cfg.DatabasePath, cfg.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Initialize export storage
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	exportStore, err := storage.NewS3Storage(startCtx, cfg)
	cancelStart()
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", "error", err)
	}

	// Warm up the extraction runtime; a failure is retried on the next request
	eng := engine.New(engine.DefaultLoader, logger)
	go func() {
		if _, err := eng.Environment(context.Background()); err != nil {
			logger.Warn("Extraction runtime warm-up failed", "error", err)
		}
	}()

	m := metrics.New()
	extractionRepo := repository.NewRepository(database)
	extractionService := services.NewService(eng, extractionRepo, exportStore, m, cfg, logger)

	// Setup HTTP router
	handler := router.NewRouter(router.Dependencies{
		Service: extractionService,
		Engine:  eng,
		Metrics: m,
		Limits:  handlers.Limits{MaxFileSize: cfg.MaxFileSize, MaxFiles: cfg.MaxFiles},
		Logger:  logger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
