package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mozawave/market-watch/internal/api"
	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/config"
	"github.com/mozawave/market-watch/internal/metrics"
	"github.com/mozawave/market-watch/internal/monitoring"
	"github.com/mozawave/market-watch/internal/notifications"
	"github.com/mozawave/market-watch/internal/responder"
	"github.com/mozawave/market-watch/internal/scheduler"
	"github.com/mozawave/market-watch/internal/sources"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting MozaWave Market Watch")

	collector, err := metrics.New()
	if err != nil {
		logrus.Fatalf("Failed to initialize metrics: %v", err)
	}

	stores := monitoring.NewMemoryStores(cfg.MetricsHistory)
	stores.Archive = newArchive(cfg)

	generator, err := responder.FromConfig(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize responder: %v", err)
	}

	// Standard channel is Teams and email; Slack receives escalations
	var escalation notifications.Sink = notifications.Nop{}
	if cfg.SlackWebhookURL != "" {
		escalation = notifications.NewSlackSink(cfg.SlackWebhookURL)
	}
	standard := notifications.NewService(cfg)

	var business sources.BusinessSource
	if cfg.BusinessEndpoint != "" {
		business = sources.NewHTTPBusinessSource(cfg.BusinessEndpoint, cfg.SourceAPIKey)
	}

	c := clock.Real{}
	monitoringService := monitoring.NewService(cfg, stores, monitoring.Options{
		Fetchers:   sources.FromConfig(cfg, c),
		Reviews:    sources.NewHTTPReviewSource(cfg.ReviewEndpoint, cfg.SourceAPIKey),
		Business:   business,
		Generator:  generator,
		Standard:   standard,
		Escalation: escalation,
		Digest:     standard,
		Clock:      c,
		Metrics:    collector,
	})

	if cfg.EntitiesFile != "" {
		loaded, err := monitoringService.LoadEntities(cfg.EntitiesFile)
		if err != nil {
			logrus.Fatalf("Failed to load tracked entities: %v", err)
		}
		logrus.Infof("Loaded %d tracked entities from %s", loaded, cfg.EntitiesFile)
	}

	// Initialize scheduler
	schedulerService, err := scheduler.NewService(cfg, monitoringService)
	if err != nil {
		logrus.Fatalf("Failed to initialize scheduler: %v", err)
	}
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.NewRouter(monitoringService, collector),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	schedulerService.Stop(ctx)

	logrus.Info("Server exited")
}

// newArchive prefers Azure Blob Storage and falls back to memory when no
// account is configured
func newArchive(cfg *config.Config) storage.Archive {
	if cfg.StorageAccount == "" {
		logrus.Warn("AZURE_STORAGE_ACCOUNT not set, archiving in memory")
		return storage.NewMemoryArchive()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	archive, err := storage.NewAzureArchive(ctx, cfg.StorageAccount, cfg.StorageContainer)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	return archive
}
