package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/config"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/monitoring"
	"github.com/mozawave/market-watch/internal/notifications"
	"github.com/mozawave/market-watch/internal/responder"
	"github.com/mozawave/market-watch/internal/sources"
)

func main() {
	fmt.Println("🧪 MozaWave Market Watch - Local Integration Test")
	fmt.Println("=================================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Notification channels are replaced by the console, so skip validation
	cfg := config.FromEnv()
	console := notifications.NewConsole(os.Stdout)

	// Alerts also reach Teams when a webhook is configured
	alerts := notifications.Multi{console}
	if cfg.TeamsWebhookURL != "" {
		alerts = append(alerts, notifications.NewService(cfg))
	}

	generator, err := responder.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize responder: %v", err)
	}

	c := clock.Real{}
	service := monitoring.NewService(cfg, monitoring.NewMemoryStores(cfg.MetricsHistory), monitoring.Options{
		Fetchers:   sources.FromConfig(cfg, c),
		Reviews:    sources.NewHTTPReviewSource(cfg.ReviewEndpoint, cfg.SourceAPIKey),
		Generator:  generator,
		Standard:   alerts,
		Escalation: console,
		Digest:     console,
		Clock:      c,
	})

	if cfg.EntitiesFile != "" {
		loaded, err := service.LoadEntities(cfg.EntitiesFile)
		if err != nil {
			log.Fatalf("Failed to load entities: %v", err)
		}
		fmt.Printf("📋 Loaded %d entities from %s\n", loaded, cfg.EntitiesFile)
	} else {
		if _, err := service.RegisterEntity(models.TrackedEntity{Name: "Pizza Co", Kind: models.KindCompetitor}); err != nil {
			log.Fatalf("Failed to register entity: %v", err)
		}
		fmt.Println("📋 No ENTITIES_FILE set, tracking a sample competitor")
	}

	fmt.Println("🔍 Running two scan cycles against live sources...")
	fmt.Println("⏱️  This will call real APIs and may take up to a minute...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	baseline := service.RunScanCycle(ctx)
	fmt.Printf("\n🔸 Baseline: %d fetches, %d failures\n", baseline.Fetches, baseline.Failures)

	result := service.RunAll(ctx)
	fmt.Printf("🔸 Second pass: %d fetches, %d failures, %d changes, %d alerts\n",
		result.Fetches, result.Failures, result.Changes, result.Alerts)

	pending := service.GetReviewsNeedingResponse()
	fmt.Printf("📝 Reviews awaiting a response: %d\n", len(pending))

	if err := service.SendDigest(ctx); err != nil {
		fmt.Printf("❌ Digest failed: %v\n", err)
	}

	status, err := json.MarshalIndent(service.GetStatus(), "", "  ")
	if err == nil {
		fmt.Printf("\n📊 Status:\n%s\n", status)
	}

	fmt.Println("\n✅ Local integration test completed!")
	fmt.Println("\n💡 Changes only appear when a source's state moved between the two scans.")
}
