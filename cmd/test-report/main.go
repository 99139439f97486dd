package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/config"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/monitoring"
	"github.com/mozawave/market-watch/internal/notifications"
	"github.com/mozawave/market-watch/internal/sources"
)

const outputDir = "test_output"

// FileArchive implements simple file-based archiving for local runs
type FileArchive struct{}

func (f *FileArchive) Store(_ context.Context, name string, data []byte) error {
	path := filepath.Join(outputDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (f *FileArchive) Retrieve(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(outputDir, name))
}

func (f *FileArchive) List(_ context.Context, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, prefix+"*"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(outputDir, m)
		if err == nil {
			names = append(names, filepath.ToSlash(rel))
		}
	}
	return names, nil
}

// scriptedFetcher replays one snapshot per scan for each entity
type scriptedFetcher struct {
	name   string
	script map[string][]models.SourceSnapshot
	mu     sync.Mutex
	calls  map[string]int
}

func (s *scriptedFetcher) GetName() string { return s.name }
func (s *scriptedFetcher) IsEnabled() bool { return true }

func (s *scriptedFetcher) FetchSnapshot(_ context.Context, entity models.TrackedEntity) (*models.SourceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps := s.script[entity.ID]
	if len(steps) == 0 {
		return nil, fmt.Errorf("no data for %s", entity.Name)
	}
	i := s.calls[entity.ID]
	if i >= len(steps) {
		i = len(steps) - 1
	}
	s.calls[entity.ID]++
	snapshot := steps[i]
	return &snapshot, nil
}

type sampleReviews struct {
	clock clock.Clock
}

func (s sampleReviews) GetName() string { return "reviews" }
func (s sampleReviews) IsEnabled() bool { return true }

func (s sampleReviews) FetchReviews(_ context.Context, _ models.TrackedEntity, _ time.Time) ([]models.Review, error) {
	now := s.clock.Now()
	return []models.Review{
		{Platform: "google", ExternalID: "g-101", Author: "Dana", Rating: 1, Content: "Terrible night. Cold pasta and the host was rude.", PublishedAt: now.Add(-2 * time.Hour)},
		{Platform: "yelp", ExternalID: "y-202", Author: "Lee", Rating: 3, Content: "Okay food, a bit slow on a Friday.", PublishedAt: now.Add(-5 * time.Hour)},
		{Platform: "google", ExternalID: "g-103", Author: "Ari", Rating: 5, Content: "Amazing! Best lasagna in town, love it.", PublishedAt: now.Add(-9 * time.Hour)},
	}, nil
}

type sampleBusiness struct{}

func (sampleBusiness) FetchBusinessData(_ context.Context, orgID string) (*models.BusinessData, error) {
	return &models.BusinessData{
		Revenue:   models.RevenueMetrics{Total: 84000, Recurring: 12000, GrowthRate: 3.5, Forecast: 87000},
		Customers: models.CustomerMetrics{Total: 2100, New: 140, Churned: 60, RetentionRate: 0.92, LifetimeValue: 410},
	}, nil
}

func snap(rating float64, reviews, tier int, services ...string) models.SourceSnapshot {
	return models.SourceSnapshot{Rating: rating, ReviewCount: reviews, PriceTier: tier, Followers: 1500, PostCount: 30, Services: services}
}

func main() {
	fmt.Println("🤖 MozaWave Market Watch - Test Report Generator")
	fmt.Println("================================================")

	// Create test configuration
	cfg := &config.Config{
		OrgID:            "default",
		OrgName:          "Luigi's Trattoria",
		ReportSchedule:   "weekly",
		FetchTimeout:     5 * time.Second,
		NotifyTimeout:    5 * time.Second,
		ScanConcurrency:  2,
		PositiveMinChars: 80,
		InsightWindow:    30 * 24 * time.Hour,
		MetricsHistory:   50,
	}

	fake := clock.NewFake(time.Now().UTC().Truncate(time.Minute))
	console := notifications.NewConsole(os.Stdout)

	google := &scriptedFetcher{
		name:  "google",
		calls: make(map[string]int),
		script: map[string][]models.SourceSnapshot{
			"pizza-co":    {snap(4.3, 210, 2, "delivery", "dine-in"), snap(4.3, 214, 4, "delivery", "dine-in")},
			"burger-barn": {snap(4.2, 95, 1, "delivery", "takeout"), snap(3.1, 131, 1, "takeout")},
			"our-place":   {snap(4.5, 320, 2, "dine-in"), snap(4.4, 323, 2, "dine-in")},
		},
	}

	stores := monitoring.NewMemoryStores(cfg.MetricsHistory)
	stores.Archive = &FileArchive{}

	service := monitoring.NewService(cfg, stores, monitoring.Options{
		Fetchers:   []sources.Fetcher{google},
		Reviews:    sampleReviews{clock: fake},
		Business:   sampleBusiness{},
		Standard:   console,
		Escalation: console,
		Digest:     console,
		Clock:      fake,
	})

	for _, e := range []models.TrackedEntity{
		{ID: "pizza-co", Name: "Pizza Co", Kind: models.KindCompetitor, Category: "pizza"},
		{ID: "burger-barn", Name: "Burger Barn", Kind: models.KindCompetitor, Category: "burgers"},
		{ID: "our-place", Name: cfg.OrgName, Kind: models.KindReputationProfile, Category: "italian"},
	} {
		if _, err := service.RegisterEntity(e); err != nil {
			fmt.Printf("❌ Error registering %s: %v\n", e.Name, err)
			os.Exit(1)
		}
	}

	ctx := context.Background()

	fmt.Println("\n🔍 Scan 1 (baseline)...")
	service.RunScanCycle(ctx)

	fake.Advance(time.Minute)
	fmt.Println("🔍 Scan 2...")
	result := service.RunAll(ctx)
	fmt.Printf("   %d changes, %d alerts\n", result.Changes, result.Alerts)

	fmt.Println("\n📝 Review queue:")
	for _, r := range service.GetReviews("our-place") {
		line := fmt.Sprintf("   • %d★ [%s] %s", r.Rating, r.Status, r.Content)
		if r.AIResponse != nil {
			line += fmt.Sprintf("\n     ↳ %s draft (%d%%): %s", r.AIResponse.Tone, r.AIResponse.Confidence, r.AIResponse.Content)
		}
		fmt.Println(line)
	}

	overview := service.GetDashboardOverview(cfg.OrgID, "test-user")
	fmt.Println("\n💡 Insights:")
	for _, insight := range overview.Insights {
		fmt.Printf("   • [%s/%s] %s\n", insight.Type, insight.Priority, insight.Title)
	}
	for _, metric := range overview.ProprietaryMetrics {
		fmt.Printf("   • %s: %.1f (%s)\n", metric.Name, metric.Score, metric.Interpretation)
	}

	if err := saveJSON("dashboard.json", overview); err != nil {
		fmt.Printf("\n⚠️  Warning: Could not save dashboard: %v\n", err)
	}

	fmt.Println()
	if err := service.SendDigest(ctx); err != nil {
		fmt.Printf("❌ Error sending digest: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("✅ Test report generation completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Printf("   • Check the '%s' directory for the archived changes, digest and dashboard\n", outputDir)
	fmt.Println("   • Run 'go test ./...' for the unit tests")
	fmt.Println("   • Configure real endpoints and run the service with 'go run ./cmd/bot'")
}

func saveJSON(name string, v interface{}) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(outputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	fmt.Printf("\n💾 Dashboard saved to: %s\n", path)
	return nil
}
