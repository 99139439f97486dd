package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mozawave/market-watch/internal/alerts"
	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/config"
	"github.com/mozawave/market-watch/internal/dashboard"
	"github.com/mozawave/market-watch/internal/detection"
	"github.com/mozawave/market-watch/internal/intelligence"
	"github.com/mozawave/market-watch/internal/metrics"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/notifications"
	"github.com/mozawave/market-watch/internal/reputation"
	"github.com/mozawave/market-watch/internal/responder"
	"github.com/mozawave/market-watch/internal/sources"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	defaultChangeLimit = 50
	maxChangeLimit     = 500
	initialReviewSync  = 7 * 24 * time.Hour
)

// Stores groups the repositories the service runs on
type Stores struct {
	Entities  storage.EntityStore
	Snapshots storage.SnapshotStore
	Changes   storage.ChangeLog
	Alerts    storage.AlertStore
	Reviews   storage.ReviewStore
	Metrics   storage.MetricsStore
	Archive   storage.Archive // optional
}

// NewMemoryStores creates in-memory repositories for every store
func NewMemoryStores(metricsHistory int) Stores {
	return Stores{
		Entities:  storage.NewMemoryEntityStore(),
		Snapshots: storage.NewMemorySnapshotStore(),
		Changes:   storage.NewMemoryChangeLog(),
		Alerts:    storage.NewMemoryAlertStore(),
		Reviews:   storage.NewMemoryReviewStore(),
		Metrics:   storage.NewMemoryMetricsStore(metricsHistory),
	}
}

// Options carries the injected capabilities. Nil members fall back to no-ops
// or built-in defaults.
type Options struct {
	Fetchers   []sources.Fetcher
	Reviews    sources.ReviewSource
	Business   sources.BusinessSource
	Generator  responder.Generator
	Standard   notifications.Sink
	Escalation notifications.Sink
	Digest     notifications.DigestSender
	Clock      clock.Clock
	Metrics    *metrics.Collector
}

// Service orchestrates scanning, review handling and intelligence refreshes,
// and serves the read API
type Service struct {
	config   *config.Config
	stores   Stores
	fetchers []sources.Fetcher
	reviews  sources.ReviewSource
	digest   notifications.DigestSender
	clock    clock.Clock
	metrics  *metrics.Collector

	detector   *detection.Detector
	classifier *detection.Classifier
	dispatcher *alerts.Dispatcher
	pipeline   *reputation.Pipeline
	aggregator *intelligence.Aggregator
	assembler  *dashboard.Assembler

	stats *Stats
	mu    sync.RWMutex
}

// Stats holds run statistics for the status endpoint
type Stats struct {
	StartedAt        time.Time      `json:"started_at"`
	LastScan         time.Time      `json:"last_scan"`
	LastScanDuration string         `json:"last_scan_duration"`
	ScanCount        int            `json:"scan_count"`
	LastReviewSync   time.Time      `json:"last_review_sync"`
	LastMetrics      time.Time      `json:"last_metrics"`
	LastInsights     time.Time      `json:"last_insights"`
	LastDigest       time.Time      `json:"last_digest"`
	ChangesDetected  int            `json:"changes_detected"`
	AlertsSent       int            `json:"alerts_sent"`
	FetchErrors      map[string]int `json:"fetch_errors"`
}

// Status is the service health summary
type Status struct {
	Stats
	TrackedCompetitors int            `json:"tracked_competitors"`
	TrackedProfiles    int            `json:"tracked_profiles"`
	ActiveAlerts       int            `json:"active_alerts"`
	Sources            []SourceStatus `json:"sources"`
	Responder          string         `json:"responder"`
}

type SourceStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Breaker string `json:"breaker,omitempty"`
}

// ScanResult summarises one scan cycle
type ScanResult struct {
	Entities int `json:"entities"`
	Fetches  int `json:"fetches"`
	Failures int `json:"failures"`
	Changes  int `json:"changes"`
	Alerts   int `json:"alerts"`
}

func (r *ScanResult) add(o ScanResult) {
	r.Entities += o.Entities
	r.Fetches += o.Fetches
	r.Failures += o.Failures
	r.Changes += o.Changes
	r.Alerts += o.Alerts
}

// NewService creates a new monitoring service
func NewService(cfg *config.Config, stores Stores, opts Options) *Service {
	c := opts.Clock
	if c == nil {
		c = clock.Real{}
	}
	generator := opts.Generator
	if generator == nil {
		generator = responder.NewTemplate()
	}
	digest := opts.Digest
	if digest == nil {
		digest = notifications.Nop{}
	}

	policy := reputation.Policy{PositiveMinChars: cfg.PositiveMinChars}

	aggregator := intelligence.NewAggregator(opts.Business, stores.Entities, stores.Reviews, stores.Changes, stores.Metrics, c, cfg.InsightWindow)

	return &Service{
		config:     cfg,
		stores:     stores,
		fetchers:   opts.Fetchers,
		reviews:    opts.Reviews,
		digest:     digest,
		clock:      c,
		metrics:    opts.Metrics,
		detector:   detection.NewDetector(c),
		classifier: detection.NewClassifier(stores.Changes, stores.Entities, c),
		dispatcher: alerts.NewDispatcher(stores.Alerts, opts.Standard, opts.Escalation, cfg.NotifyTimeout, c, opts.Metrics),
		pipeline:   reputation.NewPipeline(stores.Reviews, stores.Entities, opts.Reviews, generator, policy, c, opts.Metrics),
		aggregator: aggregator,
		assembler:  dashboard.NewAssembler(aggregator, stores.Alerts, stores.Entities, stores.Changes, c),
		stats: &Stats{
			StartedAt:   c.Now(),
			FetchErrors: make(map[string]int),
		},
	}
}

// RegisterEntity starts tracking a competitor or reputation profile.
// Unset sources default to every enabled fetcher.
func (s *Service) RegisterEntity(entity models.TrackedEntity) (models.TrackedEntity, error) {
	entity.Name = strings.TrimSpace(entity.Name)
	if entity.Name == "" {
		return models.TrackedEntity{}, fmt.Errorf("entity name is required")
	}
	if entity.Kind != models.KindCompetitor && entity.Kind != models.KindReputationProfile {
		return models.TrackedEntity{}, fmt.Errorf("unknown entity kind %q", entity.Kind)
	}
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if _, err := s.stores.Entities.Get(entity.ID); err == nil {
		return models.TrackedEntity{}, fmt.Errorf("entity %s already registered: %w", entity.ID, storage.ErrInvalidState)
	}
	if entity.OrgID == "" {
		entity.OrgID = s.config.OrgID
	}
	if len(entity.Sources) == 0 {
		for _, f := range s.fetchers {
			if f.IsEnabled() {
				entity.Sources = append(entity.Sources, f.GetName())
			}
		}
	}

	entity.Active = true
	entity.ThreatLevel = models.LevelLow
	entity.ActivityLevel = models.ActivityQuiet
	entity.CreatedAt = s.clock.Now()

	if err := s.stores.Entities.Save(entity); err != nil {
		return models.TrackedEntity{}, err
	}
	s.updateEntityGauges()

	logrus.WithFields(logrus.Fields{
		"entity_id": entity.ID,
		"kind":      entity.Kind,
		"sources":   entity.Sources,
	}).Infof("Registered %s", entity.Name)

	return entity, nil
}

// DeactivateEntity stops scanning an entity. Its history is kept.
func (s *Service) DeactivateEntity(id string) (models.TrackedEntity, error) {
	entity, err := s.stores.Entities.Update(id, func(e *models.TrackedEntity) error {
		if !e.Active {
			return fmt.Errorf("entity %s already inactive: %w", id, storage.ErrInvalidState)
		}
		e.Active = false
		return nil
	})
	if err != nil {
		return models.TrackedEntity{}, err
	}
	s.updateEntityGauges()
	return entity, nil
}

func (s *Service) updateEntityGauges() {
	s.metrics.SetTrackedEntities(string(models.KindCompetitor), len(s.stores.Entities.Active(models.KindCompetitor)))
	s.metrics.SetTrackedEntities(string(models.KindReputationProfile), len(s.stores.Entities.Active(models.KindReputationProfile)))
}

func (s *Service) activeEntities() []models.TrackedEntity {
	entities := s.stores.Entities.Active(models.KindCompetitor)
	return append(entities, s.stores.Entities.Active(models.KindReputationProfile)...)
}

// RunScanCycle fetches a snapshot of every active entity from every source it
// is monitored on, detects changes against the stored baselines and
// dispatches alerts. A failed fetch skips that source until the next cycle.
func (s *Service) RunScanCycle(ctx context.Context) ScanResult {
	start := time.Now()
	entities := s.activeEntities()
	logrus.WithField("cycle", "scan").Infof("Scanning %d entities across %d sources", len(entities), len(s.fetchers))

	concurrency := s.config.ScanConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		total   ScanResult
		created []models.Change
		sem     = make(chan struct{}, concurrency)
	)

	for _, entity := range entities {
		wg.Add(1)
		go func(e models.TrackedEntity) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			result, changes := s.scanEntity(ctx, e)

			mu.Lock()
			total.add(result)
			created = append(created, changes...)
			mu.Unlock()
		}(entity)
	}
	wg.Wait()

	s.archiveChanges(ctx, created)

	s.mu.Lock()
	s.stats.LastScan = s.clock.Now()
	s.stats.LastScanDuration = time.Since(start).String()
	s.stats.ScanCount++
	s.stats.ChangesDetected += total.Changes
	s.stats.AlertsSent += total.Alerts
	s.mu.Unlock()

	s.metrics.ObserveCycle("scan", time.Since(start))
	logrus.WithFields(logrus.Fields{
		"cycle":    "scan",
		"entities": total.Entities,
		"failures": total.Failures,
		"changes":  total.Changes,
		"alerts":   total.Alerts,
	}).Infof("Scan cycle completed in %v", time.Since(start))

	return total
}

func (s *Service) scanEntity(ctx context.Context, entity models.TrackedEntity) (ScanResult, []models.Change) {
	result := ScanResult{Entities: 1}
	var detected []models.Change

	for _, f := range s.fetchers {
		if !f.IsEnabled() || !entity.Monitors(f.GetName()) {
			continue
		}
		result.Fetches++
		s.metrics.SourceScanned(f.GetName())

		fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
		snapshot, err := f.FetchSnapshot(fetchCtx, entity)
		cancel()

		if err != nil {
			result.Failures++
			s.metrics.FetchFailed(f.GetName())
			s.mu.Lock()
			s.stats.FetchErrors[f.GetName()]++
			s.mu.Unlock()
			logrus.WithFields(logrus.Fields{
				"entity_id": entity.ID,
				"source":    f.GetName(),
			}).Errorf("Error fetching snapshot: %v", err)
			continue
		}

		current := *snapshot
		current.EntityID = entity.ID
		current.Source = f.GetName()
		current.CapturedAt = s.clock.Now()

		previous, _ := s.stores.Snapshots.Get(entity.ID, f.GetName())
		detected = append(detected, s.detector.DetectChanges(entity, previous, current)...)
		s.stores.Snapshots.Put(current)
	}

	var appended []models.Change
	for _, change := range detected {
		if err := s.stores.Changes.Append(change); err != nil {
			logrus.WithField("entity_id", entity.ID).Errorf("Failed to record change: %v", err)
			continue
		}
		s.metrics.ChangeDetected(string(change.Type), string(change.Impact))
		appended = append(appended, change)
	}
	result.Changes = len(appended)

	now := s.clock.Now()
	if _, err := s.classifier.Recompute(entity.ID); err != nil {
		logrus.WithField("entity_id", entity.ID).Errorf("Failed to recompute threat level: %v", err)
	}
	if _, err := s.stores.Entities.Update(entity.ID, func(e *models.TrackedEntity) error {
		e.LastScannedAt = &now
		return nil
	}); err != nil {
		logrus.WithField("entity_id", entity.ID).Errorf("Failed to stamp scan time: %v", err)
	}

	for _, change := range appended {
		alert, err := s.dispatcher.Dispatch(ctx, change)
		if err != nil {
			logrus.WithField("change_id", change.ID).Errorf("Failed to dispatch alert: %v", err)
			continue
		}
		if alert != nil {
			result.Alerts++
		}
	}

	return result, appended
}

func (s *Service) archiveChanges(ctx context.Context, changes []models.Change) {
	if s.stores.Archive == nil || len(changes) == 0 {
		return
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].DetectedAt.Before(changes[j].DetectedAt)
	})
	if _, err := storage.ArchiveJSON(ctx, s.stores.Archive, "changes", s.clock.Now(), changes); err != nil {
		logrus.Errorf("Failed to archive changes: %v", err)
	}
}

// RunReviewSync pulls new reviews for every active reputation profile and
// drafts responses for eligible ones
func (s *Service) RunReviewSync(ctx context.Context) reputation.ProcessResult {
	start := time.Now()
	var total reputation.ProcessResult

	var profiles []models.TrackedEntity
	if s.reviews != nil && s.reviews.IsEnabled() {
		profiles = s.stores.Entities.Active(models.KindReputationProfile)
	}
	for _, profile := range profiles {
		now := s.clock.Now()
		since := now.Add(-initialReviewSync)
		if profile.LastSyncedAt != nil {
			since = *profile.LastSyncedAt
		}

		syncCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
		result, err := s.pipeline.Sync(syncCtx, profile, since)
		cancel()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"cycle":     "reviews",
				"entity_id": profile.ID,
			}).Warnf("Review sync failed: %v", err)
			continue
		}
		total.Generated += result.Process.Generated
		total.Failed += result.Process.Failed

		if _, err := s.stores.Entities.Update(profile.ID, func(e *models.TrackedEntity) error {
			e.LastSyncedAt = &now
			return nil
		}); err != nil {
			logrus.WithField("entity_id", profile.ID).Errorf("Failed to stamp sync time: %v", err)
		}
	}

	// retries earlier generation failures and rejected drafts
	pending := s.pipeline.ProcessPending(ctx)
	total.Generated += pending.Generated
	total.Failed += pending.Failed
	total.Skipped += pending.Skipped

	s.mu.Lock()
	s.stats.LastReviewSync = s.clock.Now()
	s.mu.Unlock()
	s.metrics.ObserveCycle("reviews", time.Since(start))

	return total
}

func (s *Service) orgIDs() []string {
	seen := map[string]bool{s.config.OrgID: true}
	ids := []string{s.config.OrgID}
	for _, e := range s.activeEntities() {
		if e.OrgID != "" && !seen[e.OrgID] {
			seen[e.OrgID] = true
			ids = append(ids, e.OrgID)
		}
	}
	return ids
}

// RunMetricsCycle recomputes BusinessMetrics for every organization
func (s *Service) RunMetricsCycle(ctx context.Context) {
	start := time.Now()
	for _, orgID := range s.orgIDs() {
		if _, err := s.aggregator.RefreshMetrics(ctx, orgID); err != nil {
			logrus.WithFields(logrus.Fields{"cycle": "metrics", "org_id": orgID}).Errorf("Metrics refresh failed: %v", err)
		}
	}
	s.mu.Lock()
	s.stats.LastMetrics = s.clock.Now()
	s.mu.Unlock()
	s.metrics.ObserveCycle("metrics", time.Since(start))
}

// RunInsightCycle recomputes proprietary metrics and insights
func (s *Service) RunInsightCycle(ctx context.Context) {
	start := time.Now()
	for _, orgID := range s.orgIDs() {
		if _, err := s.aggregator.RefreshInsights(ctx, orgID); err != nil {
			logrus.WithFields(logrus.Fields{"cycle": "insights", "org_id": orgID}).Errorf("Insight refresh failed: %v", err)
		}
	}
	s.mu.Lock()
	s.stats.LastInsights = s.clock.Now()
	s.mu.Unlock()
	s.metrics.ObserveCycle("insights", time.Since(start))
}

// RefreshWidgets rebuilds dashboard widgets whose interval has elapsed
func (s *Service) RefreshWidgets() int {
	return s.assembler.RefreshDue(s.clock.Now())
}

// RunAll runs every cycle once in pipeline order
func (s *Service) RunAll(ctx context.Context) ScanResult {
	result := s.RunScanCycle(ctx)
	s.RunReviewSync(ctx)
	s.RunMetricsCycle(ctx)
	s.RunInsightCycle(ctx)
	s.RefreshWidgets()
	return result
}

// BuildDigest summarises the changes of the configured report period
func (s *Service) BuildDigest() *models.Digest {
	now := s.clock.Now()
	window := 7 * 24 * time.Hour
	if s.config.ReportSchedule == "daily" {
		window = 24 * time.Hour
	}

	changes := s.stores.Changes.Since("", now.Add(-window))
	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].Impact.Rank() != changes[j].Impact.Rank() {
			return changes[i].Impact.Rank() > changes[j].Impact.Rank()
		}
		return changes[i].DetectedAt.After(changes[j].DetectedAt)
	})

	impactCount := make(map[string]int)
	typeCount := make(map[string]int)
	entityCount := make(map[string]int)
	for _, c := range changes {
		impactCount[string(c.Impact)]++
		typeCount[string(c.Type)]++
		entityCount[c.EntityName]++
	}

	return &models.Digest{
		GeneratedAt:  now,
		Period:       s.config.ReportSchedule,
		TotalChanges: len(changes),
		Changes:      changes,
		ActiveAlerts: len(s.stores.Alerts.Active()),
		Summary: map[string]interface{}{
			"impact":   impactCount,
			"types":    typeCount,
			"entities": entityCount,
		},
	}
}

// SendDigest builds, archives and sends the periodic digest
func (s *Service) SendDigest(ctx context.Context) error {
	digest := s.BuildDigest()

	if s.stores.Archive != nil {
		s.comparePrevious(ctx, digest)
		if _, err := storage.ArchiveJSON(ctx, s.stores.Archive, "digests", digest.GeneratedAt, digest); err != nil {
			logrus.Errorf("Failed to archive digest: %v", err)
		}
	}

	if err := s.digest.SendDigest(ctx, digest); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}

	s.mu.Lock()
	s.stats.LastDigest = s.clock.Now()
	s.mu.Unlock()

	logrus.Infof("Sent %s digest with %d changes", digest.Period, digest.TotalChanges)
	return nil
}

// comparePrevious attaches the delta against the newest archived digest
func (s *Service) comparePrevious(ctx context.Context, digest *models.Digest) {
	var previous models.Digest
	name, err := storage.LatestJSON(ctx, s.stores.Archive, "digests", &previous)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		logrus.Warnf("Failed to load previous digest: %v", err)
		return
	}

	digest.Previous = &models.DigestComparison{
		GeneratedAt:  previous.GeneratedAt,
		TotalChanges: previous.TotalChanges,
		Delta:        digest.TotalChanges - previous.TotalChanges,
	}
	logrus.WithField("blob", name).Debug("Compared digest with previous")
}
