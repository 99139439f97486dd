package dashboard

import (
	"testing"
	"time"

	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type stubInsights struct {
	metrics  models.BusinessMetrics
	history  []models.BusinessMetrics
	insights []models.Insight
}

func (s *stubInsights) Metrics(orgID string) models.BusinessMetrics { return s.metrics }
func (s *stubInsights) History(orgID string, limit int) []models.BusinessMetrics {
	return s.history
}
func (s *stubInsights) Insights(orgID string) []models.Insight { return s.insights }
func (s *stubInsights) ProprietaryMetrics(orgID string) []models.ProprietaryMetric {
	return nil
}

type fixture struct {
	insights *stubInsights
	alerts   *storage.MemoryAlertStore
	entities *storage.MemoryEntityStore
	changes  *storage.MemoryChangeLog
	clock    *clock.Fake
}

func newFixture(t *testing.T) (*fixture, *Assembler) {
	t.Helper()
	f := &fixture{
		insights: &stubInsights{},
		alerts:   storage.NewMemoryAlertStore(),
		entities: storage.NewMemoryEntityStore(),
		changes:  storage.NewMemoryChangeLog(),
		clock:    clock.NewFake(now),
	}
	require.NoError(t, f.entities.Save(models.TrackedEntity{ID: "pizza-co", Name: "Pizza Co", Kind: models.KindCompetitor, OrgID: "org-1", Active: true, ThreatLevel: models.LevelMedium}))
	require.NoError(t, f.entities.Save(models.TrackedEntity{ID: "burger-barn", Name: "Burger Barn", Kind: models.KindCompetitor, OrgID: "org-1", Active: true, ThreatLevel: models.LevelHigh}))
	require.NoError(t, f.entities.Save(models.TrackedEntity{ID: "rival", Name: "Rival", Kind: models.KindCompetitor, OrgID: "org-2", Active: true}))
	return f, NewAssembler(f.insights, f.alerts, f.entities, f.changes, f.clock)
}

func widget(t *testing.T, overview models.DashboardOverview, id string) models.Widget {
	t.Helper()
	for _, w := range overview.Widgets {
		if w.ID == id {
			return w
		}
	}
	t.Fatalf("widget %s missing", id)
	return models.Widget{}
}

func TestOverview_EmptyStateNeverFails(t *testing.T) {
	_, a := newFixture(t)

	overview := a.Overview("org-empty", "user-1")
	assert.Equal(t, "org-empty", overview.OrgID)
	assert.Equal(t, "user-1", overview.UserID)
	assert.Equal(t, now, overview.GeneratedAt)
	assert.Len(t, overview.Widgets, 5)
	assert.Empty(t, overview.Alerts)
	assert.Empty(t, widget(t, overview, "competitor_activity").Data)
}

func TestOverview_ComposesState(t *testing.T) {
	f, a := newFixture(t)
	f.insights.metrics = models.BusinessMetrics{OrgID: "org-1", Reputation: models.ReputationMetrics{AverageRating: 4.4}}
	f.insights.history = []models.BusinessMetrics{{CapturedAt: now, Revenue: models.RevenueMetrics{Total: 5000}}}
	f.insights.insights = []models.Insight{
		{ID: "i1", Priority: models.LevelLow},
		{ID: "i2", Priority: models.LevelCritical},
	}

	require.NoError(t, f.changes.Append(models.Change{ID: "c1", EntityID: "pizza-co", DetectedAt: now.Add(-time.Hour)}))
	require.NoError(t, f.alerts.Add(models.Alert{ID: "a1", EntityID: "pizza-co", Status: models.StatusNew, CreatedAt: now}))
	require.NoError(t, f.alerts.Add(models.Alert{ID: "a2", EntityID: "rival", Status: models.StatusNew, CreatedAt: now}))

	overview := a.Overview("org-1", "user-1")
	assert.Equal(t, 4.4, overview.Metrics.Reputation.AverageRating)
	require.Len(t, overview.Alerts, 1, "alerts from other organizations are excluded")
	assert.Equal(t, "a1", overview.Alerts[0].ID)

	rows := widget(t, overview, "competitor_activity").Data.([]CompetitorSummary)
	require.Len(t, rows, 2)
	assert.Equal(t, "burger-barn", rows[0].ID, "highest threat first")
	assert.Equal(t, 1, rows[1].RecentChanges)

	points := widget(t, overview, "revenue_trend").Data.([]RevenuePoint)
	assert.Equal(t, []RevenuePoint{{At: now, Revenue: 5000}}, points)

	feed := widget(t, overview, "insight_feed").Data.([]models.Insight)
	assert.Equal(t, "i2", feed[0].ID)
}

func TestRefreshDue_HonoursIntervals(t *testing.T) {
	f, a := newFixture(t)
	a.Overview("org-1", "user-1")

	assert.Equal(t, 0, a.RefreshDue(now.Add(30*time.Second)))

	require.NoError(t, f.alerts.Add(models.Alert{ID: "a1", EntityID: "pizza-co", Status: models.StatusNew, CreatedAt: now}))
	assert.Equal(t, 1, a.RefreshDue(now.Add(time.Minute)), "only the alert feed is due")

	overview := a.Overview("org-1", "user-1")
	feed := widget(t, overview, "alert_feed")
	assert.Len(t, feed.Data.([]models.Alert), 1)
	assert.Equal(t, now.Add(time.Minute), feed.LastRefreshed)
	assert.Equal(t, now, widget(t, overview, "insight_feed").LastRefreshed)

	assert.Equal(t, 4, a.RefreshDue(now.Add(5*time.Minute)), "everything but the insight feed")
}
