package dashboard

import (
	"sort"
	"sync"
	"time"

	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/detection"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/storage"
)

// Insights is the read side of the metrics aggregator
type Insights interface {
	Metrics(orgID string) models.BusinessMetrics
	History(orgID string, limit int) []models.BusinessMetrics
	Insights(orgID string) []models.Insight
	ProprietaryMetrics(orgID string) []models.ProprietaryMetric
}

type widgetSpec struct {
	id       string
	title    string
	interval time.Duration
	build    func(a *Assembler, orgID string, now time.Time) interface{}
}

var widgetSpecs = []widgetSpec{
	{"alert_feed", "Active Alerts", time.Minute, (*Assembler).alertFeed},
	{"competitor_activity", "Competitor Activity", 2 * time.Minute, (*Assembler).competitorActivity},
	{"revenue_trend", "Revenue Trend", 5 * time.Minute, (*Assembler).revenueTrend},
	{"reputation_summary", "Reputation Summary", 5 * time.Minute, (*Assembler).reputationSummary},
	{"insight_feed", "Insights", time.Hour, (*Assembler).insightFeed},
}

const (
	alertFeedSize   = 10
	revenuePoints   = 24
	insightFeedSize = 10
)

// Assembler composes dashboard overviews from cached state. It never calls
// out to sources, so overviews are available before the first scan.
type Assembler struct {
	insights Insights
	alerts   storage.AlertStore
	entities storage.EntityStore
	changes  storage.ChangeLog
	clock    clock.Clock

	mu      sync.Mutex
	widgets map[string][]models.Widget
}

func NewAssembler(insights Insights, alerts storage.AlertStore, entities storage.EntityStore, changes storage.ChangeLog, c clock.Clock) *Assembler {
	return &Assembler{
		insights: insights,
		alerts:   alerts,
		entities: entities,
		changes:  changes,
		clock:    c,
		widgets:  make(map[string][]models.Widget),
	}
}

// Overview returns the dashboard for an organization. The first call for an
// organization builds its widgets; later calls serve them as last refreshed.
func (a *Assembler) Overview(orgID, userID string) models.DashboardOverview {
	now := a.clock.Now()

	return models.DashboardOverview{
		OrgID:              orgID,
		UserID:             userID,
		GeneratedAt:        now,
		Metrics:            a.insights.Metrics(orgID),
		Insights:           a.insights.Insights(orgID),
		ProprietaryMetrics: a.insights.ProprietaryMetrics(orgID),
		Widgets:            a.orgWidgets(orgID, now),
		Alerts:             a.orgAlerts(orgID),
	}
}

// RefreshDue rebuilds every widget whose interval has elapsed and returns how
// many were refreshed
func (a *Assembler) RefreshDue(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	refreshed := 0
	for orgID, widgets := range a.widgets {
		for i := range widgets {
			spec := widgetSpecs[i]
			if now.Sub(widgets[i].LastRefreshed) < spec.interval {
				continue
			}
			widgets[i].Data = spec.build(a, orgID, now)
			widgets[i].LastRefreshed = now
			refreshed++
		}
	}
	return refreshed
}

func (a *Assembler) orgWidgets(orgID string, now time.Time) []models.Widget {
	a.mu.Lock()
	defer a.mu.Unlock()

	widgets, ok := a.widgets[orgID]
	if !ok {
		widgets = make([]models.Widget, len(widgetSpecs))
		for i, spec := range widgetSpecs {
			widgets[i] = models.Widget{
				ID:              spec.id,
				Type:            spec.id,
				Title:           spec.title,
				RefreshInterval: spec.interval,
				LastRefreshed:   now,
				Data:            spec.build(a, orgID, now),
			}
		}
		a.widgets[orgID] = widgets
	}
	return append([]models.Widget(nil), widgets...)
}

// orgAlerts lists unresolved alerts on the organization's entities
func (a *Assembler) orgAlerts(orgID string) []models.Alert {
	result := []models.Alert{}
	for _, alert := range a.alerts.Active() {
		entity, err := a.entities.Get(alert.EntityID)
		if err != nil || entity.OrgID != orgID {
			continue
		}
		result = append(result, alert)
	}
	return result
}

func (a *Assembler) alertFeed(orgID string, now time.Time) interface{} {
	active := a.orgAlerts(orgID)
	if len(active) > alertFeedSize {
		active = active[:alertFeedSize]
	}
	return active
}

// CompetitorSummary is one row of the competitor activity widget
type CompetitorSummary struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	ThreatLevel   models.Level         `json:"threat_level"`
	ActivityLevel models.ActivityLevel `json:"activity_level"`
	RecentChanges int                  `json:"recent_changes"`
	LastScannedAt *time.Time           `json:"last_scanned_at,omitempty"`
}

func (a *Assembler) competitorActivity(orgID string, now time.Time) interface{} {
	rows := []CompetitorSummary{}
	for _, c := range a.entities.Active(models.KindCompetitor) {
		if c.OrgID != orgID {
			continue
		}
		rows = append(rows, CompetitorSummary{
			ID:            c.ID,
			Name:          c.Name,
			ThreatLevel:   c.ThreatLevel,
			ActivityLevel: c.ActivityLevel,
			RecentChanges: len(a.changes.Since(c.ID, now.Add(-detection.ThreatWindow))),
			LastScannedAt: c.LastScannedAt,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ThreatLevel.Rank() != rows[j].ThreatLevel.Rank() {
			return rows[i].ThreatLevel.Rank() > rows[j].ThreatLevel.Rank()
		}
		return rows[i].RecentChanges > rows[j].RecentChanges
	})
	return rows
}

// RevenuePoint is one sample of the revenue trend widget
type RevenuePoint struct {
	At      time.Time `json:"at"`
	Revenue float64   `json:"revenue"`
}

func (a *Assembler) revenueTrend(orgID string, now time.Time) interface{} {
	points := []RevenuePoint{}
	for _, m := range a.insights.History(orgID, revenuePoints) {
		points = append(points, RevenuePoint{At: m.CapturedAt, Revenue: m.Revenue.Total})
	}
	return points
}

func (a *Assembler) reputationSummary(orgID string, now time.Time) interface{} {
	return a.insights.Metrics(orgID).Reputation
}

func (a *Assembler) insightFeed(orgID string, now time.Time) interface{} {
	insights := a.insights.Insights(orgID)
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Priority.Rank() > insights[j].Priority.Rank()
	})
	if len(insights) > insightFeedSize {
		insights = insights[:insightFeedSize]
	}
	return insights
}
