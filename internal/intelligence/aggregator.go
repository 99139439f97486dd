package intelligence

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/reputation"
	"github.com/mozawave/market-watch/internal/sources"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/sirupsen/logrus"
)

// Aggregator rolls business data, reviews and competitor changes into
// BusinessMetrics, and derives proprietary metrics and insights from them
type Aggregator struct {
	business sources.BusinessSource
	entities storage.EntityStore
	reviews  storage.ReviewStore
	changes  storage.ChangeLog
	history  storage.MetricsStore
	clock    clock.Clock
	window   time.Duration
	newID    func() string

	mu          sync.RWMutex
	proprietary map[string][]models.ProprietaryMetric
	insights    map[string][]models.Insight
}

// NewAggregator creates an aggregator. business may be nil, in which case
// revenue and customer figures stay zero.
func NewAggregator(business sources.BusinessSource, entities storage.EntityStore, reviews storage.ReviewStore, changes storage.ChangeLog, history storage.MetricsStore, c clock.Clock, window time.Duration) *Aggregator {
	return &Aggregator{
		business:    business,
		entities:    entities,
		reviews:     reviews,
		changes:     changes,
		history:     history,
		clock:       c,
		window:      window,
		newID:       uuid.NewString,
		proprietary: make(map[string][]models.ProprietaryMetric),
		insights:    make(map[string][]models.Insight),
	}
}

// RefreshMetrics recomputes BusinessMetrics for orgID and appends it to history
func (a *Aggregator) RefreshMetrics(ctx context.Context, orgID string) (models.BusinessMetrics, error) {
	now := a.clock.Now()

	var data models.BusinessData
	if a.business != nil {
		fetched, err := a.business.FetchBusinessData(ctx, orgID)
		if err != nil {
			logrus.WithField("org_id", orgID).Warnf("Business data unavailable, using zero values: %v", err)
		} else {
			data = *fetched
		}
	}

	metrics := models.BusinessMetrics{
		OrgID:       orgID,
		Period:      periodLabel(a.window),
		CapturedAt:  now,
		Revenue:     data.Revenue,
		Customers:   data.Customers,
		Operational: data.Operational,
		Reputation:  a.orgReputation(orgID),
		Competitive: a.competitiveMetrics(orgID, data, now),
	}

	a.history.Append(metrics)
	return metrics, nil
}

// RefreshInsights recomputes proprietary metrics and insights from the latest
// metrics. Readers keep seeing the previous results until the swap.
func (a *Aggregator) RefreshInsights(ctx context.Context, orgID string) ([]models.Insight, error) {
	latest, ok := a.history.Latest(orgID)
	if !ok {
		var err error
		if latest, err = a.RefreshMetrics(ctx, orgID); err != nil {
			return nil, err
		}
	}

	now := a.clock.Now()
	previous := a.previousByID(orgID)

	competitors := a.orgEntities(orgID, models.KindCompetitor)
	changes := make(map[string][]models.Change, len(competitors))

	proprietary := []models.ProprietaryMetric{
		RevenueAtRisk(latest, previous[MetricRevenueAtRisk], now),
		SentimentImpact(latest, previous[MetricSentimentImpact], now),
	}
	for _, competitor := range competitors {
		recent := a.changes.Since(competitor.ID, now.Add(-a.window))
		changes[competitor.ID] = recent
		id := MetricCompetitorThreat + ":" + competitor.ID
		proprietary = append(proprietary, CompetitorThreat(competitor, recent, previous[id], now))
	}

	insights := buildInsights(insightInput{
		metrics:     latest,
		history:     a.history.History(orgID, 0),
		proprietary: proprietary,
		competitors: competitors,
		changes:     changes,
		now:         now,
		newID:       a.newID,
	})

	a.mu.Lock()
	a.proprietary[orgID] = proprietary
	a.insights[orgID] = insights
	a.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"org_id":   orgID,
		"metrics":  len(proprietary),
		"insights": len(insights),
	}).Info("Insights refreshed")

	return insights, nil
}

// Metrics returns the latest BusinessMetrics. Before the first refresh it
// returns a zero value stamped with orgID.
func (a *Aggregator) Metrics(orgID string) models.BusinessMetrics {
	if m, ok := a.history.Latest(orgID); ok {
		return m
	}
	return models.BusinessMetrics{
		OrgID:       orgID,
		Reputation:  models.ReputationMetrics{Trend: models.TrendStable},
		Competitive: models.CompetitiveMetrics{ThreatLevel: models.LevelLow},
	}
}

func (a *Aggregator) History(orgID string, limit int) []models.BusinessMetrics {
	return a.history.History(orgID, limit)
}

func (a *Aggregator) Insights(orgID string) []models.Insight {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.Insight{}, a.insights[orgID]...)
}

func (a *Aggregator) ProprietaryMetrics(orgID string) []models.ProprietaryMetric {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.ProprietaryMetric{}, a.proprietary[orgID]...)
}

func (a *Aggregator) previousByID(orgID string) map[string]*models.ProprietaryMetric {
	a.mu.RLock()
	defer a.mu.RUnlock()
	byID := make(map[string]*models.ProprietaryMetric, len(a.proprietary[orgID]))
	for i := range a.proprietary[orgID] {
		m := a.proprietary[orgID][i]
		byID[m.ID] = &m
	}
	return byID
}

func (a *Aggregator) orgEntities(orgID string, kind models.EntityKind) []models.TrackedEntity {
	var result []models.TrackedEntity
	for _, e := range a.entities.Active(kind) {
		if e.OrgID == orgID {
			result = append(result, e)
		}
	}
	return result
}

// orgReputation aggregates every profile's reviews, keeping each profile's own
// trend next to the org-wide one
func (a *Aggregator) orgReputation(orgID string) models.ReputationMetrics {
	var all []models.Review
	trends := make(map[string]models.Trend)
	for _, profile := range a.orgEntities(orgID, models.KindReputationProfile) {
		reviews := a.reviews.List(profile.ID)
		trends[profile.ID] = ReputationTrend(reviews)
		all = append(all, reviews...)
	}

	metrics := reputationMetrics(all)
	if len(trends) > 0 {
		metrics.ProfileTrends = trends
	}
	return metrics
}

func (a *Aggregator) competitiveMetrics(orgID string, data models.BusinessData, now time.Time) models.CompetitiveMetrics {
	competitors := a.orgEntities(orgID, models.KindCompetitor)
	metrics := models.CompetitiveMetrics{
		MarketShare:        data.MarketShare,
		Position:           data.Position,
		ThreatLevel:        models.LevelLow,
		TrackedCompetitors: len(competitors),
	}

	for _, competitor := range competitors {
		if competitor.ThreatLevel.Rank() > metrics.ThreatLevel.Rank() {
			metrics.ThreatLevel = competitor.ThreatLevel
		}
		for _, c := range a.changes.Since(competitor.ID, now.Add(-a.window)) {
			metrics.RecentChanges++
			if opportunity(c) {
				metrics.OpportunityCount++
			}
		}
	}
	return metrics
}

func reputationMetrics(reviews []models.Review) models.ReputationMetrics {
	metrics := models.ReputationMetrics{
		TotalReviews: len(reviews),
		Trend:        ReputationTrend(reviews),
	}
	if len(reviews) == 0 {
		return metrics
	}

	var sentiment, responseHours float64
	responded, negative := 0, 0
	for _, r := range reviews {
		sentiment += reputation.SentimentScore(r.Sentiment)
		if r.Sentiment.IsNegative() {
			negative++
		}
		if r.Status == models.ReviewResponded && r.RespondedAt != nil {
			responded++
			responseHours += r.RespondedAt.Sub(r.PublishedAt).Hours()
		}
	}

	n := float64(len(reviews))
	metrics.AverageRating = round2(meanRating(reviews))
	metrics.SentimentScore = round2(sentiment / n)
	metrics.ResponseRate = round2(float64(responded) / n)
	metrics.NegativeShare = round2(float64(negative) / n)
	if responded > 0 {
		metrics.ResponseTimeHours = round2(responseHours / float64(responded))
	}
	return metrics
}

func periodLabel(window time.Duration) string {
	days := int(window.Hours() / 24)
	if days < 1 {
		return window.String()
	}
	return strconv.Itoa(days) + "d"
}
