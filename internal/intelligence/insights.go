package intelligence

import (
	"fmt"
	"math"
	"time"

	"github.com/mozawave/market-watch/internal/models"
)

const (
	anomalyZ       = 2.0
	anomalyMinHist = 5
)

type insightInput struct {
	metrics     models.BusinessMetrics
	history     []models.BusinessMetrics // oldest first, latest included
	proprietary []models.ProprietaryMetric
	competitors []models.TrackedEntity
	changes     map[string][]models.Change // by competitor id, window only
	now         time.Time
	newID       func() string
}

func buildInsights(in insightInput) []models.Insight {
	var insights []models.Insight
	add := func(t models.InsightType, priority models.Level, confidence int, title, description string, recs ...string) {
		insights = append(insights, models.Insight{
			ID:              in.newID(),
			Type:            t,
			Title:           title,
			Description:     description,
			Priority:        priority,
			Confidence:      confidence,
			Recommendations: recs,
			CreatedAt:       in.now,
		})
	}

	for _, m := range in.proprietary {
		switch {
		case m.Category == models.CategoryCompetitive && m.Score > 60:
			priority := models.LevelHigh
			if m.Score > 80 {
				priority = models.LevelCritical
			}
			add(models.InsightRisk, priority, m.Confidence, m.Name+" is elevated", m.Interpretation, m.Recommendations...)
		case m.ID == MetricRevenueAtRisk && m.Score > 40:
			add(models.InsightRisk, models.LevelHigh, m.Confidence,
				fmt.Sprintf("%.0f%% of revenue is at risk", m.Score), m.Interpretation, m.Recommendations...)
		}
	}

	for _, competitor := range in.competitors {
		for _, c := range in.changes[competitor.ID] {
			if opportunity(c) {
				add(models.InsightOpportunity, models.LevelMedium, c.Confidence,
					fmt.Sprintf("Opportunity: %s", c.Title),
					fmt.Sprintf("%s moved from %v to %v on %s", competitor.Name, c.Before, c.After, c.Source),
					"Target their customers with a comparison campaign")
				break // one opportunity per competitor
			}
		}
	}

	switch in.metrics.Reputation.Trend {
	case models.TrendDown:
		add(models.InsightRisk, models.LevelHigh, DefaultConfidence, "Review ratings are trending down",
			"Recent reviews rate lower than earlier ones", "Investigate the themes of recent negative reviews")
	case models.TrendUp:
		add(models.InsightTrend, models.LevelLow, DefaultConfidence, "Review ratings are trending up",
			"Recent reviews rate higher than earlier ones")
	}

	insights = append(insights, anomalies(in)...)
	return insights
}

// opportunity is a competitor weakening: a rating drop or a price increase
func opportunity(c models.Change) bool {
	switch c.Type {
	case models.ChangeRating:
		return c.Delta() < 0
	case models.ChangePricing:
		return c.Delta() > 0
	}
	return false
}

// anomalies flags the latest snapshot when revenue or average rating sits more
// than two standard deviations from the preceding history
func anomalies(in insightInput) []models.Insight {
	if len(in.history) < anomalyMinHist+1 {
		return nil
	}
	prior := in.history[:len(in.history)-1]
	latest := in.history[len(in.history)-1]

	series := []struct {
		name  string
		value func(models.BusinessMetrics) float64
	}{
		{"Revenue", func(m models.BusinessMetrics) float64 { return m.Revenue.Total }},
		{"Average rating", func(m models.BusinessMetrics) float64 { return m.Reputation.AverageRating }},
	}

	var result []models.Insight
	for _, s := range series {
		sample := make([]float64, len(prior))
		for i, m := range prior {
			sample[i] = s.value(m)
		}
		z, ok := zScore(sample, s.value(latest))
		if !ok || math.Abs(z) <= anomalyZ {
			continue
		}
		direction := "spike"
		if z < 0 {
			direction = "drop"
		}
		result = append(result, models.Insight{
			ID:          in.newID(),
			Type:        models.InsightAnomaly,
			Title:       fmt.Sprintf("%s %s detected", s.name, direction),
			Description: fmt.Sprintf("%s is %.1f standard deviations from its recent average", s.name, math.Abs(z)),
			Priority:    models.LevelHigh,
			Confidence:  DefaultConfidence,
			CreatedAt:   in.now,
		})
	}
	return result
}
