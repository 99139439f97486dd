package intelligence

import (
	"fmt"
	"math"
	"time"

	"github.com/mozawave/market-watch/internal/models"
)

const (
	MetricRevenueAtRisk    = "revenue_at_risk"
	MetricCompetitorThreat = "competitor_threat"
	MetricSentimentImpact  = "sentiment_impact"

	DefaultConfidence = 85
)

var impactWeights = map[models.Level]float64{
	models.LevelLow:      5,
	models.LevelMedium:   10,
	models.LevelHigh:     20,
	models.LevelCritical: 35,
}

// Band names the interpretation band of a 0-100 score
func Band(score float64) string {
	switch {
	case score > 80:
		return "critical"
	case score > 60:
		return "moderate"
	case score > 40:
		return "low"
	}
	return "minimal"
}

// Interpret renders the banded wording for a metric
func Interpret(label string, score float64) string {
	switch Band(score) {
	case "critical":
		return fmt.Sprintf("Critical %s: immediate action is needed", label)
	case "moderate":
		return fmt.Sprintf("Moderate %s: monitor closely and prepare a response", label)
	case "low":
		return fmt.Sprintf("Low %s: no immediate action required", label)
	}
	return fmt.Sprintf("Minimal %s", label)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// threatWeight maps low..critical onto 0..1
func threatWeight(l models.Level) float64 {
	if l.Rank() == 0 {
		return 0
	}
	return float64(l.Rank()-1) / float64(models.LevelCritical.Rank()-1)
}

func trendAgainst(current float64, previous *models.ProprietaryMetric) models.Trend {
	if previous == nil {
		return models.TrendStable
	}
	switch d := current - previous.Score; {
	case d > 1:
		return models.TrendUp
	case d < -1:
		return models.TrendDown
	}
	return models.TrendStable
}

// RevenueAtRisk estimates the share of revenue exposed to churn, bad reviews
// and competitor moves
func RevenueAtRisk(m models.BusinessMetrics, previous *models.ProprietaryMetric, now time.Time) models.ProprietaryMetric {
	churn := 0.0
	if m.Customers.Total > 0 {
		churn = float64(m.Customers.Churned) / float64(m.Customers.Total)
	}
	fraction := clamp(0.4*m.Reputation.NegativeShare+0.3*threatWeight(m.Competitive.ThreatLevel)+0.3*churn, 0, 1)
	score := round2(fraction * 100)

	metric := models.ProprietaryMetric{
		ID:             MetricRevenueAtRisk,
		Name:           "Revenue at Risk",
		Category:       models.CategoryRevenue,
		Value:          round2(m.Revenue.Total * fraction),
		Score:          score,
		Unit:           "currency",
		Trend:          trendAgainst(score, previous),
		Benchmarks:     models.Benchmarks{Industry: 15, TopPerformer: 5},
		Interpretation: Interpret("revenue exposure", score),
		Confidence:     DefaultConfidence,
		LastCalculated: now,
	}
	if previous != nil {
		metric.Benchmarks.Previous = previous.Score
	}

	if m.Reputation.NegativeShare > 0.2 {
		metric.Recommendations = append(metric.Recommendations, "Respond to negative reviews within 24 hours")
	}
	if m.Competitive.ThreatLevel.AtLeast(models.LevelHigh) {
		metric.Recommendations = append(metric.Recommendations, "Review pricing against the most active competitors")
	}
	if churn > 0.05 {
		metric.Recommendations = append(metric.Recommendations, "Launch a retention offer for at-risk customers")
	}
	return metric
}

// CompetitorThreat scores one competitor from its recent changes. Its
// confidence is the mean confidence of those changes.
func CompetitorThreat(competitor models.TrackedEntity, changes []models.Change, previous *models.ProprietaryMetric, now time.Time) models.ProprietaryMetric {
	score := 0.0
	confidence := 0
	for _, c := range changes {
		score += impactWeights[c.Impact]
		confidence += c.Confidence
	}
	score = clamp(score, 0, 100)
	if len(changes) > 0 {
		confidence /= len(changes)
	} else {
		confidence = DefaultConfidence
	}

	metric := models.ProprietaryMetric{
		ID:             MetricCompetitorThreat + ":" + competitor.ID,
		Name:           competitor.Name + " Threat Rating",
		Category:       models.CategoryCompetitive,
		SubjectID:      competitor.ID,
		Value:          score,
		Score:          score,
		Unit:           "score",
		Trend:          trendAgainst(score, previous),
		Benchmarks:     models.Benchmarks{Industry: 40, TopPerformer: 20},
		Interpretation: Interpret("competitive threat from "+competitor.Name, score),
		Confidence:     confidence,
		LastCalculated: now,
	}
	if previous != nil {
		metric.Benchmarks.Previous = previous.Score
	}
	if score > 60 {
		metric.Recommendations = []string{
			fmt.Sprintf("Review %s's latest moves and prepare a counter offer", competitor.Name),
		}
	}
	return metric
}

// SentimentImpact scores how much review sentiment is hurting the business.
// Responding to reviews softens the impact.
func SentimentImpact(m models.BusinessMetrics, previous *models.ProprietaryMetric, now time.Time) models.ProprietaryMetric {
	score := 0.0
	if m.Reputation.TotalReviews > 0 {
		score = round2(clamp((100-m.Reputation.SentimentScore)*(1-0.5*m.Reputation.ResponseRate), 0, 100))
	}

	metric := models.ProprietaryMetric{
		ID:             MetricSentimentImpact,
		Name:           "Sentiment Impact",
		Category:       models.CategoryReputation,
		Value:          score,
		Score:          score,
		Unit:           "score",
		Trend:          trendAgainst(score, previous),
		Benchmarks:     models.Benchmarks{Industry: 35, TopPerformer: 15},
		Interpretation: Interpret("sentiment impact", score),
		Confidence:     DefaultConfidence,
		LastCalculated: now,
	}
	if previous != nil {
		metric.Benchmarks.Previous = previous.Score
	}
	if m.Reputation.ResponseRate < 0.5 && m.Reputation.TotalReviews > 0 {
		metric.Recommendations = append(metric.Recommendations, "Raise the review response rate above 50%")
	}
	return metric
}
