package models

import "time"

// Trend direction of a metric
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// BusinessMetrics is a point-in-time aggregate for one organization
type BusinessMetrics struct {
	OrgID       string             `json:"org_id"`
	Period      string             `json:"period"`
	CapturedAt  time.Time          `json:"captured_at"`
	Revenue     RevenueMetrics     `json:"revenue"`
	Customers   CustomerMetrics    `json:"customers"`
	Reputation  ReputationMetrics  `json:"reputation"`
	Competitive CompetitiveMetrics `json:"competitive"`
	Operational OperationalMetrics `json:"operational"`
}

type RevenueMetrics struct {
	Total      float64 `json:"total"`
	Recurring  float64 `json:"recurring"`
	GrowthRate float64 `json:"growth_rate"` // percent over previous period
	Forecast   float64 `json:"forecast"`
}

type CustomerMetrics struct {
	Total         int     `json:"total"`
	New           int     `json:"new"`
	Churned       int     `json:"churned"`
	RetentionRate float64 `json:"retention_rate"` // 0-1
	LifetimeValue float64 `json:"lifetime_value"`
}

type ReputationMetrics struct {
	AverageRating     float64 `json:"average_rating"`
	TotalReviews      int     `json:"total_reviews"`
	ResponseRate      float64 `json:"response_rate"`   // 0-1
	SentimentScore    float64 `json:"sentiment_score"` // 0-100
	ResponseTimeHours float64 `json:"response_time_hours"`
	NegativeShare     float64 `json:"negative_share"` // 0-1
	Trend             Trend   `json:"trend"`
	// ProfileTrends holds the trend of each reputation profile, keyed by entity id
	ProfileTrends map[string]Trend `json:"profile_trends,omitempty"`
}

type CompetitiveMetrics struct {
	MarketShare        float64 `json:"market_share"` // percent
	Position           int     `json:"position"`
	ThreatLevel        Level   `json:"threat_level"`
	OpportunityCount   int     `json:"opportunity_count"`
	TrackedCompetitors int     `json:"tracked_competitors"`
	RecentChanges      int     `json:"recent_changes"`
}

type OperationalMetrics struct {
	Efficiency      float64 `json:"efficiency"` // 0-100
	CostPerCustomer float64 `json:"cost_per_customer"`
	Utilization     float64 `json:"utilization"` // 0-1
}

// BusinessData is what an external business system reports for an organization.
// Reputation and competitive aggregates are derived internally.
type BusinessData struct {
	Revenue     RevenueMetrics     `json:"revenue"`
	Customers   CustomerMetrics    `json:"customers"`
	Operational OperationalMetrics `json:"operational"`
	MarketShare float64            `json:"market_share"`
	Position    int                `json:"position"`
}

// MetricCategory groups proprietary metrics
type MetricCategory string

const (
	CategoryRevenue     MetricCategory = "revenue"
	CategoryCompetitive MetricCategory = "competitive"
	CategoryReputation  MetricCategory = "reputation"
)

// Benchmarks compares a metric value with reference points
type Benchmarks struct {
	Industry     float64 `json:"industry"`
	TopPerformer float64 `json:"top_performer"`
	Previous     float64 `json:"previous"`
}

// ProprietaryMetric is a derived score with its interpretation. Overwritten on
// each recompute.
type ProprietaryMetric struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Category        MetricCategory `json:"category"`
	SubjectID       string         `json:"subject_id,omitempty"`
	Value           float64        `json:"value"`
	Score           float64        `json:"score"` // 0-100, drives interpretation
	Unit            string         `json:"unit"`
	Trend           Trend          `json:"trend"`
	Benchmarks      Benchmarks     `json:"benchmarks"`
	Interpretation  string         `json:"interpretation"`
	Recommendations []string       `json:"recommendations"`
	Confidence      int            `json:"confidence"`
	LastCalculated  time.Time      `json:"last_calculated"`
}

// InsightType categorizes generated insights
type InsightType string

const (
	InsightOpportunity InsightType = "opportunity"
	InsightRisk        InsightType = "risk"
	InsightTrend       InsightType = "trend"
	InsightAnomaly     InsightType = "anomaly"
)

// Insight is a generated observation for the dashboard
type Insight struct {
	ID              string      `json:"id"`
	Type            InsightType `json:"type"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Priority        Level       `json:"priority"`
	Confidence      int         `json:"confidence"`
	Recommendations []string    `json:"recommendations,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Widget is one independently refreshed dashboard tile
type Widget struct {
	ID              string        `json:"id"`
	Type            string        `json:"type"`
	Title           string        `json:"title"`
	RefreshInterval time.Duration `json:"refresh_interval"`
	LastRefreshed   time.Time     `json:"last_refreshed"`
	Data            interface{}   `json:"data"`
}

// DashboardOverview is the read model served to the presentation layer
type DashboardOverview struct {
	OrgID              string              `json:"org_id"`
	UserID             string              `json:"user_id"`
	GeneratedAt        time.Time           `json:"generated_at"`
	Metrics            BusinessMetrics     `json:"metrics"`
	Insights           []Insight           `json:"insights"`
	ProprietaryMetrics []ProprietaryMetric `json:"proprietary_metrics"`
	Widgets            []Widget            `json:"widgets"`
	Alerts             []Alert             `json:"alerts"`
}
