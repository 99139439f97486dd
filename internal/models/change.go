package models

import "time"

// ChangeType classifies a detected difference
type ChangeType string

const (
	ChangePricing      ChangeType = "pricing"
	ChangeRating       ChangeType = "rating"
	ChangeReviewVolume ChangeType = "review_volume"
	ChangeSocialGrowth ChangeType = "social_growth"
	ChangeService      ChangeType = "service"
)

// Status is the lifecycle state shared by changes and alerts
type Status string

const (
	StatusNew          Status = "new"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Change is an immutable record of a detected difference. Only Status moves.
type Change struct {
	ID              string           `json:"id"`
	EntityID        string           `json:"entity_id"`
	EntityName      string           `json:"entity_name"`
	Source          string           `json:"source"`
	Type            ChangeType       `json:"type"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	DetectedAt      time.Time        `json:"detected_at"`
	Impact          Level            `json:"impact"`
	Confidence      int              `json:"confidence"`
	Before          float64          `json:"before"`
	After           float64          `json:"after"`
	BeforeText      string           `json:"before_text,omitempty"`
	AfterText       string           `json:"after_text,omitempty"`
	Analysis        ChangeAnalysis   `json:"analysis"`
	Recommendations []Recommendation `json:"recommendations"`
	Status          Status           `json:"status"`
}

// Delta returns After minus Before
func (c Change) Delta() float64 {
	return c.After - c.Before
}

// ChangeAnalysis is the derived reading of a change from our side of the market
type ChangeAnalysis struct {
	Sentiment       string   `json:"sentiment"` // "positive", "negative", "neutral" for us
	KeyTopics       []string `json:"key_topics"`
	SuggestedAction string   `json:"suggested_action"`
}

// Recommendation is a suggested response to a change or metric
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    Level  `json:"priority"`
	Effort      string `json:"effort"` // "low", "medium", "high"
}

// Severity of an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Escalates reports whether the severity goes to the escalation channel too
func (s Severity) Escalates() bool {
	return s == SeverityCritical || s == SeverityError
}

// Alert is an operator-facing notification derived from a change
type Alert struct {
	ID              string     `json:"id"`
	ChangeID        string     `json:"change_id,omitempty"`
	EntityID        string     `json:"entity_id,omitempty"`
	Severity        Severity   `json:"severity"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	CreatedAt       time.Time  `json:"created_at"`
	Status          Status     `json:"status"`
	EscalationLevel int        `json:"escalation_level"`
	AcknowledgedBy  string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// Digest is a periodic summary of detected activity
type Digest struct {
	GeneratedAt  time.Time              `json:"generated_at"`
	Period       string                 `json:"period"` // "daily" or "weekly"
	TotalChanges int                    `json:"total_changes"`
	Changes      []Change               `json:"changes"`
	ActiveAlerts int                    `json:"active_alerts"`
	Summary      map[string]interface{} `json:"summary"`
	Previous     *DigestComparison      `json:"previous,omitempty"`
}

// DigestComparison relates a digest to the one archived before it
type DigestComparison struct {
	GeneratedAt  time.Time `json:"generated_at"`
	TotalChanges int       `json:"total_changes"`
	Delta        int       `json:"delta"`
}
