package models

import "time"

// EntityKind distinguishes competitors from our own reputation profiles
type EntityKind string

const (
	KindCompetitor        EntityKind = "competitor"
	KindReputationProfile EntityKind = "reputation_profile"
)

// Level is shared by change impact and entity threat level
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Rank orders levels so thresholds can be compared
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	case LevelCritical:
		return 4
	}
	return 0
}

// AtLeast reports whether l is at or above other
func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

// ActivityLevel describes how busy an entity has been in the trailing window
type ActivityLevel string

const (
	ActivityQuiet  ActivityLevel = "quiet"
	ActivityLow    ActivityLevel = "low"
	ActivityMedium ActivityLevel = "medium"
	ActivityHigh   ActivityLevel = "high"
)

// TrackedEntity is a competitor or a reputation profile under observation
type TrackedEntity struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Kind          EntityKind    `json:"kind"`
	OrgID         string        `json:"org_id,omitempty"`
	Category      string        `json:"category"`
	Location      string        `json:"location"`
	Website       string        `json:"website,omitempty"`
	Sources       []string      `json:"sources"` // "google", "yelp", "facebook", "instagram", "news", "places"
	ThreatLevel   Level         `json:"threat_level"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	LastScannedAt *time.Time    `json:"last_scanned_at,omitempty"`
	LastSyncedAt  *time.Time    `json:"last_synced_at,omitempty"`
	Active        bool          `json:"active"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Monitors reports whether the entity is configured for source
func (e TrackedEntity) Monitors(source string) bool {
	for _, s := range e.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// SourceSnapshot is the last observed state of one entity on one source
type SourceSnapshot struct {
	EntityID    string    `json:"entity_id"`
	Source      string    `json:"source"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	PriceTier   int       `json:"price_tier"`
	Followers   int       `json:"followers"`
	PostCount   int       `json:"post_count"`
	Services    []string  `json:"services,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}
