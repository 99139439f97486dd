package detection

import (
	"math"
	"time"

	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/storage"
)

// ThreatWindow is the trailing window threat and activity levels are computed over
const ThreatWindow = 7 * 24 * time.Hour

// RatingImpact bands the absolute rating delta
func RatingImpact(delta float64) models.Level {
	d := math.Abs(roundDelta(delta))
	switch {
	case d >= 1.0:
		return models.LevelCritical
	case d >= 0.5:
		return models.LevelHigh
	case d >= 0.2:
		return models.LevelMedium
	}
	return models.LevelLow
}

// PricingImpact bands the absolute price-tier delta
func PricingImpact(delta int) models.Level {
	d := abs(delta)
	switch {
	case d >= 3:
		return models.LevelCritical
	case d >= 2:
		return models.LevelHigh
	case d >= 1:
		return models.LevelMedium
	}
	return models.LevelLow
}

// ReviewVolumeImpact bands the number of new reviews
func ReviewVolumeImpact(delta int) models.Level {
	switch {
	case delta >= 50:
		return models.LevelHigh
	case delta >= 10:
		return models.LevelMedium
	}
	return models.LevelLow
}

// FollowerImpact bands the absolute follower delta
func FollowerImpact(delta int) models.Level {
	if abs(delta) > 500 {
		return models.LevelHigh
	}
	return models.LevelMedium
}

// PostImpact bands the growth in post count
func PostImpact(delta int) models.Level {
	if delta > 25 {
		return models.LevelMedium
	}
	return models.LevelLow
}

// ServiceImpact rates a service change: dropping an offering is a bigger signal
func ServiceImpact(added, removed int) models.Level {
	if removed > 0 {
		return models.LevelHigh
	}
	return models.LevelMedium
}

// ThreatLevel counts high and critical changes inside the trailing window.
// It filters the log on every call instead of keeping a running score.
func ThreatLevel(changes []models.Change, now time.Time) models.Level {
	cutoff := now.Add(-ThreatWindow)
	serious := 0
	for _, c := range changes {
		if c.DetectedAt.Before(cutoff) || c.DetectedAt.After(now) {
			continue
		}
		if c.Impact.AtLeast(models.LevelHigh) {
			serious++
		}
	}

	switch {
	case serious >= 3:
		return models.LevelCritical
	case serious >= 2:
		return models.LevelHigh
	case serious >= 1:
		return models.LevelMedium
	}
	return models.LevelLow
}

// ActivityLevel counts every change inside the trailing window
func ActivityLevel(changes []models.Change, now time.Time) models.ActivityLevel {
	cutoff := now.Add(-ThreatWindow)
	n := 0
	for _, c := range changes {
		if !c.DetectedAt.Before(cutoff) && !c.DetectedAt.After(now) {
			n++
		}
	}

	switch {
	case n >= 10:
		return models.ActivityHigh
	case n >= 4:
		return models.ActivityMedium
	case n >= 1:
		return models.ActivityLow
	}
	return models.ActivityQuiet
}

// Classifier recomputes entity threat levels from the change log
type Classifier struct {
	changes  storage.ChangeLog
	entities storage.EntityStore
	clock    clock.Clock
}

func NewClassifier(changes storage.ChangeLog, entities storage.EntityStore, c clock.Clock) *Classifier {
	return &Classifier{changes: changes, entities: entities, clock: c}
}

// Recompute refreshes ThreatLevel and ActivityLevel on the stored entity
func (c *Classifier) Recompute(entityID string) (models.TrackedEntity, error) {
	now := c.clock.Now()
	recent := c.changes.Since(entityID, now.Add(-ThreatWindow))

	return c.entities.Update(entityID, func(e *models.TrackedEntity) error {
		e.ThreatLevel = ThreatLevel(recent, now)
		e.ActivityLevel = ActivityLevel(recent, now)
		return nil
	})
}
