package detection

import (
	"testing"
	"time"

	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func changeAt(id string, impact models.Level, at time.Time) models.Change {
	return models.Change{ID: id, EntityID: "pizza-co", Impact: impact, DetectedAt: at}
}

func TestThreatLevel_Bands(t *testing.T) {
	tests := []struct {
		name    string
		impacts []models.Level
		want    models.Level
	}{
		{"no changes", nil, models.LevelLow},
		{"only low and medium", []models.Level{models.LevelLow, models.LevelMedium, models.LevelMedium}, models.LevelLow},
		{"one high", []models.Level{models.LevelHigh}, models.LevelMedium},
		{"high and critical", []models.Level{models.LevelHigh, models.LevelCritical}, models.LevelHigh},
		{"three serious", []models.Level{models.LevelHigh, models.LevelHigh, models.LevelCritical}, models.LevelCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var changes []models.Change
			for i, impact := range tt.impacts {
				changes = append(changes, changeAt(string(rune('a'+i)), impact, now.Add(-time.Hour)))
			}
			assert.Equal(t, tt.want, ThreatLevel(changes, now))
		})
	}
}

func TestClassifier_ThreatDropsWhenChangesAgeOut(t *testing.T) {
	fake := clock.NewFake(now)
	changes := storage.NewMemoryChangeLog()
	entities := storage.NewMemoryEntityStore()
	require.NoError(t, entities.Save(pizzaCo()))

	require.NoError(t, changes.Append(changeAt("old", models.LevelHigh, now.Add(-6*24*time.Hour))))
	require.NoError(t, changes.Append(changeAt("mid", models.LevelCritical, now.Add(-2*24*time.Hour))))
	require.NoError(t, changes.Append(changeAt("new", models.LevelHigh, now.Add(-time.Hour))))

	classifier := NewClassifier(changes, entities, fake)

	entity, err := classifier.Recompute("pizza-co")
	require.NoError(t, err)
	assert.Equal(t, models.LevelCritical, entity.ThreatLevel)
	assert.Equal(t, models.ActivityLow, entity.ActivityLevel)

	fake.Advance(2 * 24 * time.Hour)
	entity, err = classifier.Recompute("pizza-co")
	require.NoError(t, err)
	assert.Equal(t, models.LevelHigh, entity.ThreatLevel, "the oldest change left the 7-day window")

	fake.Advance(10 * 24 * time.Hour)
	entity, err = classifier.Recompute("pizza-co")
	require.NoError(t, err)
	assert.Equal(t, models.LevelLow, entity.ThreatLevel)
	assert.Equal(t, models.ActivityQuiet, entity.ActivityLevel)

	stored, err := entities.Get("pizza-co")
	require.NoError(t, err)
	assert.Equal(t, models.LevelLow, stored.ThreatLevel, "threat level is written back to the entity")
}

func TestActivityLevel(t *testing.T) {
	var changes []models.Change
	for i := 0; i < 10; i++ {
		changes = append(changes, changeAt(string(rune('a'+i)), models.LevelLow, now.Add(-time.Duration(i)*time.Hour)))
	}
	assert.Equal(t, models.ActivityHigh, ActivityLevel(changes, now))
	assert.Equal(t, models.ActivityMedium, ActivityLevel(changes[:4], now))
	assert.Equal(t, models.ActivityQuiet, ActivityLevel(nil, now))
}
