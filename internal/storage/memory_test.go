package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mozawave/market-watch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func TestMemoryEntityStore(t *testing.T) {
	store := NewMemoryEntityStore()

	require.Error(t, store.Save(models.TrackedEntity{}))
	require.NoError(t, store.Save(models.TrackedEntity{ID: "a", Kind: models.KindCompetitor, Active: true}))
	require.NoError(t, store.Save(models.TrackedEntity{ID: "b", Kind: models.KindCompetitor}))
	require.NoError(t, store.Save(models.TrackedEntity{ID: "c", Kind: models.KindReputationProfile, Active: true}))

	assert.Len(t, store.List(""), 3)
	assert.Len(t, store.List(models.KindCompetitor), 2)

	active := store.Active(models.KindCompetitor)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].ID)

	updated, err := store.Update("a", func(e *models.TrackedEntity) error {
		e.ThreatLevel = models.LevelHigh
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.LevelHigh, updated.ThreatLevel)

	_, err = store.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemorySnapshotStore_CopiesServices(t *testing.T) {
	store := NewMemorySnapshotStore()

	_, ok := store.Get("a", "google")
	assert.False(t, ok)

	services := []string{"delivery"}
	store.Put(models.SourceSnapshot{EntityID: "a", Source: "google", Services: services})
	services[0] = "mutated"

	snap, ok := store.Get("a", "google")
	require.True(t, ok)
	assert.Equal(t, []string{"delivery"}, snap.Services)
}

func TestMemoryChangeLog(t *testing.T) {
	log := NewMemoryChangeLog()

	for i, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, log.Append(models.Change{
			ID:         id,
			EntityID:   "e1",
			DetectedAt: base.Add(time.Duration(i) * time.Hour),
			Status:     models.StatusNew,
		}))
	}
	require.NoError(t, log.Append(models.Change{ID: "c4", EntityID: "e2", DetectedAt: base}))

	assert.Error(t, log.Append(models.Change{ID: "c1"}), "duplicate ids are rejected")

	recent := log.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "c4", recent[0].ID)
	assert.Equal(t, "c3", recent[1].ID)
	assert.Len(t, log.Recent(0), 4)

	since := log.Since("e1", base.Add(time.Hour))
	require.Len(t, since, 2)
	assert.Equal(t, "c2", since[0].ID)
	assert.Len(t, log.Since("", base), 4)

	changed, err := log.SetStatus("c2", models.StatusAcknowledged)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, changed.Status)

	_, err = log.SetStatus("nope", models.StatusResolved)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryAlertStore_Active(t *testing.T) {
	store := NewMemoryAlertStore()
	require.NoError(t, store.Add(models.Alert{ID: "a1", Status: models.StatusNew}))
	require.NoError(t, store.Add(models.Alert{ID: "a2", Status: models.StatusNew}))

	_, err := store.Update("a1", func(a *models.Alert) error {
		a.Status = models.StatusResolved
		return nil
	})
	require.NoError(t, err)

	active := store.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "a2", active[0].ID)
	assert.Len(t, store.All(), 2)
}

func TestMemoryReviewStore_UpsertDedupesByExternalID(t *testing.T) {
	store := NewMemoryReviewStore()

	first, created := store.Upsert(models.Review{ID: "r1", Platform: "google", ExternalID: "g-1", PublishedAt: base})
	require.True(t, created)
	assert.Equal(t, "r1", first.ID)

	again, created := store.Upsert(models.Review{ID: "r2", Platform: "google", ExternalID: "g-1"})
	assert.False(t, created)
	assert.Equal(t, "r1", again.ID)

	_, created = store.Upsert(models.Review{ID: "r3", Platform: "yelp", ExternalID: "g-1", PublishedAt: base.Add(time.Hour)})
	assert.True(t, created)

	list := store.List("")
	require.Len(t, list, 2)
	assert.Equal(t, "r3", list[0].ID, "newest published first")
}

func TestMemoryReviewStore_FindByResponseID(t *testing.T) {
	store := NewMemoryReviewStore()
	store.Upsert(models.Review{ID: "r1"})

	_, err := store.Update("r1", func(r *models.Review) error {
		r.AIResponse = &models.AIResponse{ID: "resp-1", ReviewID: "r1"}
		return nil
	})
	require.NoError(t, err)

	found, err := store.FindByResponseID("resp-1")
	require.NoError(t, err)
	assert.Equal(t, "r1", found.ID)

	found.AIResponse.Content = "mutated outside the store"
	again, _ := store.Get("r1")
	assert.Empty(t, again.AIResponse.Content)

	_, err = store.FindByResponseID("resp-2")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryMetricsStore_History(t *testing.T) {
	store := NewMemoryMetricsStore(3)

	_, ok := store.Latest("org")
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		store.Append(models.BusinessMetrics{OrgID: "org", Revenue: models.RevenueMetrics{Total: float64(i)}})
	}

	latest, ok := store.Latest("org")
	require.True(t, ok)
	assert.Equal(t, 4.0, latest.Revenue.Total)

	history := store.History("org", 0)
	require.Len(t, history, 3)
	assert.Equal(t, 2.0, history[0].Revenue.Total)
	assert.Len(t, store.History("org", 2), 2)
}

func TestArchiveJSON(t *testing.T) {
	archive := NewMemoryArchive()
	ctx := context.Background()

	name, err := ArchiveJSON(ctx, archive, "changes", base, []string{"x"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "changes/2026-05-04-10-00-00.000000000-"), name)
	assert.True(t, strings.HasSuffix(name, ".json"), name)

	data, err := archive.Retrieve(ctx, name)
	require.NoError(t, err)
	assert.JSONEq(t, `["x"]`, string(data))

	_, err = archive.Retrieve(ctx, "changes/missing.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestArchiveJSON_SameInstantKeepsBoth(t *testing.T) {
	archive := NewMemoryArchive()
	ctx := context.Background()

	first, err := ArchiveJSON(ctx, archive, "changes", base, []string{"cycle-1"})
	require.NoError(t, err)
	second, err := ArchiveJSON(ctx, archive, "changes", base, []string{"cycle-2"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	names, err := archive.List(ctx, "changes/")
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestLatestJSON(t *testing.T) {
	archive := NewMemoryArchive()
	ctx := context.Background()

	var got []string
	_, err := LatestJSON(ctx, archive, "digests", &got)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = ArchiveJSON(ctx, archive, "digests", base.Add(time.Hour), []string{"newer"})
	require.NoError(t, err)
	_, err = ArchiveJSON(ctx, archive, "digests", base, []string{"older"})
	require.NoError(t, err)
	_, err = ArchiveJSON(ctx, archive, "changes", base.Add(2*time.Hour), []string{"other prefix"})
	require.NoError(t, err)

	name, err := LatestJSON(ctx, archive, "digests", &got)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "digests/2026-05-04-11-00-00"), name)
	assert.Equal(t, []string{"newer"}, got)

	require.NoError(t, archive.Store(ctx, "digests/9999.json", []byte("{broken")))
	_, err = LatestJSON(ctx, archive, "digests", &got)
	assert.Error(t, err)
}
