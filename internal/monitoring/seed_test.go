package monitoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mozawave/market-watch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entities.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestService_LoadEntities(t *testing.T) {
	h := newHarness(t)
	path := writeFile(t, `[
		{"id": "pizza-co", "name": "Pizza Co", "kind": "competitor", "location": "Austin, TX"},
		{"id": "our-diner", "name": "Our Diner", "kind": "reputation_profile", "sources": ["google", "yelp"]}
	]`)

	loaded, err := h.service.LoadEntities(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	profile, err := h.service.GetEntity("our-diner")
	require.NoError(t, err)
	assert.Equal(t, models.KindReputationProfile, profile.Kind)
	assert.Equal(t, []string{"google", "yelp"}, profile.Sources)

	loaded, err = h.service.LoadEntities(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded, "reloading skips registered entities")
}

func TestService_LoadEntitiesErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.LoadEntities(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = h.service.LoadEntities(writeFile(t, `{"id": "not-a-list"}`))
	assert.Error(t, err)

	loaded, err := h.service.LoadEntities(writeFile(t, `[
		{"id": "pizza-co", "name": "Pizza Co", "kind": "competitor"},
		{"id": "mystery", "name": "Mystery", "kind": "supplier"}
	]`))
	assert.Error(t, err)
	assert.Equal(t, 1, loaded)
}
