package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/config"
	"github.com/mozawave/market-watch/internal/metrics"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	server *httptest.Server
	stores monitoring.Stores
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	collector, err := metrics.New()
	require.NoError(t, err)

	cfg := &config.Config{
		OrgID:            "default",
		ReportSchedule:   "weekly",
		FetchTimeout:     time.Second,
		NotifyTimeout:    time.Second,
		ScanConcurrency:  1,
		PositiveMinChars: 80,
		InsightWindow:    30 * 24 * time.Hour,
	}
	stores := monitoring.NewMemoryStores(10)
	service := monitoring.NewService(cfg, stores, monitoring.Options{
		Clock:   clock.NewFake(now),
		Metrics: collector,
	})

	server := httptest.NewServer(NewRouter(service, collector))
	t.Cleanup(server.Close)
	return &fixture{server: server, stores: stores}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "healthy", payload["status"])
}

func TestEntities(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "POST", "/api/entities", map[string]interface{}{
		"id":      "pizza-co",
		"name":    "Pizza Co",
		"kind":    "competitor",
		"sources": []string{"google"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created models.TrackedEntity
	require.NoError(t, json.Unmarshal(body, &created))
	assert.True(t, created.Active)
	assert.Equal(t, "default", created.OrgID)

	resp, _ = f.do(t, "POST", "/api/entities", map[string]string{"id": "pizza-co", "name": "Pizza Co", "kind": "competitor"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, "POST", "/api/entities", map[string]string{"name": "", "kind": "competitor"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, "POST", "/api/entities", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, "GET", "/api/competitors", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var competitors []models.TrackedEntity
	require.NoError(t, json.Unmarshal(body, &competitors))
	require.Len(t, competitors, 1)
	assert.Equal(t, "Pizza Co", competitors[0].Name)

	resp, _ = f.do(t, "GET", "/api/entities/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, "POST", "/api/entities/pizza-co/deactivate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, "POST", "/api/entities/pizza-co/deactivate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestChanges(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, f.stores.Changes.Append(models.Change{ID: id, DetectedAt: now}))
	}

	resp, body := f.do(t, "GET", "/api/changes?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var changes []models.Change
	require.NoError(t, json.Unmarshal(body, &changes))
	require.Len(t, changes, 2)
	assert.Equal(t, "c3", changes[0].ID)

	resp, _ = f.do(t, "GET", "/api/changes?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAlertLifecycle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.stores.Alerts.Add(models.Alert{
		ID:       "a1",
		Severity: models.SeverityWarning,
		Title:    "Pizza Co raised prices",
		Status:   models.StatusNew,
	}))

	resp, body := f.do(t, "GET", "/api/alerts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var alerts []models.Alert
	require.NoError(t, json.Unmarshal(body, &alerts))
	assert.Len(t, alerts, 1)

	resp, body = f.do(t, "POST", "/api/alerts/a1/ack", map[string]string{"by": "ops"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var acked models.Alert
	require.NoError(t, json.Unmarshal(body, &acked))
	assert.Equal(t, models.StatusAcknowledged, acked.Status)
	assert.Equal(t, "ops", acked.AcknowledgedBy)

	resp, _ = f.do(t, "POST", "/api/alerts/a1/ack", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, "POST", "/api/alerts/a1/resolve", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, "POST", "/api/alerts/a1/resolve", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, "POST", "/api/alerts/missing/resolve", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReviewResponses(t *testing.T) {
	f := newFixture(t)
	f.stores.Reviews.Upsert(models.Review{
		ID:          "r1",
		Platform:    "google",
		ExternalID:  "g-1",
		Rating:      2,
		Content:     "Cold food and a long wait.",
		Sentiment:   models.SentimentNegative,
		Status:      models.ReviewNew,
		PublishedAt: now,
	})

	resp, body := f.do(t, "POST", "/api/reviews/r1/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var drafted models.Review
	require.NoError(t, json.Unmarshal(body, &drafted))
	require.NotNil(t, drafted.AIResponse)
	assert.Equal(t, models.ReviewAIResponded, drafted.Status)

	resp, _ = f.do(t, "POST", "/api/reviews/r1/generate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = f.do(t, "GET", "/api/reviews/pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending []models.Review
	require.NoError(t, json.Unmarshal(body, &pending))
	assert.Len(t, pending, 1)

	resp, body = f.do(t, "POST", "/api/responses/"+drafted.AIResponse.ID+"/approve", map[string]string{"by": "manager"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var approved models.Review
	require.NoError(t, json.Unmarshal(body, &approved))
	assert.Equal(t, models.ReviewResponded, approved.Status)

	resp, _ = f.do(t, "POST", "/api/responses/"+drafted.AIResponse.ID+"/reject", map[string]string{"by": "manager"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, "POST", "/api/reviews/r1/respond", map[string]string{"by": "manager", "text": "Thanks"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, "POST", "/api/responses/unknown/approve", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRespondManually(t *testing.T) {
	f := newFixture(t)
	f.stores.Reviews.Upsert(models.Review{
		ID:         "r2",
		Platform:   "yelp",
		ExternalID: "y-1",
		Rating:     4,
		Content:    "Nice.",
		Sentiment:  models.SentimentPositive,
		Status:     models.ReviewNew,
	})

	resp, _ := f.do(t, "POST", "/api/reviews/r2/respond", map[string]string{"by": "owner", "text": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := f.do(t, "POST", "/api/reviews/r2/respond", map[string]string{"by": "owner", "text": "Thanks for visiting!"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var review models.Review
	require.NoError(t, json.Unmarshal(body, &review))
	assert.Equal(t, "Thanks for visiting!", review.Response)
	assert.Equal(t, "owner", review.RespondedBy)
}

func TestReadModels(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "GET", "/api/reputation/default", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var business models.BusinessMetrics
	require.NoError(t, json.Unmarshal(body, &business))
	assert.Equal(t, "default", business.OrgID)

	resp, body = f.do(t, "GET", "/api/dashboard/default/user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var overview models.DashboardOverview
	require.NoError(t, json.Unmarshal(body, &overview))
	assert.Equal(t, "user-1", overview.UserID)
	assert.Len(t, overview.Widgets, 5)

	resp, _ = f.do(t, "GET", "/api/insights/default", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = f.do(t, "GET", "/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status monitoring.Status
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "template", status.Responder)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, "GET", "/api/entities/missing", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := f.do(t, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `marketwatch_http_requests_total{method="GET",path="/api/entities/{id}",status="404"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, "GET", "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, "DELETE", "/api/competitors", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
