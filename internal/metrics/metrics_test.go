package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	c.SourceScanned("google")
	c.SourceScanned("google")
	c.FetchFailed("yelp")
	c.ChangeDetected("pricing", "high")
	c.AlertCreated("warning")
	c.NotificationFailed("slack")
	c.ReviewIngested("negative")
	c.AIResponse("generated")
	c.ObserveCycle("scan", 250*time.Millisecond)
	c.SetTrackedEntities("competitor", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.scans.WithLabelValues("google")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchFailures.WithLabelValues("yelp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.changes.WithLabelValues("pricing", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifyFailures.WithLabelValues("slack")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.trackedEntities.WithLabelValues("competitor")))
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.SourceScanned("google")
		c.AlertCreated("critical")
		c.ObserveCycle("scan", time.Second)
	})
}

func TestCollector_InstrumentHandler(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	handler := c.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), func(*http.Request) string { return "/api/reviews/{id}" })

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reviews/42", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requestTotal.WithLabelValues("GET", "/api/reviews/{id}", "418")))

	server := httptest.NewServer(c.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "marketwatch_http_requests_total")
}
