package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketwatch"

// Collector exposes Prometheus metrics for the pipeline and the HTTP API.
// All recording methods are safe to call on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	scans           *prometheus.CounterVec
	fetchFailures   *prometheus.CounterVec
	changes         *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	notifyFailures  *prometheus.CounterVec
	reviewsIngested *prometheus.CounterVec
	aiResponses     *prometheus.CounterVec
	cycleDuration   *prometheus.HistogramVec
	trackedEntities *prometheus.GaugeVec
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

// New constructs a collector on a private registry
func New() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_scans_total",
			Help:      "Total number of source snapshot fetches (count)",
		}, []string{"source"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_failures_total",
			Help:      "Total number of failed source snapshot fetches (count)",
		}, []string{"source"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_detected_total",
			Help:      "Total number of detected changes (count)",
		}, []string{"type", "impact"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Total number of alerts created (count)",
		}, []string{"severity"}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Total number of failed notification deliveries (count)",
		}, []string{"channel"}),
		reviewsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_ingested_total",
			Help:      "Total number of new reviews ingested (count)",
		}, []string{"sentiment"}),
		aiResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_responses_total",
			Help:      "AI drafted responses by outcome (count)",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of periodic cycles in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"cycle"}),
		trackedEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_entities",
			Help:      "Number of active tracked entities (count)",
		}, []string{"kind"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "path", "status"}),
	}

	for _, collector := range []prometheus.Collector{
		c.scans, c.fetchFailures, c.changes, c.alerts, c.notifyFailures,
		c.reviewsIngested, c.aiResponses, c.cycleDuration, c.trackedEntities,
		c.requestDuration, c.requestTotal,
	} {
		if err := c.registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Registry exposes the private registry, mainly for tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) SourceScanned(source string) {
	if c == nil {
		return
	}
	c.scans.WithLabelValues(source).Inc()
}

func (c *Collector) FetchFailed(source string) {
	if c == nil {
		return
	}
	c.fetchFailures.WithLabelValues(source).Inc()
}

func (c *Collector) ChangeDetected(changeType, impact string) {
	if c == nil {
		return
	}
	c.changes.WithLabelValues(changeType, impact).Inc()
}

func (c *Collector) AlertCreated(severity string) {
	if c == nil {
		return
	}
	c.alerts.WithLabelValues(severity).Inc()
}

func (c *Collector) NotificationFailed(channel string) {
	if c == nil {
		return
	}
	c.notifyFailures.WithLabelValues(channel).Inc()
}

func (c *Collector) ReviewIngested(sentiment string) {
	if c == nil {
		return
	}
	c.reviewsIngested.WithLabelValues(sentiment).Inc()
}

// AIResponse records a draft lifecycle event: generated, failed, approved or rejected
func (c *Collector) AIResponse(outcome string) {
	if c == nil {
		return
	}
	c.aiResponses.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveCycle(cycle string, d time.Duration) {
	if c == nil {
		return
	}
	c.cycleDuration.WithLabelValues(cycle).Observe(d.Seconds())
}

func (c *Collector) SetTrackedEntities(kind string, n int) {
	if c == nil {
		return
	}
	c.trackedEntities.WithLabelValues(kind).Set(float64(n))
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
// pathLabel maps a request to a low-cardinality label such as the route template.
func (c *Collector) InstrumentHandler(next http.Handler, pathLabel func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if pathLabel != nil {
			path = pathLabel(r)
		}
		status := strconv.Itoa(rw.status)

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
