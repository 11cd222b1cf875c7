package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics owns the server's private registry: request metrics
// plus the search-pipeline metrics recorded by the stream adapter.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	sessionsTotal      *prometheus.CounterVec
	eventsEmittedTotal *prometheus.CounterVec
	activeStreams      prometheus.Gauge
	enrichmentDuration *prometheus.HistogramVec
	sessionDuration    *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staygenie",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "staygenie",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "staygenie",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	sessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staygenie",
			Subsystem: "search",
			Name:      "sessions_total",
			Help:      "Total search sessions by entry point and outcome.",
		},
		[]string{"service", "endpoint", "outcome"},
	)
	eventsEmittedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staygenie",
			Subsystem: "search",
			Name:      "stream_events_total",
			Help:      "Total stream events written, by event type.",
		},
		[]string{"service", "type"},
	)
	activeStreams := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "staygenie",
			Subsystem:   "search",
			Name:        "active_streams",
			Help:        "Number of open event-stream sessions.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	enrichmentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "staygenie",
			Subsystem: "search",
			Name:      "enrichment_duration_seconds",
			Help:      "Per-hotel enrichment duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "result"},
	)
	sessionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "staygenie",
			Subsystem: "search",
			Name:      "session_duration_seconds",
			Help:      "Whole-session duration in seconds.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"service", "endpoint"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		sessionsTotal,
		eventsEmittedTotal,
		activeStreams,
		enrichmentDuration,
		sessionDuration,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		sessionsTotal:      sessionsTotal,
		eventsEmittedTotal: eventsEmittedTotal,
		activeStreams:      activeStreams,
		enrichmentDuration: enrichmentDuration,
		sessionDuration:    sessionDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) RecordRequest(service, method, path string, status int, duration time.Duration) {
	m.requestTotal.WithLabelValues(service, method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RequestStarted()  { m.requestInFlight.Inc() }
func (m *HTTPServerMetrics) RequestFinished() { m.requestInFlight.Dec() }

func (m *HTTPServerMetrics) RecordSession(service, endpoint, outcome string, duration time.Duration) {
	m.sessionsTotal.WithLabelValues(service, endpoint, outcome).Inc()
	m.sessionDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordStreamEvent(service, eventType string) {
	m.eventsEmittedTotal.WithLabelValues(service, eventType).Inc()
}

func (m *HTTPServerMetrics) StreamOpened() { m.activeStreams.Inc() }
func (m *HTTPServerMetrics) StreamClosed() { m.activeStreams.Dec() }

func (m *HTTPServerMetrics) RecordEnrichment(service, result string, duration time.Duration) {
	m.enrichmentDuration.WithLabelValues(service, result).Observe(duration.Seconds())
}
