package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingestion outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeParse    = "parse_error"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// caching and the result pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec

	ingestions       *prometheus.CounterVec
	rows             *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	recomputeLatency *prometheus.HistogramVec
	deliveryFailures *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	ingestions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_ingestions_total",
		Help: "Score file ingestions by outcome",
	}, []string{"outcome"})

	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_rows_total",
		Help: "Ingested score rows by disposition",
	}, []string{"disposition"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_submission_transitions_total",
		Help: "Submission status transitions",
	}, []string{"status"})

	recomputeLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "results_cgpa_recompute_seconds",
		Help:    "Duration of per student CGPA recomputation",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	deliveryFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_delivery_failures_total",
		Help: "Notifications and emails that could not be delivered",
	}, []string{"channel"})

	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_deliveries_total",
		Help: "Notifications and emails delivered",
	}, []string{"channel"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		ingestions, rows, transitions, recomputeLatency, deliveryFailures, deliveries, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheLookups:     cacheLookups,
		ingestions:       ingestions,
		rows:             rows,
		transitions:      transitions,
		recomputeLatency: recomputeLatency,
		deliveryFailures: deliveryFailures,
		deliveries:       deliveries,
	}
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordIngestion counts one ingestion attempt.
func (m *MetricsService) RecordIngestion(outcome string) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(outcome).Inc()
}

// RecordRows counts rows of an accepted ingestion by disposition.
func (m *MetricsService) RecordRows(matched, unmatched, discarded int) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues("matched").Add(float64(matched))
	m.rows.WithLabelValues("unmatched").Add(float64(unmatched))
	m.rows.WithLabelValues("discarded").Add(float64(discarded))
}

// RecordTransition counts a submission decision.
func (m *MetricsService) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// ObserveRecompute records one CGPA recomputation.
func (m *MetricsService) ObserveRecompute(err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.recomputeLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordDelivery counts a delivery attempt outcome for a channel.
func (m *MetricsService) RecordDelivery(channel string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.deliveryFailures.WithLabelValues(channel).Inc()
		return
	}
	m.deliveries.WithLabelValues(channel).Inc()
}
