// internal/app/system/telemetry/metrics.go
// Package telemetry exposes Prometheus metrics for fetches, loaded records
// and the shared dashboard aggregates.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/stratametrics/internal/app/system/entitymetrics"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

const namespace = "stratametrics"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	records       *prometheus.GaugeVec
	aggregate     *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates the metrics on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Domain fetches by kind and outcome.",
		}, []string{"kind", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of domain fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Records currently loaded per kind.",
		}, []string{"kind"}),
		aggregate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aggregate",
			Help:      "Latest aggregate for the shared selection (bucket is count, active or inactive).",
		}, []string{"kind", "bucket"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.fetchTotal,
		m.fetchDuration,
		m.records,
		m.aggregate,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the exposition format for the private registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FetchDone records one fetch attempt for kind.
func (m *Metrics) FetchDone(kind entity.Kind, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.fetchTotal.WithLabelValues(string(kind), outcome).Inc()
	m.fetchDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
}

// RecordsLoaded implements dashboard.Observer.
func (m *Metrics) RecordsLoaded(kind entity.Kind, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(string(kind)).Set(float64(n))
}

// Recomputed implements dashboard.Observer.
func (m *Metrics) Recomputed(kind entity.Kind, res entitymetrics.Result) {
	if m == nil {
		return
	}
	k := string(kind)
	m.aggregate.WithLabelValues(k, "count").Set(float64(res.Count))
	m.aggregate.WithLabelValues(k, "active").Set(float64(res.Breakdown.Active))
	m.aggregate.WithLabelValues(k, "inactive").Set(float64(res.Breakdown.Inactive))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Middleware counts requests by their chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
