// Package metrics exposes Prometheus collectors for the rating cascade and
// the HTTP boundary. Collectors live on their own registry so tests can build
// as many instances as they like.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pagenotes"

// Metrics groups every collector the server records to. All methods are safe
// on a nil receiver so callers never need to check.
type Metrics struct {
	registry *prometheus.Registry

	ratingWrites      *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	cascadeDuration   *prometheus.HistogramVec
	cascadeFailures   *prometheus.CounterVec
	usersRecomputed   prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers all collectors, plus the Go runtime and process collectors,
// on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ratingWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratings",
			Name:      "writes_total",
			Help:      "Rating ledger writes by outcome (created, updated, deleted, noop)",
		}, []string{"outcome"}),
		statusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notes",
			Name:      "status_transitions_total",
			Help:      "Note status transitions",
		}, []string{"from", "to"}),
		cascadeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "duration_seconds",
			Help:      "Time spent in the recompute cascade, transaction included",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"trigger"}),
		cascadeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "failures_total",
			Help:      "Cascades rolled back",
		}, []string{"trigger"}),
		usersRecomputed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "users_recomputed_total",
			Help:      "Reputation and rating impact recomputes",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RatingWrite(outcome string) {
	if m == nil {
		return
	}
	m.ratingWrites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// ObserveCascade records one cascade run; failed runs also bump the failure
// counter.
func (m *Metrics) ObserveCascade(trigger string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.cascadeDuration.WithLabelValues(trigger).Observe(d.Seconds())
	if err != nil {
		m.cascadeFailures.WithLabelValues(trigger).Inc()
	}
}

func (m *Metrics) UsersRecomputed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.usersRecomputed.Add(float64(n))
}

func (m *Metrics) ObserveHTTP(method, route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
