// Package telemetry holds the Prometheus metrics exported on /metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const MetricsNamespace = "blackbox"

// Metrics is safe to use through a nil pointer; every method is a no-op then.
type Metrics struct {
	gatherer prometheus.Gatherer

	CacheLookups      *prometheus.CounterVec
	Submissions       *prometheus.CounterVec
	Relays            *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	SearchQueries     *prometheus.CounterVec
	ExportsRendered   *prometheus.CounterVec
	ContentFetchTotal *prometheus.CounterVec
}

// NewMetrics registers every metric on reg. A nil reg gets a private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	m := &Metrics{gatherer: reg}

	m.CacheLookups = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by cache and result",
	}, []string{"cache", "result"})

	m.Submissions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "contact",
		Name:      "submissions_total",
		Help:      "Contact submissions by outcome",
	}, []string{"result"})

	m.Relays = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "contact",
		Name:      "relays_total",
		Help:      "Notification relay attempts by relay and status",
	}, []string{"relay", "status"})

	m.HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})

	m.HTTPDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	m.SearchQueries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "search",
		Name:      "queries_total",
		Help:      "Search queries by backend",
	}, []string{"backend"})

	m.ExportsRendered = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "export",
		Name:      "rendered_total",
		Help:      "Article exports by format and result",
	}, []string{"format", "result"})

	m.ContentFetchTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "content",
		Name:      "fetch_total",
		Help:      "Upstream content fetches by operation and result",
	}, []string{"operation", "result"})

	return m
}

func (m *Metrics) CacheLookup(cache, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) SubmissionRecorded(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) RelayRecorded(relay, status string) {
	if m == nil {
		return
	}
	m.Relays.WithLabelValues(relay, status).Inc()
}

func (m *Metrics) RequestObserved(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) SearchServed(backend string) {
	if m == nil {
		return
	}
	m.SearchQueries.WithLabelValues(backend).Inc()
}

func (m *Metrics) ExportRendered(format, result string) {
	if m == nil {
		return
	}
	m.ExportsRendered.WithLabelValues(format, result).Inc()
}

func (m *Metrics) ContentFetched(operation, result string) {
	if m == nil {
		return
	}
	m.ContentFetchTotal.WithLabelValues(operation, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
