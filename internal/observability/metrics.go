// Package observability provides Prometheus metrics for the scraping client,
// competitor discovery and the product store.
package observability

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// MetricsNamespace is the namespace for all compscout metrics.
	MetricsNamespace = "compscout"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Scraping API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIRetriesTotal    *prometheus.CounterVec

	// Discovery metrics
	DiscoveryRunsTotal     *prometheus.CounterVec
	DiscoveryDuration      prometheus.Histogram
	DiscoveryCandidates    prometheus.Histogram
	CompetitorsStoredTotal prometheus.Counter
	DetailFailuresTotal    prometheus.Counter
	SearchFailuresTotal    prometheus.Counter

	// Store metrics
	StoreOperationsTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewMetrics creates a private registry and registers all metrics on it,
// together with the Go runtime and process collectors.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := NewMetricsWith(reg, reg)
	m.logger = logger.With("component", "metrics")
	return m
}

// NewMetricsWith registers all metrics on reg. gatherer backs Handler and may be nil.
func NewMetricsWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	factory := promauto.With(reg)
	m := &Metrics{gatherer: gatherer, logger: slog.Default()}

	m.initAPIMetrics(factory)
	m.initDiscoveryMetrics(factory)
	m.initStoreMetrics(factory)

	return m
}

func (m *Metrics) initAPIMetrics(factory promauto.Factory) {
	m.APIRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total scraping API calls by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	m.APIRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of scraping API calls including retries",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9), // 0.25s to ~64s
		},
		[]string{"op"},
	)

	m.APIRetriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "api",
			Name:      "retries_total",
			Help:      "Total retried scraping API attempts",
		},
		[]string{"op"},
	)
}

func (m *Metrics) initDiscoveryMetrics(factory promauto.Factory) {
	m.DiscoveryRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "discovery",
			Name:      "runs_total",
			Help:      "Total competitor discovery runs by outcome",
		},
		[]string{"outcome"},
	)

	m.DiscoveryDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: "discovery",
			Name:      "run_duration_seconds",
			Help:      "Duration of competitor discovery runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
		},
	)

	m.DiscoveryCandidates = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: "discovery",
			Name:      "candidates",
			Help:      "Deduplicated candidates per discovery run",
			Buckets:   prometheus.LinearBuckets(0, 5, 11),
		},
	)

	m.CompetitorsStoredTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "discovery",
			Name:      "competitors_stored_total",
			Help:      "Total competitor records upserted",
		},
	)

	m.DetailFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "discovery",
			Name:      "detail_failures_total",
			Help:      "Total candidate detail fetches that failed and were skipped",
		},
	)

	m.SearchFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "discovery",
			Name:      "search_failures_total",
			Help:      "Total search calls that failed during candidate aggregation",
		},
	)
}

func (m *Metrics) initStoreMetrics(factory promauto.Factory) {
	m.StoreOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total store mutations by backend and operation",
		},
		[]string{"backend", "op"},
	)
}

// RecordAPICall records one logical API call and the retries it needed.
func (m *Metrics) RecordAPICall(op string, attempts int, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.APIRequestsTotal.WithLabelValues(op, outcome).Inc()
	m.APIRequestDuration.WithLabelValues(op).Observe(d.Seconds())
	if attempts > 1 {
		m.APIRetriesTotal.WithLabelValues(op).Add(float64(attempts - 1))
	}
}

// RecordDiscovery records the totals of a finished discovery run.
func (m *Metrics) RecordDiscovery(outcome string, d time.Duration, candidates, stored, detailFailures, searchFailures int) {
	if m == nil {
		return
	}
	m.DiscoveryRunsTotal.WithLabelValues(outcome).Inc()
	m.DiscoveryDuration.Observe(d.Seconds())
	m.DiscoveryCandidates.Observe(float64(candidates))
	m.CompetitorsStoredTotal.Add(float64(stored))
	m.DetailFailuresTotal.Add(float64(detailFailures))
	m.SearchFailuresTotal.Add(float64(searchFailures))
}

// RecordStoreOp counts a store mutation.
func (m *Metrics) RecordStoreOp(backend, op string) {
	if m == nil {
		return
	}
	m.StoreOperationsTotal.WithLabelValues(backend, op).Inc()
}

// Handler serves the registered metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{ErrorLog: slogErrorLog{m.logger}})
}

// slogErrorLog adapts slog to promhttp's Println-style error logger.
type slogErrorLog struct{ logger *slog.Logger }

func (l slogErrorLog) Println(v ...interface{}) {
	l.logger.Error("metrics handler error", "detail", v)
}
