// Package metrics exposes Prometheus instrumentation for the search client.
// Pass a *Metrics in the client Config to enable it; a nil metrics field
// disables recording entirely.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	SearchesTotal    *prometheus.CounterVec
	SearchDuration   *prometheus.HistogramVec
	SearchesInFlight prometheus.Gauge

	RetriesTotal       *prometheus.CounterVec
	RateLimitHitsTotal prometheus.Counter

	PagesFetchedTotal prometheus.Counter

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	QuotaRejectionsTotal prometheus.Counter
}

// New registers the collectors on the default Prometheus registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on reg. Tests pass their own registry so
// repeated registration does not panic.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serp_client_searches_total",
				Help: "Total number of search requests by outcome",
			},
			[]string{"status"},
		),
		SearchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "serp_client_search_duration_seconds",
				Help:    "Search request duration in seconds, retries included",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{},
		),
		SearchesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "serp_client_searches_in_flight",
				Help: "Number of search requests currently running",
			},
		),

		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serp_client_retries_total",
				Help: "Total number of retry attempts by reason",
			},
			[]string{"reason"},
		),
		RateLimitHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "serp_client_rate_limit_hits_total",
				Help: "Total number of 429 responses observed",
			},
		),

		PagesFetchedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "serp_client_pages_fetched_total",
				Help: "Total number of pages fetched by streams",
			},
		),

		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "serp_client_cache_hits_total",
				Help: "Total number of response cache hits",
			},
		),
		CacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "serp_client_cache_misses_total",
				Help: "Total number of response cache misses",
			},
		),

		QuotaRejectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "serp_client_quota_rejections_total",
				Help: "Total number of searches rejected by the local quota",
			},
		),
	}
}

// Handler serves the default registry, for embedding in an HTTP server.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordSearch(status string, duration time.Duration) {
	m.SearchesTotal.WithLabelValues(status).Inc()
	m.SearchDuration.WithLabelValues().Observe(duration.Seconds())
}

func (m *Metrics) RecordRetry(reason string) {
	m.RetriesTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHitsTotal.Inc()
}

func (m *Metrics) RecordPageFetched() {
	m.PagesFetchedTotal.Inc()
}

func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) RecordQuotaRejection() {
	m.QuotaRejectionsTotal.Inc()
}

func (m *Metrics) IncSearchesInFlight() {
	m.SearchesInFlight.Inc()
}

func (m *Metrics) DecSearchesInFlight() {
	m.SearchesInFlight.Dec()
}
