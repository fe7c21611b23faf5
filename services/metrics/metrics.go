package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal *prometheus.CounterVec
	RetriesTotal  *prometheus.CounterVec
	ListingsTotal *prometheus.CounterVec
	NewTotal      *prometheus.CounterVec
	SkippedTotal  *prometheus.CounterVec
	RunDuration   prometheus.Histogram
}

// New registers the pipeline metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listingscout_requests_total",
			Help: "HTTP requests issued by the fetcher",
		}, []string{"domain", "outcome"}), // outcome: ok, http_status, retry_exhausted, rate_limit, network
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listingscout_retries_total",
			Help: "Retries scheduled after a 429, 5xx or network failure",
		}, []string{"domain"}),
		ListingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listingscout_listings_total",
			Help: "Listings collected per source",
		}, []string{"source"}),
		NewTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listingscout_new_listings_total",
			Help: "Listings not seen in any previous run",
		}, []string{"source"}),
		SkippedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listingscout_sources_skipped_total",
			Help: "Sources skipped for a run",
		}, []string{"source", "reason"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "listingscout_run_duration_seconds",
			Help:    "Wall time of a full pass over the enabled sources",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200},
		}),
	}
}

// RequestDone counts a finished fetch
func (m *Metrics) RequestDone(domain, outcome string) {
	m.RequestsTotal.WithLabelValues(domain, outcome).Inc()
}

// RetryScheduled counts a retry
func (m *Metrics) RetryScheduled(domain string) {
	m.RetriesTotal.WithLabelValues(domain).Inc()
}

// SourceCollected records the size of a source's crawl and how many were new
func (m *Metrics) SourceCollected(source string, all, fresh int) {
	m.ListingsTotal.WithLabelValues(source).Add(float64(all))
	m.NewTotal.WithLabelValues(source).Add(float64(fresh))
}

// SourceSkipped counts a source dropped from a run
func (m *Metrics) SourceSkipped(source, reason string) {
	m.SkippedTotal.WithLabelValues(source, reason).Inc()
}

// RunFinished observes the duration of a run
func (m *Metrics) RunFinished(d time.Duration) {
	m.RunDuration.Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
