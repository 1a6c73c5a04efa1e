package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake"

// Metrics holds the Prometheus collectors for feed fetching and refreshes.
type Metrics struct {
	FetchRequests  *prometheus.CounterVec   // labels: feed, outcome={success,network_error,malformed}
	FetchDuration  *prometheus.HistogramVec // labels: feed
	Records        *prometheus.GaugeVec     // labels: window
	StaleResponses prometheus.Counter
	Refreshes      *prometheus.CounterVec // labels: trigger={startup,schedule,window,manual}
}

func newCollectors() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Feed requests by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"feed"}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Earthquakes in the last applied fetch, by window.",
		}, []string{"window"}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Fetch results discarded because a newer request superseded them.",
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh cycles by trigger.",
		}, []string{"trigger"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newCollectors()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.Records,
		m.StaleResponses,
		m.Refreshes,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newCollectors()
}
