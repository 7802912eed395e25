package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "snowintel"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// retrieval pipeline and its remote service adapter.
type Metrics struct {
	// SOAP client metrics.
	SOAPRequests *prometheus.CounterVec   // labels: operation={GetSites,GetSiteInfo,GetValues,WSDL}, outcome={success,error,fault}
	SOAPDuration *prometheus.HistogramVec // labels: operation

	// Response cache metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,error}

	// Pipeline metrics.
	ValidationFailures   *prometheus.CounterVec // labels: kind={site,variable,date}
	ObservationsReturned prometheus.Counter
	ObservationsDropped  prometheus.Counter
	SitesReturned        prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SOAPRequests,
		m.SOAPDuration,
		m.CacheLookups,
		m.ValidationFailures,
		m.ObservationsReturned,
		m.ObservationsDropped,
		m.SitesReturned,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SOAPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "soap_requests_total",
			Help:      "Remote service requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		SOAPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "soap_request_duration_seconds",
			Help:      "Remote service request duration in seconds, cache hits included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected fetch requests by failure kind.",
		}, []string{"kind"}),
		ObservationsReturned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_returned_total",
			Help:      "Observation rows returned to callers.",
		}),
		ObservationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_dropped_total",
			Help:      "Observation rows removed because they held a missing-data marker.",
		}),
		SitesReturned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sites_returned",
			Help:      "Rows in the most recent site table, after filtering.",
		}),
	}
}
