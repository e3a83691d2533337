package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters for resolution, geocoding and
// correction flows.
type Metrics struct {
	GeocodeCacheLookups *prometheus.CounterVec // labels: result={hit,miss,tombstone}
	GeocodeRequests     *prometheus.CounterVec // labels: outcome={success,empty,rate_limited,auth,error}
	Resolutions         *prometheus.CounterVec // labels: state={resolved,failed}
	CorrectionIssues    *prometheus.CounterVec // labels: severity={high,medium}
	CorrectionsApplied  *prometheus.CounterVec // labels: outcome={manual,geocoded,unresolved}
	DuplicatesDeleted   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.GeocodeCacheLookups,
		m.GeocodeRequests,
		m.Resolutions,
		m.CorrectionIssues,
		m.CorrectionsApplied,
		m.DuplicatesDeleted,
	)

	return m
}

// NewMetricsForTesting creates unregistered metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		GeocodeCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundskeeper",
			Name:      "geocode_cache_lookups_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundskeeper",
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider requests by outcome.",
		}, []string{"outcome"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundskeeper",
			Name:      "resolutions_total",
			Help:      "Venue resolution attempts by terminal state.",
		}, []string{"state"}),
		CorrectionIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundskeeper",
			Name:      "correction_issues_total",
			Help:      "Issues found by correction scans, by severity.",
		}, []string{"severity"}),
		CorrectionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundskeeper",
			Name:      "corrections_applied_total",
			Help:      "Correction attempts by outcome.",
		}, []string{"outcome"}),
		DuplicatesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundskeeper",
			Name:      "duplicates_deleted_total",
			Help:      "Redundant venue records removed by duplicate merges.",
		}),
	}
}
