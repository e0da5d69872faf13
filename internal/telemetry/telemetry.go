// Package telemetry exposes Prometheus metrics for harvest runs.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_pages_total",
			Help: "Total pages fetched, labeled by domain and outcome.",
		},
		[]string{"domain", "outcome"},
	)

	recordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_records_total",
			Help: "Total records harvested, labeled by kind and source type.",
		},
		[]string{"kind", "source_type"},
	)

	sourcesSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_sources_skipped_total",
			Help: "Sources skipped by the quality gate.",
		},
	)

	throttleDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvester_throttle_delay_seconds",
			Help:    "Histogram of per-domain throttle wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	geocodeLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_geocode_lookups_total",
			Help: "Geocode lookups, labeled by result (hit, tombstone, resolved, miss).",
		},
		[]string{"result"},
	)
)

// ObservePage records one fetch attempt outcome for a domain.
func ObservePage(domain, outcome string) {
	pagesTotal.WithLabelValues(domain, outcome).Inc()
}

// ObserveRecords counts harvested records by kind and source type.
func ObserveRecords(kind, sourceType string, n int) {
	recordsTotal.WithLabelValues(kind, sourceType).Add(float64(n))
}

// ObserveSourceSkipped counts a quality-gate veto.
func ObserveSourceSkipped() {
	sourcesSkippedTotal.Inc()
}

// ObserveThrottleDelay records a throttle wait for a domain.
func ObserveThrottleDelay(domain string, d time.Duration) {
	throttleDelaySeconds.WithLabelValues(domain).Observe(d.Seconds())
}

// ObserveGeocode records the result of one geocode lookup.
func ObserveGeocode(result string) {
	geocodeLookupsTotal.WithLabelValues(result).Inc()
}

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
