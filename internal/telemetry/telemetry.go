// Package telemetry exposes Prometheus metrics for the harvest pipeline.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	harvestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_runs_total",
			Help: "Total number of harvest runs, labeled by source and outcome.",
		},
		[]string{"source", "status"},
	)

	harvestRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_records_total",
			Help: "Total number of records extracted, labeled by source.",
		},
		[]string{"source"},
	)

	harvestListingsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_listings_skipped_total",
			Help: "Total number of listings skipped due to extraction failures.",
		},
		[]string{"source"},
	)

	pacingDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pacing_delay_seconds",
			Help:    "Histogram of pacing wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 3, 5, 10},
		},
	)

	exportRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_records_total",
			Help: "Total number of records written, labeled by format.",
		},
		[]string{"format"},
	)
)

// Handler returns the standard Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records the outcome of one harvest run.
func ObserveRun(source, status string) {
	harvestRunsTotal.WithLabelValues(source, status).Inc()
}

// ObserveRecords records extracted record counts for a source.
func ObserveRecords(source string, count int) {
	if count <= 0 {
		return
	}
	harvestRecordsTotal.WithLabelValues(source).Add(float64(count))
}

// ObserveListingSkipped records one skipped listing.
func ObserveListingSkipped(source string) {
	harvestListingsSkippedTotal.WithLabelValues(source).Inc()
}

// ObservePacingDelay records the duration of one pacing wait.
func ObservePacingDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	pacingDelaySeconds.Observe(d.Seconds())
}

// ObserveExport records how many records an export call wrote.
func ObserveExport(format string, count int) {
	exportRecordsTotal.WithLabelValues(format).Add(float64(count))
}
