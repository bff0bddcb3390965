// Package metrics exposes scrape counters for Prometheus.
//
// The scraper is a one-shot batch job, so instead of serving /metrics the
// registry is written once to a node_exporter textfile at the end of a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds only the scraper's own series; Go runtime collectors are
// left out of the textfile.
var Registry = prometheus.NewRegistry()

var (
	pagesScraped     prometheus.Counter
	recordsExtracted prometheus.Counter
	extractErrors    *prometheus.CounterVec
	renderWait       prometheus.Histogram
	loginDuration    prometheus.Histogram
	lastSuccess      prometheus.Gauge
	lastRecords      prometheus.Gauge
)

func init() {
	pagesScraped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "velib_runs_pages_scraped_total",
			Help: "Listing pages read by the pagination walker",
		},
	)
	Registry.MustRegister(pagesScraped)

	recordsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "velib_runs_records_extracted_total",
			Help: "Run records successfully parsed from listing entries",
		},
	)
	Registry.MustRegister(recordsExtracted)

	extractErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velib_runs_extract_errors_total",
			Help: "Run entries that could not be parsed, by field",
		},
		[]string{"field"},
	)
	Registry.MustRegister(extractErrors)

	// Buckets sized for client-side rendering after a pagination click
	renderWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "velib_runs_render_wait_seconds",
			Help:    "Time spent polling until the listing view is ready",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
	Registry.MustRegister(renderWait)

	loginDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "velib_runs_login_seconds",
			Help:    "Time from opening the login page to the submitted form going away",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20},
		},
	)
	Registry.MustRegister(loginDuration)

	lastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "velib_runs_last_success_timestamp_seconds",
			Help: "Unix time of the last scrape that wrote its CSV",
		},
	)
	Registry.MustRegister(lastSuccess)

	lastRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "velib_runs_last_records",
			Help: "Number of records written by the last successful scrape",
		},
	)
	Registry.MustRegister(lastRecords)
}

// RecordPage counts one walked page and the records it produced
func RecordPage(records int) {
	pagesScraped.Inc()
	recordsExtracted.Add(float64(records))
}

// RecordExtractError counts an entry rejected by the extractor
func RecordExtractError(field string) {
	extractErrors.WithLabelValues(field).Inc()
}

// RecordRenderWait observes how long a readiness poll took
func RecordRenderWait(d time.Duration) {
	renderWait.Observe(d.Seconds())
}

// RecordLogin observes the login round trip
func RecordLogin(d time.Duration) {
	loginDuration.Observe(d.Seconds())
}

// RecordSuccess marks a completed scrape
func RecordSuccess(at time.Time, records int) {
	lastSuccess.Set(float64(at.Unix()))
	lastRecords.Set(float64(records))
}

// WriteTextfile dumps the registry in the text exposition format. The file
// is written atomically so a concurrent node_exporter never sees half of it.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
