package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "layered_scan_seconds",
		Help:    "Time spent scanning a directory tree.",
		Buckets: prometheus.DefBuckets,
	})

	DirsVisited = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "layered_dirs_visited",
		Help: "Number of directories visited by the last scan.",
	})

	MeaningfulDirs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "layered_meaningful_dirs",
		Help: "Number of meaningful directories found by the last classification.",
	})

	PlanEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "layered_plan_entries",
		Help: "Plan entries of the last plan by summary status.",
	}, []string{"status"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "layered_operation_seconds",
		Help:    "Time spent in a top-level operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	SummaryWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "layered_summary_writes_total",
		Help: "Total number of summary files written.",
	}, []string{"operation"})

	VerifyIssues = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "layered_verify_issues",
		Help: "Issues found by the last verification, by kind.",
	}, []string{"kind"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layered_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ReplansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layered_replans_total",
		Help: "Total number of plans recomputed by the watcher.",
	})

	ReplansThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layered_replans_throttled_total",
		Help: "Total number of watcher re-plans delayed by the rate limiter.",
	})
)

// WriteMetricsFile writes the default registry in Prometheus text format.
func WriteMetricsFile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
