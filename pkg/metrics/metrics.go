package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Volume / watcher metrics
	VolumesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ultrasearch_volumes_total",
			Help: "Total number of known volumes by health state",
		},
		[]string{"health"},
	)

	TailerLastUsn = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ultrasearch_tailer_last_usn",
			Help: "Last consumed USN per volume",
		},
		[]string{"volume_id"},
	)

	JournalGapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasearch_journal_gaps_total",
			Help: "Total number of journal gap/wrap rebuilds triggered",
		},
		[]string{"volume_id"},
	)

	UsnRecordsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasearch_usn_records_consumed_total",
			Help: "Total USN records consumed by the tailer",
		},
		[]string{"volume_id"},
	)

	// Index metrics
	MetadataDocsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ultrasearch_metadata_docs_total",
			Help: "Total documents in the metadata index",
		},
	)

	ContentDocsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ultrasearch_content_docs_total",
			Help: "Total documents in the content index",
		},
	)

	MetadataCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ultrasearch_metadata_commit_duration_seconds",
			Help:    "Time taken to commit a metadata index batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	ContentCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ultrasearch_content_commit_duration_seconds",
			Help:    "Time taken to commit a content index batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Scheduler metrics
	SchedulerTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ultrasearch_scheduler_ticks_total",
			Help: "Total number of scheduler tick cycles run",
		},
	)

	JobsAdmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasearch_jobs_admitted_total",
			Help: "Total number of jobs admitted by kind",
		},
		[]string{"kind"},
	)

	JobsQuarantinedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasearch_jobs_quarantined_total",
			Help: "Total number of files quarantined after retry exhaustion",
		},
		[]string{"reason"},
	)

	ContentBatchesSpawned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ultrasearch_content_batches_spawned_total",
			Help: "Total number of content-index worker batches spawned",
		},
	)

	WorkerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ultrasearch_worker_duration_seconds",
			Help:    "Wall-clock time for a worker batch run",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasearch_worker_failures_total",
			Help: "Total number of worker batch failures by cause",
		},
		[]string{"cause"},
	)

	// Extractor metrics
	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasearch_extractions_total",
			Help: "Total number of per-file extraction attempts by outcome",
		},
		[]string{"outcome"},
	)

	ExtractionTruncatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ultrasearch_extraction_truncated_total",
			Help: "Total number of extractions that hit a truncation limit",
		},
	)

	// Query metrics
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasearch_queries_total",
			Help: "Total number of queries served by mode",
		},
		[]string{"mode"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ultrasearch_query_duration_seconds",
			Help:    "Query execution duration in seconds by mode",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	QueryTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ultrasearch_query_timeouts_total",
			Help: "Total number of queries that hit their deadline",
		},
	)

	// IPC metrics
	IPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasearch_ipc_requests_total",
			Help: "Total number of IPC requests by variant and status",
		},
		[]string{"variant", "status"},
	)

	IPCConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ultrasearch_ipc_connections_active",
			Help: "Currently connected IPC clients",
		},
	)

	IPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ultrasearch_ipc_request_duration_seconds",
			Help:    "IPC request dispatch duration in seconds by variant",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"variant"},
	)
)

func init() {
	prometheus.MustRegister(
		VolumesTotal,
		TailerLastUsn,
		JournalGapsTotal,
		UsnRecordsConsumed,
		MetadataDocsTotal,
		ContentDocsTotal,
		MetadataCommitDuration,
		ContentCommitDuration,
		SchedulerTicksTotal,
		JobsAdmittedTotal,
		JobsQuarantinedTotal,
		ContentBatchesSpawned,
		WorkerDuration,
		WorkerFailuresTotal,
		ExtractionsTotal,
		ExtractionTruncatedTotal,
		QueriesTotal,
		QueryDuration,
		QueryTimeoutsTotal,
		IPCRequestsTotal,
		IPCConnectionsActive,
		IPCRequestDuration,
	)
}

// Handler returns the Prometheus HTTP handler, served on a loopback-only
// diagnostics listener by the service (not part of the IPC surface).
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
