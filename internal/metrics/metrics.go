// Package metrics exposes Prometheus counters for ingestion, summaries,
// imports and the retention sweep, and the HTTP endpoint that serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "threadscribe"

var (
	// IngestEventsTotal counts platform events by kind and how they were reconciled.
	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Platform events processed by the reconciler",
		},
		[]string{"event", "outcome"},
	)

	// ImportedMessagesTotal counts messages stored by historical imports.
	ImportedMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "imported_messages_total",
			Help:      "Messages stored by historical imports",
		},
	)

	// ImportsTotal counts finished imports by status.
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "imports_total",
			Help:      "Historical imports by final status",
		},
		[]string{"status"},
	)

	// SummariesTotal counts summary requests by status.
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "requests_total",
			Help:      "Summary requests by status",
		},
		[]string{"provider", "status"},
	)

	// SummaryDuration observes backend latency.
	SummaryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "backend_duration_seconds",
			Help:      "Summarization backend call duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	// RetentionDeletedTotal counts messages removed by the retention sweep.
	RetentionDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "deleted_messages_total",
			Help:      "Messages deleted by the retention sweep",
		},
	)

	// RetentionRunsTotal counts sweep runs by status.
	RetentionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "runs_total",
			Help:      "Retention sweep runs by status",
		},
		[]string{"status"},
	)

	// CommandsTotal counts operator commands by name and status.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "commands_total",
			Help:      "Operator commands by name and status",
		},
		[]string{"command", "status"},
	)
)

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordIngest records one reconciled platform event
func RecordIngest(event, outcome string) {
	IngestEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordImport records a finished import and how many messages it stored
func RecordImport(status string, stored int) {
	ImportsTotal.WithLabelValues(status).Inc()
	ImportedMessagesTotal.Add(float64(stored))
}

// RecordSummary records a summary request and its backend latency
func RecordSummary(provider, status string, durationSec float64) {
	SummariesTotal.WithLabelValues(provider, status).Inc()
	if durationSec > 0 {
		SummaryDuration.WithLabelValues(provider).Observe(durationSec)
	}
}

// RecordRetention records a retention sweep run
func RecordRetention(status string, deleted int64) {
	RetentionRunsTotal.WithLabelValues(status).Inc()
	RetentionDeletedTotal.Add(float64(deleted))
}

// RecordCommand records an operator command
func RecordCommand(command, status string) {
	CommandsTotal.WithLabelValues(command, status).Inc()
}
