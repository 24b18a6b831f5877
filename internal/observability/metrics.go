// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Reduction metrics
	CollisionsProcessed prometheus.Counter
	CollisionsSelected  prometheus.Counter
	SelectionSteps      *prometheus.CounterVec
	DCandidatesKept     *prometheus.CounterVec
	V0sKept             prometheus.Counter
	PairsBuilt          *prometheus.CounterVec
	ReductionDuration   prometheus.Histogram

	// Ingestion metrics
	EventsReceived    prometheus.Counter
	EventDecodeErrors *prometheus.CounterVec
	WSReconnects      prometheus.Counter
	WSMessageLatency  prometheus.Histogram

	// Calibration metrics
	FieldFetches     prometheus.Counter
	FieldFetchErrors prometheus.Counter

	// Database metrics
	DBWriteDuration *prometheus.HistogramVec
	DBWriteErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "charm_reso_lab"
	}

	return &Metrics{
		// Reduction metrics
		CollisionsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reduction",
			Name:      "collisions_processed_total",
			Help:      "Total number of collisions run through the pairing scan",
		}),
		CollisionsSelected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reduction",
			Name:      "collisions_selected_total",
			Help:      "Total number of collisions that produced at least one D-V0 pair",
		}),
		SelectionSteps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reduction",
			Name:      "collision_steps_total",
			Help:      "Collisions reaching each selection stage",
		}, []string{"stage"}),
		DCandidatesKept: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reduction",
			Name:      "d_candidates_kept_total",
			Help:      "Total number of D candidates written to the reduced tables",
		}, []string{"channel"}),
		V0sKept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reduction",
			Name:      "v0s_kept_total",
			Help:      "Total number of accepted (D, V0) evaluations",
		}),
		PairsBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reduction",
			Name:      "pairs_built_total",
			Help:      "Total number of resonance pair candidates built",
		}, []string{"channel"}),
		ReductionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reduction",
			Name:      "run_duration_seconds",
			Help:      "Reduction run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Ingestion metrics
		EventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_received_total",
			Help:      "Total number of collision events received",
		}),
		EventDecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "decode_errors_total",
			Help:      "Total number of event decode errors by type",
		}, []string{"error_type"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnections",
		}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Calibration metrics
		FieldFetches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "field_fetches_total",
			Help:      "Total number of magnetic field object fetches",
		}),
		FieldFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "field_fetch_errors_total",
			Help:      "Total number of failed magnetic field object fetches",
		}),

		// Database metrics
		DBWriteDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "write_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		DBWriteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "write_errors_total",
			Help:      "Total number of failed store operations",
		}, []string{"store", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful reduction run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventReceived increments the events received counter.
func RecordEventReceived() {
	DefaultMetrics.EventsReceived.Inc()
}

// RecordDecodeError records an event decode error.
func RecordDecodeError(errorType string) {
	DefaultMetrics.EventDecodeErrors.WithLabelValues(errorType).Inc()
}

// RecordWSReconnect increments the WebSocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordWSMessageLatency records WebSocket message processing latency.
func RecordWSMessageLatency(seconds float64) {
	DefaultMetrics.WSMessageLatency.Observe(seconds)
}

// RecordStoreWrite records a store operation.
func RecordStoreWrite(store, operation string, seconds float64, err error) {
	DefaultMetrics.DBWriteDuration.WithLabelValues(store, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBWriteErrors.WithLabelValues(store, operation).Inc()
	}
}

// RecordReductionRun records a completed reduction run.
func RecordReductionRun(durationSeconds float64, ok bool) {
	DefaultMetrics.ReductionDuration.Observe(durationSeconds)
	if ok {
		DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	}
}
