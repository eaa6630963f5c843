package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wachat",
			Subsystem: "chat_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wachat",
			Subsystem: "chat_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Webhook envelope counter by intent and reconciliation outcome
	EnvelopesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wachat",
			Subsystem: "chat_api",
			Name:      "envelopes_total",
			Help:      "Webhook envelopes processed, by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	// Fanout event counter
	FanoutEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wachat",
			Subsystem: "chat_api",
			Name:      "fanout_events_total",
			Help:      "Fanout events dispatched to subscribers",
		},
		[]string{"event", "status"},
	)

	// Fanout queue depth gauge
	FanoutQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wachat",
			Subsystem: "chat_api",
			Name:      "fanout_queue_depth",
			Help:      "Pending events awaiting fanout dispatch",
		},
	)

	// DB query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wachat",
			Subsystem: "chat_api",
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"query_type"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordEnvelope records a processed webhook envelope
func RecordEnvelope(intent, outcome string) {
	EnvelopesTotal.WithLabelValues(intent, outcome).Inc()
}

// RecordFanoutEvent records a fanout dispatch attempt
func RecordFanoutEvent(event, status string) {
	FanoutEventsTotal.WithLabelValues(event, status).Inc()
}

// SetFanoutQueueDepth sets the current fanout queue depth
func SetFanoutQueueDepth(depth int) {
	FanoutQueueDepth.Set(float64(depth))
}

// RecordDBQuery records a database query
func RecordDBQuery(queryType string, durationSec float64) {
	DBQueryDuration.WithLabelValues(queryType).Observe(durationSec)
}
