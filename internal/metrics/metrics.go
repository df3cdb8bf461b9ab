package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_events_received_total",
		Help: "Total number of events delivered by the bus client and buffered",
	})

	EventsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_events_processed_total",
		Help: "Total number of events removed from the buffer and handled, successfully or not",
	})

	HandlerFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_handler_failures_total",
		Help: "Total number of handler invocations that reported a failure",
	})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatlog_events_dropped_total",
		Help: "Total number of events discarded before handling, by reason",
	}, []string{"reason"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatlog_queue_depth",
		Help: "Number of events waiting in the buffer",
	})

	HandlerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatlog_handler_duration_seconds",
		Help:    "Time spent handling a single event",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	State = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chatlog_state",
		Help: "Current daemon state (1 for the active state, 0 otherwise)",
	}, []string{"state"})
)

// IncDropped records a dropped event with a concrete reason.
func IncDropped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	EventsDroppedTotal.WithLabelValues(reason).Inc()
}

// SetState marks to as the active state and clears from.
func SetState(from, to string) {
	if from != "" {
		State.WithLabelValues(from).Set(0)
	}
	State.WithLabelValues(to).Set(1)
}
