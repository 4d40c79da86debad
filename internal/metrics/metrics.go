package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Push message outcomes.
const (
	OutcomeRouted  = "routed"
	OutcomeDropped = "dropped"
)

var (
	// PushMessages counts push messages by message type and outcome.
	PushMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vivint",
		Name:      "push_messages_total",
		Help:      "Push messages received from the side channel",
	}, []string{"type", "outcome"})

	// APICalls counts cloud API requests by operation and result.
	APICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vivint",
		Name:      "api_calls_total",
		Help:      "Cloud API requests",
	}, []string{"op", "result"})

	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vivint",
		Name:      "api_call_duration_seconds",
		Help:      "Cloud API request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vivint",
		Name:      "api_breaker_state",
		Help:      "Circuit breaker state for the cloud API",
	})

	ListenerDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vivint",
		Name:      "listener_deliveries_total",
		Help:      "Event deliveries run by the dispatcher",
	})

	// Devices is the number of live devices per panel.
	Devices = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vivint",
		Name:      "devices",
		Help:      "Live devices tracked per panel",
	}, []string{"panel"})

	DevicesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vivint",
		Name:      "devices_discovered_total",
		Help:      "Devices added through push messages",
	})

	DevicesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vivint",
		Name:      "devices_deleted_total",
		Help:      "Devices removed through push messages",
	})
)

// RecordPush records a push message outcome.
func RecordPush(msgType, outcome string) {
	PushMessages.WithLabelValues(msgType, outcome).Inc()
}
