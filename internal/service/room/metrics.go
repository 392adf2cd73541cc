package room

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "pathway"

const realtimeSubsystem = "realtime"

// Metrics holds the realtime delivery counters exposed on /metrics
type Metrics struct {
	// EventsDelivered counts events written to a connection. Labels: event
	EventsDelivered *prometheus.CounterVec

	// DeliveryFailures counts events dropped for one connection. Labels: event
	DeliveryFailures *prometheus.CounterVec

	// Connections is the number of registered live connections
	Connections prometheus.Gauge

	// TypingExpired counts typing signals that ended without a stop
	TypingExpired prometheus.Counter
}

// NewMetrics registers the realtime metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: realtimeSubsystem,
			Name:      "events_delivered_total",
			Help:      "Realtime events written to a connection, by event type",
		}, []string{"event"}),
		DeliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: realtimeSubsystem,
			Name:      "delivery_failures_total",
			Help:      "Realtime events that could not reach a connection, by event type",
		}, []string{"event"}),
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: realtimeSubsystem,
			Name:      "connections",
			Help:      "Currently registered room connections",
		}),
		TypingExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: realtimeSubsystem,
			Name:      "typing_expired_total",
			Help:      "Typing signals that expired without an explicit stop",
		}),
	}
}
