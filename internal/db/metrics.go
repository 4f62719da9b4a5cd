package db

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports connection lifecycle metrics. A nil *Metrics is a no-op.
type Metrics struct {
	readyState prometheus.Gauge
	attempts   *prometheus.CounterVec
	reconnects prometheus.Counter
	events     *prometheus.CounterVec
}

// NewMetrics registers the connection collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		readyState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "docgate",
			Subsystem: "db",
			Name:      "ready_state",
			Help:      "Current readiness state of the database connection (0=disconnected, 1=connected, 2=connecting, 3=disconnecting).",
		}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docgate",
			Subsystem: "db",
			Name:      "connect_attempts_total",
			Help:      "Database connection attempts by result.",
		}, []string{"result"}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docgate",
			Subsystem: "db",
			Name:      "reconnects_total",
			Help:      "Reconnect cycles started after a transport disconnect.",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docgate",
			Subsystem: "db",
			Name:      "events_total",
			Help:      "Transport lifecycle events received from the driver.",
		}, []string{"event"}),
	}
	m.readyState.Set(float64(StateDisconnected))
	return m
}

func (m *Metrics) setState(s State) {
	if m == nil {
		return
	}
	m.readyState.Set(float64(s))
}

func (m *Metrics) attempt(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.attempts.WithLabelValues(result).Inc()
}

func (m *Metrics) reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) event(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}
