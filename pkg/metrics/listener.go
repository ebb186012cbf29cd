package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================================
// Prometheus Metrics for HTTP.sys Listeners
// ============================================================================

// ListenerMetrics provides Prometheus metrics for request queues, url group
// registrations and disconnect tracking.
// All methods are nil-safe: calls on a nil *ListenerMetrics are no-ops.
type ListenerMetrics struct {
	// QueueOpenTotal counts request queue open attempts.
	// Labels: mode ("create", "attach", "create_or_attach"),
	// result ("created", "attached", "not_found", "invalid_name", "error").
	QueueOpenTotal *prometheus.CounterVec

	// PrefixRegistrationTotal counts url prefix registrations by result.
	// Label values: "registered", "failed", "unregistered".
	PrefixRegistrationTotal *prometheus.CounterVec

	// ListenerStarted is 1 while the listener routes its prefixes, 0 otherwise.
	ListenerStarted prometheus.Gauge

	// DisconnectRegistrationTotal counts native disconnect waits by result.
	// Label values: "pending", "completed_inline", "immediate", "failed".
	DisconnectRegistrationTotal *prometheus.CounterVec

	// DisconnectTotal counts connections reported as disconnected.
	DisconnectTotal prometheus.Counter

	// DisconnectHandlerPanicTotal counts panics recovered in disconnect callbacks.
	DisconnectHandlerPanicTotal prometheus.Counter

	// TrackedConnections is the number of connections with a pending wait.
	TrackedConnections prometheus.Gauge
}

// NewListenerMetrics creates and registers listener metrics with the given
// Prometheus registerer. If reg is nil, metrics are created but not
// registered (useful for testing).
func NewListenerMetrics(reg prometheus.Registerer) *ListenerMetrics {
	m := &ListenerMetrics{
		QueueOpenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "httpsys",
			Subsystem: "request_queue",
			Name:      "open_total",
			Help:      "Total number of request queue open attempts",
		}, []string{"mode", "result"}),
		PrefixRegistrationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "httpsys",
			Subsystem: "url_group",
			Name:      "prefix_registrations_total",
			Help:      "Total number of url prefix registration events",
		}, []string{"result"}),
		ListenerStarted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "httpsys",
			Subsystem: "listener",
			Name:      "started",
			Help:      "Whether the listener is started (1) or stopped (0)",
		}),
		DisconnectRegistrationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "httpsys",
			Subsystem: "disconnect",
			Name:      "registrations_total",
			Help:      "Total number of native disconnect wait registrations",
		}, []string{"result"}),
		DisconnectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "httpsys",
			Subsystem: "disconnect",
			Name:      "disconnects_total",
			Help:      "Total number of connections reported as disconnected",
		}),
		DisconnectHandlerPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "httpsys",
			Subsystem: "disconnect",
			Name:      "handler_panics_total",
			Help:      "Total number of panics recovered in disconnect handlers",
		}),
		TrackedConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "httpsys",
			Subsystem: "disconnect",
			Name:      "tracked_connections",
			Help:      "Current number of connections with a pending disconnect wait",
		}),
	}

	if reg != nil {
		m.QueueOpenTotal = registerOrReuse(reg, m.QueueOpenTotal).(*prometheus.CounterVec)
		m.PrefixRegistrationTotal = registerOrReuse(reg, m.PrefixRegistrationTotal).(*prometheus.CounterVec)
		m.ListenerStarted = registerOrReuse(reg, m.ListenerStarted).(prometheus.Gauge)
		m.DisconnectRegistrationTotal = registerOrReuse(reg, m.DisconnectRegistrationTotal).(*prometheus.CounterVec)
		m.DisconnectTotal = registerOrReuse(reg, m.DisconnectTotal).(prometheus.Counter)
		m.DisconnectHandlerPanicTotal = registerOrReuse(reg, m.DisconnectHandlerPanicTotal).(prometheus.Counter)
		m.TrackedConnections = registerOrReuse(reg, m.TrackedConnections).(prometheus.Gauge)
	}

	return m
}

// RecordQueueOpen counts a request queue open attempt.
func (m *ListenerMetrics) RecordQueueOpen(mode, result string) {
	if m == nil {
		return
	}
	m.QueueOpenTotal.WithLabelValues(mode, result).Inc()
}

// RecordPrefixRegistration counts a prefix registration event.
func (m *ListenerMetrics) RecordPrefixRegistration(result string) {
	if m == nil {
		return
	}
	m.PrefixRegistrationTotal.WithLabelValues(result).Inc()
}

// SetStarted records the listener state.
func (m *ListenerMetrics) SetStarted(started bool) {
	if m == nil {
		return
	}
	if started {
		m.ListenerStarted.Set(1)
		return
	}
	m.ListenerStarted.Set(0)
}

// RecordDisconnectRegistration counts a native disconnect wait registration.
func (m *ListenerMetrics) RecordDisconnectRegistration(result string) {
	if m == nil {
		return
	}
	m.DisconnectRegistrationTotal.WithLabelValues(result).Inc()
}

// RecordDisconnect counts a disconnected connection.
func (m *ListenerMetrics) RecordDisconnect() {
	if m == nil {
		return
	}
	m.DisconnectTotal.Inc()
}

// RecordHandlerPanic counts a recovered disconnect handler panic.
func (m *ListenerMetrics) RecordHandlerPanic() {
	if m == nil {
		return
	}
	m.DisconnectHandlerPanicTotal.Inc()
}

// SetTrackedConnections sets the tracked connection gauge.
func (m *ListenerMetrics) SetTrackedConnections(count float64) {
	if m == nil {
		return
	}
	m.TrackedConnections.Set(count)
}
