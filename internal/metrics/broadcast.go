package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vovakirdan/livepoll-server/internal/core"
)

// BroadcastMetrics records connection lifecycle and event fan-out.
// It implements core.Observer.
type BroadcastMetrics struct {
	ActiveConnections prometheus.Gauge
	ActiveUsers       prometheus.Gauge
	EventsDelivered   *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	StaleResults      prometheus.Counter
}

var _ core.Observer = (*BroadcastMetrics)(nil)

// NewBroadcastMetrics creates and registers broadcast metrics on the given registry.
func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	m := &BroadcastMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of open WebSocket connections.",
		}),
		ActiveUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "active_users",
			Help:      "Number of distinct identified users.",
		}),
		EventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "events_delivered_total",
			Help:      "Total number of events queued for a client, by event.",
		}, []string{"event"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped for slow or closed clients, by event.",
		}, []string{"event"}),
		StaleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "stale_results_skipped_total",
			Help:      "Total number of result snapshots skipped because a newer one was already sent.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.ActiveUsers, m.EventsDelivered, m.EventsDropped, m.StaleResults)
	return m
}

// ConnectionOpened counts a newly attached connection.
func (m *BroadcastMetrics) ConnectionOpened() { m.ActiveConnections.Inc() }

// ConnectionClosed counts a detached connection.
func (m *BroadcastMetrics) ConnectionClosed() { m.ActiveConnections.Dec() }

// ActiveUsersChanged records the distinct identified user count.
func (m *BroadcastMetrics) ActiveUsersChanged(count int) { m.ActiveUsers.Set(float64(count)) }

// EventDelivered counts an event queued for a client.
func (m *BroadcastMetrics) EventDelivered(kind core.EventKind) {
	m.EventsDelivered.WithLabelValues(kind.String()).Inc()
}

// EventDropped counts an event dropped for a slow or closed client.
func (m *BroadcastMetrics) EventDropped(kind core.EventKind) {
	m.EventsDropped.WithLabelValues(kind.String()).Inc()
}

// StaleResultsSkipped counts a result snapshot older than one already sent.
func (m *BroadcastMetrics) StaleResultsSkipped() { m.StaleResults.Inc() }
