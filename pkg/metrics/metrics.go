package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus instruments for the realtime core.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	EventsBroadcast   *prometheus.CounterVec
	TasksProcessed    *prometheus.CounterVec
	RoomMembers       *prometheus.GaugeVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct. A custom registry keeps tests
// isolated from global state.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_connections_active",
			Help: "Current number of live WebSocket connections.",
		}),
		EventsBroadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_events_broadcast_total",
			Help: "Total outbound event deliveries, by event name.",
		}, []string{"event"}),
		TasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_tasks_processed_total",
			Help: "Total queue task outcomes, by resulting status.",
		}, []string{"status"}),
		RoomMembers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "realtime_room_members",
			Help: "Current member count per room.",
		}, []string{"room"}),
	}

	for _, c := range []prometheus.Collector{
		m.ConnectionsActive,
		m.EventsBroadcast,
		m.TasksProcessed,
		m.RoomMembers,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// BroadcastObserver adapts the fan-out counter to the gateway's observer
// callback signature.
func (m *Metrics) BroadcastObserver() func(event string, recipients int) {
	return func(event string, recipients int) {
		m.EventsBroadcast.WithLabelValues(event).Add(float64(recipients))
	}
}

// TaskObserver adapts the task counter to the worker's observer callback
// signature, counting by the status a processed task ended up in.
func (m *Metrics) TaskObserver() func(status string) {
	return func(status string) {
		m.TasksProcessed.WithLabelValues(status).Inc()
	}
}

// RoomObserver adapts the room gauge to the registry's membership callback.
// Emptied rooms drop their series so ephemeral room names do not pile up.
func (m *Metrics) RoomObserver() func(room string, members int) {
	return func(room string, members int) {
		if members == 0 {
			m.RoomMembers.DeleteLabelValues(room)
			return
		}
		m.RoomMembers.WithLabelValues(room).Set(float64(members))
	}
}
