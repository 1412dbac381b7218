// Package metrics exposes timer activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verte-zerg/smtimer/internal/state"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// Metrics counts what a RoomTimer observes. It implements timer.Observer.
type Metrics struct {
	registry    *prometheus.Registry
	ticks       prometheus.Counter
	reads       *prometheus.CounterVec
	transitions *prometheus.CounterVec
	roomTime    *prometheus.HistogramVec
	resets      prometheus.Counter
	presets     prometheus.Counter
	connected   prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smtimer_states_total",
			Help: "Number of game states processed.",
		}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smtimer_memory_reads_total",
			Help: "Number of emulator memory reads by result.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smtimer_transitions_total",
			Help: "Number of room transitions by room.",
		}, []string{"room"}),
		roomTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smtimer_room_real_seconds",
			Help:    "Real time spent in a room, door included.",
			Buckets: prometheus.ExponentialBuckets(1, 1.5, 12),
		}, []string{"room"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smtimer_resets_total",
			Help: "Number of detected resets.",
		}),
		presets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smtimer_preset_loads_total",
			Help: "Number of detected preset loads.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smtimer_web_clients",
			Help: "Number of connected websocket clients.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticks, m.reads, m.transitions, m.roomTime, m.resets, m.presets, m.connected,
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRead counts a memory read. Its signature matches state.ReadHook.
func (m *Metrics) ObserveRead(err error) {
	if err != nil {
		m.reads.WithLabelValues("error").Inc()
		return
	}
	m.reads.WithLabelValues("ok").Inc()
}

// SetClients records the number of connected websocket clients.
func (m *Metrics) SetClients(n int) {
	m.connected.Set(float64(n))
}

func (m *Metrics) StateChanged(state.Change) {
	m.ticks.Inc()
}

func (m *Metrics) Transitioned(t transition.Transition) {
	room := t.ID.Room.Name
	m.transitions.WithLabelValues(room).Inc()
	m.roomTime.WithLabelValues(room).Observe(t.Time.TotalRealTime().Seconds())
}

func (m *Metrics) Reset(transition.ID) {
	m.resets.Inc()
}

func (m *Metrics) PresetLoaded(state.State, state.Change) {
	m.presets.Inc()
}
