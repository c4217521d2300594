// Package telemetry exports match metrics to Prometheus.
package telemetry

import (
	"net/http"

	"settlers/internal/app"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is an app.Recorder backed by Prometheus collectors. One Metrics is
// shared by every match in the process.
type Metrics struct {
	registry *prometheus.Registry
	actions  *prometheus.CounterVec
	timers   *prometheus.CounterVec
	finished prometheus.Counter
	running  prometheus.Gauge
}

// New registers the match collectors on a fresh registry. A nil registry
// creates one.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "settlers",
			Name:      "actions_total",
			Help:      "Inbound match actions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		timers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "settlers",
			Name:      "timer_expirations_total",
			Help:      "Turn deadlines that fired, by phase.",
		}, []string{"phase"}),
		finished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "settlers",
			Name:      "games_finished_total",
			Help:      "Matches that reached a winner.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "settlers",
			Name:      "matches_running",
			Help:      "Matches currently in progress.",
		}),
	}
	reg.MustRegister(m.actions, m.timers, m.finished, m.running)
	return m
}

func (m *Metrics) ActionHandled(kind app.ActionKind, outcome string) {
	m.actions.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) TimerExpired(phase app.PhaseKind) {
	m.timers.WithLabelValues(string(phase)).Inc()
}

func (m *Metrics) GameFinished() { m.finished.Inc() }

// MatchStarted and MatchClosed track the running gauge.
func (m *Metrics) MatchStarted() { m.running.Inc() }
func (m *Metrics) MatchClosed()  { m.running.Dec() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
