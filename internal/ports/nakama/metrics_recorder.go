package nakama

import (
	"settlers/internal/app"
)

// metricsAPI is the part of runtime.NakamaModule used for match metrics.
type metricsAPI interface {
	MetricsCounterAdd(name string, tags map[string]string, delta int64)
	MetricsGaugeSet(name string, tags map[string]string, value float64)
}

// nakamaRecorder reports match metrics through Nakama's metrics
// integration. It implements app.Recorder.
type nakamaRecorder struct {
	nk metricsAPI
}

var _ app.Recorder = (*nakamaRecorder)(nil)

func newNakamaRecorder(nk metricsAPI) *nakamaRecorder {
	return &nakamaRecorder{nk: nk}
}

func (r *nakamaRecorder) ActionHandled(kind app.ActionKind, outcome string) {
	r.nk.MetricsCounterAdd("settlers_actions", map[string]string{"kind": string(kind), "outcome": outcome}, 1)
}

func (r *nakamaRecorder) TimerExpired(phase app.PhaseKind) {
	r.nk.MetricsCounterAdd("settlers_timer_expirations", map[string]string{"phase": string(phase)}, 1)
}

func (r *nakamaRecorder) GameFinished() {
	r.nk.MetricsCounterAdd("settlers_games_finished", nil, 1)
}

// gameRunning sets this match's running gauge. Nakama tags each gauge
// series, so the value is 0 or 1 per match.
func (r *nakamaRecorder) gameRunning(matchID string, running bool) {
	v := 0.0
	if running {
		v = 1
	}
	r.nk.MetricsGaugeSet("settlers_match_running", map[string]string{"match_id": matchID}, v)
}
