package app

// PhaseKind names one of the closed set of match phases.
type PhaseKind string

const (
	PhaseSetup         PhaseKind = "setup"
	PhaseDice          PhaseKind = "dice"
	PhaseRobberDiscard PhaseKind = "robber_discard"
	PhaseRobberPlacing PhaseKind = "robber_placing"
	PhasePlay          PhaseKind = "play"
	PhaseBuild         PhaseKind = "build"
	PhaseTrade         PhaseKind = "trade"
	PhaseEnd           PhaseKind = "end"
)

// Phases lists every phase.
var Phases = []PhaseKind{
	PhaseSetup, PhaseDice, PhaseRobberDiscard, PhaseRobberPlacing,
	PhasePlay, PhaseBuild, PhaseTrade, PhaseEnd,
}

// Valid reports whether k is a known phase.
func (k PhaseKind) Valid() bool {
	for _, p := range Phases {
		if p == k {
			return true
		}
	}
	return false
}

// phase is the behaviour of one phase. Implementations hold no state; all of
// it lives in the match and its turn context. Every method runs with the
// match lock held.
type phase interface {
	// begin runs on entry.
	begin(m *Match)
	// handle validates and applies one inbound action.
	handle(m *Match, a Action) (Result, error)
	// forceEnd completes whatever the turn holder left unfinished.
	forceEnd(m *Match)
	// advance moves to the phase that follows a completed one.
	advance(m *Match)
}

type (
	setupPhase         struct{}
	dicePhase          struct{}
	robberDiscardPhase struct{}
	robberPlacingPhase struct{}
	playPhase          struct{}
	buildPhase         struct{}
	tradePhase         struct{}
	endPhase           struct{}
)

func phaseFor(k PhaseKind) phase {
	switch k {
	case PhaseSetup:
		return setupPhase{}
	case PhaseDice:
		return dicePhase{}
	case PhaseRobberDiscard:
		return robberDiscardPhase{}
	case PhaseRobberPlacing:
		return robberPlacingPhase{}
	case PhaseBuild:
		return buildPhase{}
	case PhaseTrade:
		return tradePhase{}
	case PhaseEnd:
		return endPhase{}
	default:
		return playPhase{}
	}
}

// enter makes k the active phase and runs its begin step.
func (m *Match) enter(k PhaseKind) {
	if m.ended {
		return
	}
	m.prev = m.phase
	m.phase = k
	m.publish(Event{Kind: EventPhaseChanged, Payload: PhaseChangedPayload{Phase: k, Holder: m.queue.Head()}})
	phaseFor(k).begin(m)
}

func wrongPhase(k PhaseKind, a Action) error {
	return &WrongPhaseError{Phase: k, Action: a.Kind()}
}
