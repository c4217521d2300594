package bot

import (
	"errors"

	"settlers/internal/app"
	"settlers/internal/domain"
)

// Agent plays one roster slot.
type Agent struct {
	Slot     int
	UserID   string
	Name     string
	Brain    Brain
	Geometry Geometry
}

// NewAgent builds an agent for a bot participant.
func NewAgent(p domain.Participant, level BotLevel, g Geometry, rng Rand) (*Agent, error) {
	brain, err := NewBrain(level, rng)
	if err != nil {
		return nil, err
	}
	return &Agent{Slot: p.Index, UserID: p.UserID, Name: p.Name, Brain: brain, Geometry: g}, nil
}

// Act asks the agent's brain for one move and submits it. When the holder
// has nothing useful left to do in a phase it may leave, the turn is ended
// instead. It reports whether the match advanced.
func Act(m *app.Match, a *Agent) (bool, error) {
	v := m.ViewFor(a.Slot)
	if v.Ended {
		return false, nil
	}
	var err error
	if act := a.Brain.Decide(v, a.Geometry); act != nil {
		if _, err = m.SubmitAction(act); err == nil {
			return true, nil
		}
	}
	if v.MyTurn && endable(v.Phase) {
		if endErr := m.EndTurn(a.Slot); endErr != nil {
			return false, errors.Join(err, endErr)
		}
		return true, nil
	}
	return false, err
}

// endable lists the phases in which ending the turn only skips optional
// moves. Elsewhere EndTurn would complete mandatory steps at random,
// possibly for other participants.
func endable(k app.PhaseKind) bool {
	switch k {
	case app.PhasePlay, app.PhaseBuild, app.PhaseTrade:
		return true
	}
	return false
}

// Run lets every agent act until none of them can move or maxSteps actions
// have been taken. It returns the number of actions taken.
func Run(m *app.Match, agents []*Agent, maxSteps int) int {
	steps := 0
	for steps < maxSteps && !m.Ended() {
		moved := false
		for _, a := range agents {
			if steps >= maxSteps {
				break
			}
			ok, _ := Act(m, a)
			if ok {
				moved = true
				steps++
			}
		}
		if !moved {
			break
		}
	}
	return steps
}
