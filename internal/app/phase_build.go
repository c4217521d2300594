package app

import (
	"fmt"

	"settlers/internal/domain"
)

func (buildPhase) begin(m *Match) {}

func (p buildPhase) handle(m *Match, a Action) (Result, error) {
	if err := m.requireHolder(a.Sender()); err != nil {
		return Result{}, err
	}
	switch act := a.(type) {
	case StartBuild:
		if m.ctx.FreeRoads > 0 {
			return Result{}, domain.ErrFreeBuildsRemaining
		}
		return m.startBuild(act)
	case CancelBuild:
		if m.ctx.FreeRoads > 0 {
			return Result{}, domain.ErrFreeBuildsRemaining
		}
		p.advance(m)
		return Result{}, nil
	case PlacePiece:
		if m.ctx.FreeRoads > 0 {
			if act.Piece != domain.Road {
				return Result{}, fmt.Errorf("%s while roads are free: %w", act.Piece, domain.ErrFreeBuildsRemaining)
			}
			if err := m.placePiece(act.Actor, domain.Road, act.At, m.legal(act.Actor, domain.Road), false, false); err != nil {
				return Result{}, err
			}
			m.ctx.FreeRoads--
			if m.ctx.FreeRoads == 0 || len(m.legal(act.Actor, domain.Road)) == 0 {
				p.advance(m)
			}
			return Result{}, nil
		}
		if err := m.buildPaid(act.Actor, act.Piece, act.At); err != nil {
			return Result{}, err
		}
		p.advance(m)
		return Result{}, nil
	default:
		return Result{}, wrongPhase(PhaseBuild, a)
	}
}

// forceEnd lays any free roads still owed, then either returns to an
// unrolled Dice phase or ends the turn.
func (buildPhase) forceEnd(m *Match) {
	holder := m.queue.Head()
	for m.ctx.FreeRoads > 0 && !m.ended {
		legal := m.legal(holder, domain.Road)
		if len(legal) == 0 {
			break
		}
		if err := m.placePiece(holder, domain.Road, m.pick(legal), legal, false, true); err != nil {
			m.log.Warn("buildPhase.forceEnd: free road for slot %d: %v", holder, err)
			break
		}
		m.ctx.FreeRoads--
	}
	m.ctx.FreeRoads = 0
	if m.ctx.CardBeforeDice && !m.ctx.Rolled {
		m.enter(PhaseDice)
		return
	}
	m.enter(PhaseEnd)
}

func (buildPhase) advance(m *Match) {
	m.ctx.FreeRoads = 0
	if m.ctx.CardBeforeDice && !m.ctx.Rolled {
		m.enter(PhaseDice)
		return
	}
	m.enter(PhasePlay)
}
