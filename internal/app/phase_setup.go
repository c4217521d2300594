package app

import (
	"fmt"

	"settlers/internal/domain"
)

func (setupPhase) begin(m *Match) {
	m.restartTimer(m.rules.SetupTime)
}

func (p setupPhase) handle(m *Match, a Action) (Result, error) {
	act, ok := a.(PlacePiece)
	if !ok {
		return Result{}, wrongPhase(PhaseSetup, a)
	}
	slot := act.Actor
	if err := m.requireHolder(slot); err != nil {
		return Result{}, err
	}
	info := m.ctx.Setup[slot]
	if info == nil {
		return Result{}, wrongPhase(PhaseSetup, a)
	}
	round := m.ctx.SetupRound(m.queue.Len())
	if !info.Behind(round) {
		return Result{}, fmt.Errorf("setup round %d already placed: %w", round, domain.ErrIllegalPlacement)
	}
	if next := info.NextRequired(); act.Piece != next {
		return Result{}, fmt.Errorf("expected %s, got %s: %w", next, act.Piece, domain.ErrIllegalPlacement)
	}
	if err := m.placeSetup(slot, act.Piece, act.At, false); err != nil {
		return Result{}, err
	}
	if !info.Behind(round) && !m.ended {
		p.advance(m)
	}
	return Result{}, nil
}

// forceEnd places whatever the holder still owes for this round at random
// legal positions.
func (p setupPhase) forceEnd(m *Match) {
	slot := m.queue.Head()
	info := m.ctx.Setup[slot]
	if info == nil {
		m.enter(PhaseEnd)
		return
	}
	round := m.ctx.SetupRound(m.queue.Len())
	for info.Behind(round) {
		kind := info.NextRequired()
		legal := m.setupPositions(slot, kind)
		if len(legal) == 0 {
			m.log.Warn("setupPhase.forceEnd: no legal %s for slot %d", kind, slot)
			break
		}
		if err := m.placeSetup(slot, kind, m.pick(legal), true); err != nil {
			m.log.Warn("setupPhase.forceEnd: auto %s for slot %d: %v", kind, slot, err)
			break
		}
	}
	if m.ended {
		return
	}
	p.advance(m)
}

// advance finishes one setup turn. The queue reverses after the first pass
// so the last participant places twice in a row, and again after the second
// pass so normal play starts with the first participant.
func (setupPhase) advance(m *Match) {
	n := m.queue.Len()
	m.ctx.SetupTurns++
	if m.ctx.SetupTurns == n || m.ctx.SetupTurns == 2*n {
		m.queue.RequestReversal()
	}
	m.enter(PhaseEnd)
}

// setupPositions lists setup placements: any settlement spot, or a road
// touching the settlement just placed.
func (m *Match) setupPositions(slot int, kind domain.PieceKind) []int {
	legal := m.board.LegalPositions(slot, kind, true)
	if kind != domain.Road {
		return legal
	}
	info := m.ctx.Setup[slot]
	if info == nil {
		return nil
	}
	last := info.LastSettlement()
	if last < 0 {
		return nil
	}
	adjacent := m.board.EdgesAtCorner(last)
	var out []int
	for _, e := range legal {
		if containsInt(adjacent, e) {
			out = append(out, e)
		}
	}
	return out
}

// placeSetup places a free setup piece. The second-round settlement pays
// out one resource per touching tile.
func (m *Match) placeSetup(slot int, kind domain.PieceKind, at int, auto bool) error {
	if err := m.placePiece(slot, kind, at, m.setupPositions(slot, kind), false, auto); err != nil {
		return err
	}
	info := m.ctx.Setup[slot]
	info.record(kind, at)
	if kind == domain.Settlement && len(info.Settlements) == 2 {
		var gain domain.Bundle
		for _, h := range m.board.HexesAtCorner(at) {
			if !h.Desert {
				gain[h.Resource]++
			}
		}
		if !gain.IsZero() {
			m.grant(0, map[int]domain.Bundle{slot: gain})
		}
	}
	return nil
}
