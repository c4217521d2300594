package app

import (
	"fmt"
	"sort"

	"settlers/internal/domain"
)

func (p robberDiscardPhase) begin(m *Match) {
	m.ctx.Discarded = make(map[int]bool)
	m.ctx.DiscardOwed = make(map[int]int)
	for slot := range m.roster {
		if total := m.inv.Resources(slot).Total(); total > m.rules.DiscardLimit {
			m.ctx.Discarded[slot] = false
			m.ctx.DiscardOwed[slot] = total / 2
		}
	}
	if len(m.ctx.Discarded) == 0 {
		p.advance(m)
		return
	}
	owed := make(map[int]int, len(m.ctx.DiscardOwed))
	for slot, n := range m.ctx.DiscardOwed {
		owed[slot] = n
	}
	m.publish(Event{Kind: EventDiscardRequested, Payload: DiscardRequestedPayload{Owed: owed}})
	m.restartTimer(m.rules.DiscardTime)
}

// handle accepts discards from any participant who still owes one, not only
// the turn holder.
func (p robberDiscardPhase) handle(m *Match, a Action) (Result, error) {
	act, ok := a.(DiscardCards)
	if !ok {
		return Result{}, wrongPhase(PhaseRobberDiscard, a)
	}
	slot := act.Actor
	done, required := m.ctx.Discarded[slot]
	if !required {
		return Result{}, fmt.Errorf("slot %d owes no discard: %w", slot, domain.ErrInvalidAction)
	}
	if done {
		return Result{}, fmt.Errorf("slot %d already discarded: %w", slot, domain.ErrInvalidAction)
	}
	owed := m.ctx.DiscardOwed[slot]
	if act.Cards.HasNegative() || act.Cards.Total() != owed {
		return Result{}, fmt.Errorf("slot %d must discard %d, offered %d: %w", slot, owed, act.Cards.Total(), domain.ErrInvalidAction)
	}
	if err := m.inv.RemoveResources(slot, act.Cards); err != nil {
		return Result{}, err
	}
	m.ctx.Discarded[slot] = true
	m.publish(Event{Kind: EventDiscardResolved, Payload: DiscardResolvedPayload{Slot: slot, Cards: act.Cards.Map()}})
	if m.allDiscarded() {
		p.advance(m)
	}
	return Result{}, nil
}

func (p robberDiscardPhase) forceEnd(m *Match) {
	for _, slot := range sortedKeys(m.ctx.Discarded) {
		if m.ctx.Discarded[slot] {
			continue
		}
		cards := m.randomCards(slot, m.ctx.DiscardOwed[slot])
		if err := m.inv.RemoveResources(slot, cards); err != nil {
			m.log.Warn("robberDiscardPhase.forceEnd: slot %d: %v", slot, err)
		}
		m.ctx.Discarded[slot] = true
		m.publish(Event{Kind: EventDiscardResolved, Payload: DiscardResolvedPayload{Slot: slot, Cards: cards.Map(), Auto: true}})
	}
	p.advance(m)
}

func (robberDiscardPhase) advance(m *Match) {
	m.enter(PhaseRobberPlacing)
}

func (m *Match) allDiscarded() bool {
	for _, done := range m.ctx.Discarded {
		if !done {
			return false
		}
	}
	return true
}

func (robberPlacingPhase) begin(m *Match) {
	m.ctx.RobberPlaced = false
	m.ctx.Victims = nil
	m.restartTimer(m.rules.RobberTime)
}

func (p robberPlacingPhase) handle(m *Match, a Action) (Result, error) {
	switch act := a.(type) {
	case PlaceRobber:
		if err := m.requireHolder(act.Actor); err != nil {
			return Result{}, err
		}
		if m.ctx.RobberPlaced {
			return Result{}, domain.ErrRobberAlreadyPlaced
		}
		if err := m.moveRobber(act.Actor, act.Hex, false); err != nil {
			return Result{}, err
		}
		if len(m.ctx.Victims) == 0 {
			p.advance(m)
			return Result{}, nil
		}
		return Result{Victims: append([]int(nil), m.ctx.Victims...)}, nil
	case PickVictim:
		if err := m.requireHolder(act.Actor); err != nil {
			return Result{}, err
		}
		if !m.ctx.RobberPlaced {
			return Result{}, fmt.Errorf("robber not placed yet: %w", domain.ErrInvalidAction)
		}
		if !containsInt(m.ctx.Victims, act.Victim) {
			return Result{}, fmt.Errorf("slot %d cannot be robbed: %w", act.Victim, domain.ErrInvalidAction)
		}
		m.steal(act.Actor, act.Victim)
		p.advance(m)
		return Result{}, nil
	default:
		return Result{}, wrongPhase(PhaseRobberPlacing, a)
	}
}

// forceEnd moves the robber to a random other tile if needed and robs the
// first eligible victim.
func (p robberPlacingPhase) forceEnd(m *Match) {
	holder := m.queue.Head()
	if !m.ctx.RobberPlaced {
		current := m.board.RobberHex()
		var candidates []int
		for _, h := range m.board.Hexes() {
			if h.ID != current {
				candidates = append(candidates, h.ID)
			}
		}
		if len(candidates) > 0 {
			if err := m.moveRobber(holder, m.pick(candidates), true); err != nil {
				m.log.Warn("robberPlacingPhase.forceEnd: %v", err)
			}
		}
	}
	if len(m.ctx.Victims) > 0 {
		m.steal(holder, m.ctx.Victims[0])
	}
	p.advance(m)
}

// advance resumes the turn: back to Dice when a knight was played before
// rolling, otherwise into Play.
func (robberPlacingPhase) advance(m *Match) {
	m.ctx.Victims = nil
	if m.ctx.CardBeforeDice && !m.ctx.Rolled {
		m.enter(PhaseDice)
		return
	}
	m.enter(PhasePlay)
}

func (m *Match) moveRobber(slot, hex int, auto bool) error {
	if err := m.board.MoveRobber(hex); err != nil {
		return err
	}
	m.ctx.RobberPlaced = true
	m.ctx.Victims = m.victimsAt(hex, slot)
	m.publish(Event{Kind: EventRobberMoved, Payload: RobberMovedPayload{Slot: slot, Hex: hex, Auto: auto}})
	return nil
}

// victimsAt lists opponents with a piece on hex and at least one card.
func (m *Match) victimsAt(hex, thief int) []int {
	seen := make(map[int]bool)
	for _, pc := range m.board.PiecesAroundHex(hex) {
		if pc.Owner == thief || seen[pc.Owner] {
			continue
		}
		if m.inv.Resources(pc.Owner).Total() > 0 {
			seen[pc.Owner] = true
		}
	}
	out := make([]int, 0, len(seen))
	for slot := range seen {
		out = append(out, slot)
	}
	sort.Ints(out)
	return out
}

// steal moves one random card from victim to thief. Only the two of them
// learn which resource it was.
func (m *Match) steal(thief, victim int) {
	units := m.inv.Resources(victim).Flatten()
	if len(units) == 0 {
		return
	}
	r := units[m.rng.Intn(len(units))]
	if err := m.inv.RemoveResources(victim, domain.Units(r, 1)); err != nil {
		m.log.Warn("steal: from slot %d: %v", victim, err)
		return
	}
	m.inv.AddResources(thief, domain.Units(r, 1))
	m.publish(Event{
		Kind:       EventResourceStolen,
		Payload:    ResourceStolenPayload{Thief: thief, Victim: victim, Resource: r.String()},
		Recipients: m.userIDs(thief, victim),
	})
}
