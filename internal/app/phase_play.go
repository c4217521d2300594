package app

import (
	"fmt"

	"settlers/internal/domain"
)

// begin grants the full turn deadline when play opens after the roll. Coming
// back from Build or Trade keeps the running deadline, and coming back from
// a knight's robber restores what was left of it.
func (playPhase) begin(m *Match) {
	if m.prev == PhaseRobberPlacing && m.ctx.ResumeTurn {
		m.ctx.ResumeTurn = false
		m.restartTimer(m.ctx.TurnLeft)
		return
	}
	switch m.prev {
	case PhaseDice, PhaseRobberDiscard, PhaseRobberPlacing:
		m.restartTimer(m.rules.TurnTime)
	}
}

func (playPhase) handle(m *Match, a Action) (Result, error) {
	// Every play action belongs to the turn holder.
	if err := m.requireHolder(a.Sender()); err != nil {
		return Result{}, err
	}
	switch act := a.(type) {
	case StartBuild:
		return m.startBuild(act)
	case PlacePiece:
		return Result{}, m.buildPaid(act.Actor, act.Piece, act.At)
	case StartTrade:
		return m.startTrade(act)
	case StartBankTrade:
		return Result{}, m.bankTrade(act)
	case BuyCard:
		return m.buyCard(act)
	case QueryCardUse:
		return Result{CardUsable: m.cardUsable(act.Actor, act.Card) == nil}, nil
	case UseCard:
		return Result{}, m.useCard(act)
	default:
		return Result{}, wrongPhase(PhasePlay, a)
	}
}

func (p playPhase) forceEnd(m *Match) { p.advance(m) }

func (playPhase) advance(m *Match) { m.enter(PhaseEnd) }

// startBuild selects a piece and enters Build, answering with where it may
// go. The match stays put when the piece is unaffordable or has no spot.
func (m *Match) startBuild(act StartBuild) (Result, error) {
	kind := act.Piece
	if !m.inv.Resources(act.Actor).Covers(kind.Cost()) {
		return Result{}, fmt.Errorf("%s costs %s: %w", kind, kind.Cost(), domain.ErrInsufficientResources)
	}
	legal := m.legal(act.Actor, kind)
	if len(legal) == 0 {
		return Result{}, fmt.Errorf("no legal %s: %w", kind, domain.ErrIllegalPlacement)
	}
	m.ctx.Building = kind
	if m.phase != PhaseBuild {
		m.enter(PhaseBuild)
	}
	return Result{Positions: legal}, nil
}

func (m *Match) buildPaid(slot int, kind domain.PieceKind, at int) error {
	return m.placePiece(slot, kind, at, m.legal(slot, kind), true, false)
}

func (m *Match) buyCard(act BuyCard) (Result, error) {
	slot := act.Actor
	if !m.inv.Resources(slot).Covers(domain.DevCardCost) {
		return Result{}, fmt.Errorf("card costs %s: %w", domain.DevCardCost, domain.ErrInsufficientResources)
	}
	if m.inv.DeckSize() == 0 {
		return Result{}, domain.ErrDeckEmpty
	}
	card, err := m.inv.DrawDevCard()
	if err != nil {
		return Result{}, err
	}
	if err := m.inv.RemoveResources(slot, domain.DevCardCost); err != nil {
		return Result{}, err
	}
	m.inv.AddDevCard(slot, card)
	m.publish(Event{Kind: EventCardBought, Payload: CardBoughtPayload{Slot: slot}})
	if card == domain.VictoryPoint {
		m.refreshPoints()
	}
	return Result{Drawn: &card}, nil
}

// cardUsable checks whether slot may play card now. Cards bought this turn
// are not in the playable set, and only one card may be played per turn.
func (m *Match) cardUsable(slot int, card domain.DevCard) error {
	if err := m.requireHolder(slot); err != nil {
		return err
	}
	if !card.Playable() {
		return fmt.Errorf("%s is never played: %w", card, domain.ErrCardUnavailable)
	}
	if m.ctx.CardPlayed {
		return fmt.Errorf("a card was already played this turn: %w", domain.ErrCardUnavailable)
	}
	if m.playable[card] <= 0 || m.inv.DevCards(slot)[card] <= 0 {
		return fmt.Errorf("no playable %s: %w", card, domain.ErrCardUnavailable)
	}
	if card == domain.RoadBuilding && len(m.legal(slot, domain.Road)) == 0 {
		return fmt.Errorf("no road to build: %w", domain.ErrCardUnavailable)
	}
	return nil
}

func (m *Match) useCard(act UseCard) error {
	slot := act.Actor
	if err := m.cardUsable(slot, act.Card); err != nil {
		return err
	}
	switch act.Card {
	case domain.YearOfPlenty:
		if len(act.Picks) != 2 || !act.Picks[0].Valid() || !act.Picks[1].Valid() {
			return fmt.Errorf("year of plenty needs two resources: %w", domain.ErrInvalidAction)
		}
	case domain.Monopoly:
		if !act.Resource.Valid() {
			return fmt.Errorf("monopoly on %s: %w", act.Resource, domain.ErrInvalidAction)
		}
	}
	if err := m.inv.RemoveDevCard(slot, act.Card); err != nil {
		return err
	}
	m.playable[act.Card]--
	m.ctx.CardPlayed = true
	m.ctx.CardBeforeDice = m.phase == PhaseDice
	used := CardUsedPayload{Slot: slot, Card: act.Card.String()}

	switch act.Card {
	case domain.Knight:
		m.publish(Event{Kind: EventCardUsed, Payload: used})
		m.knightPlayed(slot)
		m.refreshPoints()
		if m.phase == PhasePlay {
			m.ctx.TurnLeft = m.timer.Remaining()
			m.ctx.ResumeTurn = true
		}
		m.enter(PhaseRobberPlacing)
	case domain.RoadBuilding:
		credits := 2
		if left := domain.MaxRoads - m.board.Count(slot, domain.Road); left < credits {
			credits = left
		}
		m.ctx.FreeRoads = credits
		m.ctx.Building = domain.Road
		m.publish(Event{Kind: EventCardUsed, Payload: used})
		m.enter(PhaseBuild)
	case domain.YearOfPlenty:
		gained := domain.Units(act.Picks[0], 1).Add(domain.Units(act.Picks[1], 1))
		m.inv.AddResources(slot, gained)
		used.Gained = gained.Map()
		m.publish(Event{Kind: EventCardUsed, Payload: used})
	case domain.Monopoly:
		r := act.Resource
		taken := 0
		for q := range m.roster {
			if q == slot {
				continue
			}
			n := m.inv.Resources(q)[r]
			if n == 0 {
				continue
			}
			if err := m.inv.RemoveResources(q, domain.Units(r, n)); err != nil {
				m.log.Warn("useCard: monopoly could not take %d %s from slot %d: %v", n, r, q, err)
				continue
			}
			taken += n
		}
		gained := domain.Units(r, taken)
		m.inv.AddResources(slot, gained)
		used.Gained = gained.Map()
		used.Resource = r.String()
		m.publish(Event{Kind: EventCardUsed, Payload: used})
	}
	return nil
}
