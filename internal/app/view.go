package app

import "settlers/internal/domain"

// View is what one participant may see of the match, enough to decide the
// next action.
type View struct {
	Slot   int
	Phase  PhaseKind
	Holder int
	MyTurn bool
	Ended  bool

	Resources  domain.Bundle
	DevCards   map[domain.DevCard]int
	Usable     []domain.DevCard
	CardPlayed bool
	Rolled     bool
	FreeRoads  int
	Points     int
	DeckSize   int

	// SetupNext is the piece owed during setup; SetupOwed is false when the
	// participant has nothing to place.
	SetupNext domain.PieceKind
	SetupOwed bool
	// Legal lists placements available to the participant right now.
	Legal map[domain.PieceKind][]int

	DiscardOwed  int
	Robber       int
	RobberPlaced bool
	Victims      []int

	Hexes  []domain.Hex
	Ports  []domain.Port
	Offers []domain.TradeOffer
	// Others maps each opponent's slot to their hand size.
	Others map[int]int
}

// ViewFor returns slot's view of the match.
func (m *Match) ViewFor(slot int) View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := View{
		Slot:   slot,
		Phase:  m.phase,
		Holder: m.queue.Head(),
		Ended:  m.ended,
		Robber: m.board.RobberHex(),
		Hexes:  m.board.Hexes(),
		Legal:  make(map[domain.PieceKind][]int),
		Others: make(map[int]int),
	}
	if !m.validSlot(slot) {
		return v
	}
	v.MyTurn = m.started && !m.ended && slot == v.Holder
	v.Resources = m.inv.Resources(slot)
	v.DevCards = m.inv.DevCards(slot)
	v.CardPlayed = m.ctx.CardPlayed
	v.Rolled = m.ctx.Rolled
	v.FreeRoads = m.ctx.FreeRoads
	v.Points = m.pointsOf(slot)
	v.DeckSize = m.inv.DeckSize()
	v.Ports = m.board.PortsOf(slot)
	v.Offers = m.trades.openFor(slot)
	v.RobberPlaced = m.ctx.RobberPlaced
	v.Victims = append([]int(nil), m.ctx.Victims...)
	if !m.ctx.Discarded[slot] {
		v.DiscardOwed = m.ctx.DiscardOwed[slot]
	}
	for q := range m.roster {
		if q != slot {
			v.Others[q] = m.inv.Resources(q).Total()
		}
	}

	if !v.MyTurn {
		return v
	}
	switch m.phase {
	case PhaseSetup:
		if info := m.ctx.Setup[slot]; info != nil && info.Behind(m.ctx.SetupRound(m.queue.Len())) {
			v.SetupOwed = true
			v.SetupNext = info.NextRequired()
			v.Legal[v.SetupNext] = m.setupPositions(slot, v.SetupNext)
		}
	case PhasePlay, PhaseBuild:
		for _, k := range []domain.PieceKind{domain.Settlement, domain.City, domain.Road} {
			if legal := m.legal(slot, k); len(legal) > 0 {
				v.Legal[k] = legal
			}
		}
	}
	for _, c := range []domain.DevCard{domain.Knight, domain.RoadBuilding, domain.YearOfPlenty, domain.Monopoly} {
		if (m.phase == PhaseDice || m.phase == PhasePlay) && m.cardUsable(slot, c) == nil {
			v.Usable = append(v.Usable, c)
		}
	}
	return v
}

// PieceView is a placed piece with its owner's current name.
type PieceView struct {
	Kind  string `json:"kind"`
	At    int    `json:"at"`
	Slot  int    `json:"slot"`
	Owner string `json:"owner"`
	Color string `json:"color"`
}

// Pieces lists every placed piece. Owners are resolved through the roster,
// so a rejoined human is shown on their old pieces again.
func (m *Match) Pieces() []PieceView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pieces()
}

func (m *Match) pieces() []PieceView {
	all := m.board.Pieces()
	out := make([]PieceView, 0, len(all))
	for _, pc := range all {
		pv := PieceView{Kind: pc.Kind.String(), At: pc.At, Slot: pc.Owner}
		if m.validSlot(pc.Owner) {
			pv.Owner = m.roster[pc.Owner].Name
			pv.Color = m.roster[pc.Owner].Color
		}
		out = append(out, pv)
	}
	return out
}

// Snapshot is the public state sent to a client that joins or resyncs.
type Snapshot struct {
	ID         string               `json:"id"`
	Phase      PhaseKind            `json:"phase"`
	Holder     int                  `json:"holder"`
	Queue      []int                `json:"queue"`
	Roster     []ParticipantPayload `json:"roster"`
	Points     []int                `json:"points"`
	Robber     int                  `json:"robber"`
	Pieces     []PieceView          `json:"pieces"`
	ArmyHolder int                  `json:"army_holder"`
	RoadHolder int                  `json:"road_holder"`
	Ended      bool                 `json:"ended"`
	LastRoll   int                  `json:"last_roll"`
	DeckSize   int                  `json:"deck_size"`
	OpenOffers []TradeOfferPayload  `json:"open_offers"`
}

// Snapshot returns the public match state.
func (m *Match) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		ID:         m.id,
		Phase:      m.phase,
		Holder:     m.queue.Head(),
		Queue:      m.queue.Snapshot(),
		Robber:     m.board.RobberHex(),
		Pieces:     m.pieces(),
		ArmyHolder: m.ctx.ArmyHolder,
		RoadHolder: m.roadHolder,
		Ended:      m.ended,
		LastRoll:   m.ctx.LastRoll,
		DeckSize:   m.inv.DeckSize(),
	}
	for i, p := range m.roster {
		s.Roster = append(s.Roster, participantPayload(p))
		s.Points = append(s.Points, m.pointsOf(i))
	}
	for _, id := range m.trades.order {
		s.OpenOffers = append(s.OpenOffers, OfferPayload(m.trades.offers[id]))
	}
	return s
}
