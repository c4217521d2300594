package app

import (
	"fmt"
	"sort"

	"settlers/internal/domain"
)

// advanceTurn rotates the queue and starts the new holder's turn.
func (m *Match) advanceTurn() {
	m.queue.Rotate()
	m.ctx.resetTurn()
	holder := m.queue.Head()
	m.playable = make(map[domain.DevCard]int)
	for card, n := range m.inv.DevCards(holder) {
		if card.Playable() && n > 0 {
			m.playable[card] = n
		}
	}
	m.publish(Event{Kind: EventTurnAdvanced, Payload: TurnAdvancedPayload{Holder: holder, Name: m.roster[holder].Name}})
}

func (m *Match) legal(slot int, kind domain.PieceKind) []int {
	return m.board.LegalPositions(slot, kind, false)
}

// placePiece puts kind at a position taken from legal, charging its cost
// when pay is set, then updates road and point bookkeeping.
func (m *Match) placePiece(slot int, kind domain.PieceKind, at int, legal []int, pay, auto bool) error {
	if !containsInt(legal, at) {
		return fmt.Errorf("%s at %d: %w", kind, at, domain.ErrIllegalPlacement)
	}
	cost := kind.Cost()
	if pay && !m.inv.Resources(slot).Covers(cost) {
		return fmt.Errorf("%s costs %s: %w", kind, cost, domain.ErrInsufficientResources)
	}
	if err := m.board.Place(slot, kind, at); err != nil {
		return err
	}
	if pay {
		if err := m.inv.RemoveResources(slot, cost); err != nil {
			m.log.Error("placePiece: paying for %s at %d by slot %d: %v", kind, at, slot, err)
		}
	}
	m.publish(Event{Kind: EventPiecePlaced, Payload: PiecePlacedPayload{
		Slot:  slot,
		Name:  m.roster[slot].Name,
		Piece: kind.String(),
		At:    at,
		Free:  !pay,
		Auto:  auto,
	}})
	switch kind {
	case domain.Road:
		m.roadPlaced(slot)
	case domain.Settlement:
		m.settlementPlaced(slot, at)
	}
	m.refreshPoints()
	return nil
}

// produce hands out resources for a roll. The robber's tile yields nothing.
func (m *Match) produce(roll int) {
	robber := m.board.RobberHex()
	gains := make(map[int]domain.Bundle)
	for _, h := range m.board.Hexes() {
		if h.ID == robber || !h.Produces(roll) {
			continue
		}
		for _, pc := range m.board.PiecesAroundHex(h.ID) {
			g := gains[pc.Owner]
			g[h.Resource] += pc.Kind.Yield()
			gains[pc.Owner] = g
		}
	}
	m.grant(roll, gains)
}

func (m *Match) grant(roll int, gains map[int]domain.Bundle) {
	payload := ResourcesProducedPayload{Roll: roll, Gains: make(map[int]map[string]int, len(gains))}
	for slot, b := range gains {
		m.inv.AddResources(slot, b)
		payload.Gains[slot] = b.Map()
	}
	m.publish(Event{Kind: EventResourcesProduced, Payload: payload})
}

// pointsOf counts settlements, cities, victory point cards and bonuses.
func (m *Match) pointsOf(slot int) int {
	pts := m.board.Count(slot, domain.Settlement)*domain.Settlement.Points() +
		m.board.Count(slot, domain.City)*domain.City.Points() +
		m.inv.DevCards(slot)[domain.VictoryPoint]
	if m.ctx.ArmyHolder == slot {
		pts += domain.LargestArmyPoints
	}
	if m.roadHolder == slot {
		pts += domain.LongestRoadPoints
	}
	return pts
}

// refreshPoints announces changed totals and checks for a winner.
func (m *Match) refreshPoints() {
	for slot := range m.roster {
		pts := m.pointsOf(slot)
		if pts == m.points[slot] {
			continue
		}
		m.points[slot] = pts
		m.publish(Event{Kind: EventVictoryPoints, Payload: VictoryPointsPayload{Slot: slot, Points: pts}})
	}
	m.checkVictory()
}

func (m *Match) checkVictory() {
	if m.ended {
		return
	}
	for slot := range m.roster {
		if m.points[slot] >= m.rules.VictoryPoints {
			m.finish()
			return
		}
	}
}

// finish ends the match. Nothing runs after it: the timer is dead and
// enter refuses every transition.
func (m *Match) finish() {
	m.ended = true
	m.timer.Stop()
	m.timer.Kill()
	m.standings = m.rank()
	winner := m.standings[0]
	m.publish(Event{Kind: EventGameOver, Payload: GameOverPayload{Winner: winner.Slot, Standings: m.standings}})
	m.rec.GameFinished()
	m.log.Info("finish: match %s won by slot %d with %d points", m.id, winner.Slot, winner.Points)
}

// knightPlayed updates the largest army after slot uses a knight.
func (m *Match) knightPlayed(slot int) {
	m.knights[slot]++
	n := m.knights[slot]
	holder := m.ctx.ArmyHolder
	if holder == slot || n <= m.ctx.ArmyThreshold {
		return
	}
	if holder != noHolder && n <= m.knights[holder] {
		return
	}
	m.ctx.ArmyHolder = slot
	m.publish(Event{Kind: EventLargestArmy, Payload: BonusChangedPayload{Holder: slot, Previous: holder, Length: n}})
}

// roadPlaced records slot's longest road and awards the bonus when the
// road is long enough and strictly longer than everyone else's.
func (m *Match) roadPlaced(slot int) {
	m.roads[slot] = m.board.LongestRoad(slot)
	n := len(m.roads[slot])
	if m.roadHolder == slot || n < m.rules.LongestRoadMin {
		return
	}
	for q, path := range m.roads {
		if q != slot && len(path) >= n {
			return
		}
	}
	m.setRoadHolder(slot)
}

// settlementPlaced recomputes any recorded road the new settlement cuts
// through. A settlement only breaks a path when two of the path's edges
// meet at its corner.
func (m *Match) settlementPlaced(slot, corner int) {
	edges := m.board.EdgesAtCorner(corner)
	var broken []int
	for q := range m.roster {
		if q == slot {
			continue
		}
		hits := 0
		for _, e := range edges {
			if containsInt(m.roads[q], e) {
				hits++
			}
		}
		if hits >= 2 {
			broken = append(broken, q)
		}
	}
	if len(broken) == 0 {
		return
	}

	holder := m.roadHolder
	prior := 0
	if holder != noHolder {
		prior = len(m.roads[holder])
	}
	for _, q := range broken {
		m.roads[q] = m.board.LongestRoad(q)
		m.log.Debug("settlementPlaced: corner %d cut slot %d's road to %d", corner, q, len(m.roads[q]))
	}
	if holder == noHolder || !containsInt(broken, holder) {
		return
	}

	best, leaders := 0, []int(nil)
	for q := range m.roster {
		switch n := len(m.roads[q]); {
		case n > best:
			best, leaders = n, []int{q}
		case n == best:
			leaders = append(leaders, q)
		}
	}
	if len(leaders) == 1 && best >= prior && best >= m.rules.LongestRoadMin {
		m.setRoadHolder(leaders[0])
		return
	}
	m.setRoadHolder(noHolder)
}

func (m *Match) setRoadHolder(slot int) {
	if slot == m.roadHolder {
		return
	}
	prev := m.roadHolder
	m.roadHolder = slot
	length := 0
	if slot != noHolder {
		length = len(m.roads[slot])
	}
	m.publish(Event{Kind: EventLongestRoad, Payload: BonusChangedPayload{Holder: slot, Previous: prev, Length: length}})
}

// RoadHolder returns the slot holding the longest road bonus, or -1.
func (m *Match) RoadHolder() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roadHolder
}

// ArmyHolder returns the slot holding the largest army bonus, or -1.
func (m *Match) ArmyHolder() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx.ArmyHolder
}

// randomCards picks n distinct units from slot's hand.
func (m *Match) randomCards(slot, n int) domain.Bundle {
	units := m.inv.Resources(slot).Flatten()
	if n > len(units) {
		n = len(units)
	}
	var out domain.Bundle
	for i := 0; i < n; i++ {
		j := i + m.rng.Intn(len(units)-i)
		units[i], units[j] = units[j], units[i]
		out[units[i]]++
	}
	return out
}

// exchange swaps bundles between two participants, all or nothing.
func (m *Match) exchange(a int, give domain.Bundle, b int, take domain.Bundle) error {
	if err := m.inv.RemoveResources(a, give); err != nil {
		return err
	}
	if err := m.inv.RemoveResources(b, take); err != nil {
		m.inv.AddResources(a, give)
		return err
	}
	m.inv.AddResources(a, take)
	m.inv.AddResources(b, give)
	return nil
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
