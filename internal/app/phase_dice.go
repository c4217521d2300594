package app

func (dicePhase) begin(m *Match) {
	m.restartTimer(m.rules.RollTime)
}

func (dicePhase) handle(m *Match, a Action) (Result, error) {
	switch act := a.(type) {
	case RollDice:
		if err := m.requireHolder(act.Actor); err != nil {
			return Result{}, err
		}
		m.roll(false)
		return Result{}, nil
	case QueryCardUse:
		return Result{CardUsable: m.cardUsable(act.Actor, act.Card) == nil}, nil
	case UseCard:
		return Result{}, m.useCard(act)
	default:
		return Result{}, wrongPhase(PhaseDice, a)
	}
}

func (dicePhase) forceEnd(m *Match) {
	m.roll(true)
}

// advance routes on the last roll: production happened for anything but a
// seven, which sends the match through the robber instead.
func (dicePhase) advance(m *Match) {
	if m.ctx.LastRoll != 7 {
		m.enter(PhasePlay)
		return
	}
	for slot := range m.roster {
		if m.inv.Resources(slot).Total() > m.rules.DiscardLimit {
			m.enter(PhaseRobberDiscard)
			return
		}
	}
	m.enter(PhaseRobberPlacing)
}

func (m *Match) roll(auto bool) {
	var d1, d2 int
	if o := m.ctx.DiceOverride; o != 0 {
		m.ctx.DiceOverride = 0
		d1 = o - 1
		if d1 > 6 {
			d1 = 6
		}
		d2 = o - d1
	} else {
		d1, d2 = m.rng.Intn(6)+1, m.rng.Intn(6)+1
	}
	total := d1 + d2
	holder := m.queue.Head()
	m.ctx.Rolled = true
	m.ctx.LastRoll = total
	m.publish(Event{Kind: EventDiceRolled, Payload: DiceRolledPayload{Slot: holder, Die1: d1, Die2: d2, Total: total, Auto: auto}})
	if total != 7 {
		m.produce(total)
	}
	dicePhase{}.advance(m)
}
