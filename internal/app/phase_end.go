package app

// The end phase is transient: entering it clears leftover offers, passes
// the turn and immediately moves on.
func (p endPhase) begin(m *Match) {
	m.sweepTrades()
	m.advanceTurn()
	p.advance(m)
}

func (endPhase) handle(m *Match, a Action) (Result, error) {
	return Result{}, wrongPhase(PhaseEnd, a)
}

func (endPhase) forceEnd(m *Match) {}

func (endPhase) advance(m *Match) {
	if !m.ctx.SetupComplete(m.queue.Len()) {
		m.enter(PhaseSetup)
		return
	}
	if m.ctx.Setup != nil {
		m.ctx.Setup = nil
		m.log.Info("endPhase.advance: setup complete in match %s", m.id)
	}
	m.enter(PhaseDice)
}
