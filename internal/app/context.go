package app

import (
	"time"

	"settlers/internal/domain"
)

// SetupInfo tracks one participant's placements during the setup rounds.
type SetupInfo struct {
	Settlements []int
	Roads       []int
}

// NextRequired is the piece the participant must place next: a settlement
// until it is matched by a road.
func (s *SetupInfo) NextRequired() domain.PieceKind {
	if len(s.Settlements) <= len(s.Roads) {
		return domain.Settlement
	}
	return domain.Road
}

// Placements counts tracked pieces.
func (s *SetupInfo) Placements() int {
	return len(s.Settlements) + len(s.Roads)
}

// Done reports whether both rounds' pieces are placed.
func (s *SetupInfo) Done() bool {
	return s.Placements() >= 4
}

// Behind reports whether the participant still owes pieces for round
// (1 or 2).
func (s *SetupInfo) Behind(round int) bool {
	return s.Placements() < 2*round
}

// LastSettlement returns the most recent settlement corner, or -1.
func (s *SetupInfo) LastSettlement() int {
	if len(s.Settlements) == 0 {
		return -1
	}
	return s.Settlements[len(s.Settlements)-1]
}

func (s *SetupInfo) record(kind domain.PieceKind, at int) {
	if kind == domain.Road {
		s.Roads = append(s.Roads, at)
		return
	}
	s.Settlements = append(s.Settlements, at)
}

// TurnContext is the turn-scoped state shared by all phases. It lives as
// long as the match and is reset piecewise at phase and turn boundaries.
type TurnContext struct {
	LastAction Action

	// FreeRoads counts road credits left from a road building card.
	FreeRoads int
	// Building is the piece selected by the last StartBuild.
	Building domain.PieceKind

	ArmyHolder    int
	ArmyThreshold int

	// Setup is nil once setup has completed.
	Setup      map[int]*SetupInfo
	SetupTurns int

	// Discarded maps each participant who must discard to whether they have.
	Discarded map[int]bool
	// DiscardOwed is how many cards each of them must give up.
	DiscardOwed map[int]int

	RobberPlaced bool
	Victims      []int

	// CardPlayed is set once the turn holder uses a card this turn.
	CardPlayed bool
	// CardBeforeDice marks a card used before rolling; the match returns to
	// Dice once the card's effect resolves.
	CardBeforeDice bool
	Rolled         bool
	LastRoll       int
	// TurnLeft holds what was left of the turn deadline when a knight
	// interrupted Play. ResumeTurn marks it as set.
	TurnLeft   time.Duration
	ResumeTurn bool

	// DiceOverride, when non-zero, replaces the next roll and is cleared.
	DiceOverride int
}

func newTurnContext(roster int, threshold int) *TurnContext {
	c := &TurnContext{
		ArmyHolder:    noHolder,
		ArmyThreshold: threshold,
		Setup:         make(map[int]*SetupInfo, roster),
	}
	for i := 0; i < roster; i++ {
		c.Setup[i] = &SetupInfo{}
	}
	return c
}

// SetupRound is 1 for the first pass over the roster and 2 for the second.
func (c *TurnContext) SetupRound(roster int) int {
	if c.SetupTurns < roster {
		return 1
	}
	return 2
}

// SetupComplete reports whether both setup passes have finished.
func (c *TurnContext) SetupComplete(roster int) bool {
	return c.SetupTurns >= 2*roster
}

// resetTurn clears the per-turn flags for a new turn holder.
func (c *TurnContext) resetTurn() {
	c.FreeRoads = 0
	c.RobberPlaced = false
	c.Victims = nil
	c.CardPlayed = false
	c.CardBeforeDice = false
	c.Rolled = false
	c.LastRoll = 0
	c.TurnLeft = 0
	c.ResumeTurn = false
	c.Discarded = nil
	c.DiscardOwed = nil
}
