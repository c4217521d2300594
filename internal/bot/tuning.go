package bot

import "settlers/internal/domain"

// Tuning holds the knobs of the good strategy.
type Tuning struct {
	// ResourceWeight scales a hex's pips by how much the resource is worth
	// early in the game.
	ResourceWeight map[domain.Resource]float64
	// VarietyBonus is added once per distinct resource around a corner.
	VarietyBonus float64
	// MonopolyMinCards is how many cards opponents must hold in total before
	// monopoly is worth playing.
	MonopolyMinCards int
	KnightBeforeRoll bool
}

var DefaultTuning = Tuning{
	ResourceWeight: map[domain.Resource]float64{
		domain.Brick:  1.0,
		domain.Lumber: 1.0,
		domain.Wool:   0.8,
		domain.Grain:  1.1,
		domain.Ore:    1.1,
	},
	VarietyBonus:     1.5,
	MonopolyMinCards: 6,
	KnightBeforeRoll: true,
}
