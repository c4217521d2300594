// Package bot drives autonomous participants. A bot sees exactly what a
// human would through app.View and answers with the same app.Action values.
package bot

import (
	"fmt"
	"strings"

	"settlers/internal/app"
	"settlers/internal/domain"
)

// BotLevel selects a strategy.
type BotLevel int

const (
	BotLevelEasy BotLevel = iota
	BotLevelGood
)

// ParseLevel maps an identity's difficulty to a level. Anything above easy
// plays the good strategy.
func ParseLevel(difficulty string) BotLevel {
	switch strings.ToLower(difficulty) {
	case "", "easy":
		return BotLevelEasy
	default:
		return BotLevelGood
	}
}

// Geometry is the fixed board layout a strategy may consult. It must not
// expose piece or robber state, which only the view carries.
type Geometry interface {
	HexesAtCorner(corner int) []domain.Hex
}

// Brain decides the next action for one participant. A nil action means
// there is nothing to do.
type Brain interface {
	Decide(v app.View, g Geometry) app.Action
}

// NewBrain creates a strategy for the given level.
func NewBrain(level BotLevel, rng Rand) (Brain, error) {
	switch level {
	case BotLevelEasy:
		return &EasyBot{rng: rng}, nil
	case BotLevelGood:
		return &GoodBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}

// Rand is the randomness easy bots draw from.
type Rand interface {
	Intn(n int) int
}

// discardChoice gives up the owed count from the largest stacks first.
func discardChoice(hand domain.Bundle, owed int) domain.Bundle {
	var out domain.Bundle
	for owed > 0 {
		best := -1
		for _, r := range domain.AllResources() {
			left := hand[r] - out[r]
			if left > 0 && (best < 0 || left > hand[best]-out[best]) {
				best = int(r)
			}
		}
		if best < 0 {
			break
		}
		out[best]++
		owed--
	}
	return out
}

// respond handles everything a bot does outside its own turn: discarding
// and answering offers.
func respond(v app.View, accept func(o domain.TradeOffer) bool) app.Action {
	if v.DiscardOwed > 0 {
		return app.DiscardCards{Actor: v.Slot, Cards: discardChoice(v.Resources, v.DiscardOwed)}
	}
	for _, o := range v.Offers {
		if o.From == v.Slot {
			continue
		}
		if v.Resources.Covers(o.Want) && accept(o) {
			return app.AcceptTrade{Actor: v.Slot, OfferID: o.ID}
		}
		return app.DeclineTrade{Actor: v.Slot, OfferID: o.ID}
	}
	return nil
}

// pips is how often a number comes up out of 36 rolls.
func pips(n int) int {
	if n < 2 || n > 12 || n == 7 {
		return 0
	}
	if n < 7 {
		return n - 1
	}
	return 13 - n
}
