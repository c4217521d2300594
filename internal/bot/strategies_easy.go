package bot

import (
	"settlers/internal/app"
	"settlers/internal/domain"
)

// EasyBot places at random, never trades and ends its turn as soon as the
// mandatory steps are done.
type EasyBot struct {
	rng Rand
}

func (b *EasyBot) pick(xs []int) int {
	if b.rng == nil {
		return xs[0]
	}
	return xs[b.rng.Intn(len(xs))]
}

func (b *EasyBot) Decide(v app.View, g Geometry) app.Action {
	if v.Ended {
		return nil
	}
	if !v.MyTurn {
		return respond(v, never)
	}
	switch v.Phase {
	case app.PhaseSetup:
		if !v.SetupOwed || len(v.Legal[v.SetupNext]) == 0 {
			return nil
		}
		return app.PlacePiece{Actor: v.Slot, Piece: v.SetupNext, At: b.pick(v.Legal[v.SetupNext])}
	case app.PhaseDice:
		return app.RollDice{Actor: v.Slot}
	case app.PhaseRobberDiscard:
		return respond(v, never)
	case app.PhaseRobberPlacing:
		return robberMove(v, func(hexes []domain.Hex) int { return hexes[b.pick(indexes(len(hexes)))].ID })
	case app.PhaseBuild:
		if v.FreeRoads > 0 && len(v.Legal[domain.Road]) > 0 {
			return app.PlacePiece{Actor: v.Slot, Piece: domain.Road, At: b.pick(v.Legal[domain.Road])}
		}
		return app.CancelBuild{Actor: v.Slot}
	case app.PhasePlay:
		for _, k := range []domain.PieceKind{domain.City, domain.Settlement} {
			if legal := v.Legal[k]; len(legal) > 0 && v.Resources.Covers(k.Cost()) {
				return app.PlacePiece{Actor: v.Slot, Piece: k, At: b.pick(legal)}
			}
		}
	}
	return nil
}

func never(domain.TradeOffer) bool { return false }

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// robberMove places the robber with choose, then robs the richest victim.
func robberMove(v app.View, choose func([]domain.Hex) int) app.Action {
	if !v.RobberPlaced {
		var candidates []domain.Hex
		for _, h := range v.Hexes {
			if h.ID != v.Robber {
				candidates = append(candidates, h)
			}
		}
		if len(candidates) == 0 {
			return nil
		}
		return app.PlaceRobber{Actor: v.Slot, Hex: choose(candidates)}
	}
	if len(v.Victims) == 0 {
		return nil
	}
	victim := v.Victims[0]
	for _, s := range v.Victims {
		if v.Others[s] > v.Others[victim] {
			victim = s
		}
	}
	return app.PickVictim{Actor: v.Slot, Victim: victim}
}
