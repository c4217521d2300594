package bot

import (
	"sort"

	"settlers/internal/app"
	"settlers/internal/domain"
)

// GoodBot scores corners by expected production, builds the most valuable
// piece it can afford, trades with the bank toward its next build and
// accepts offers that move it closer to one.
type GoodBot struct{}

func (b *GoodBot) Decide(v app.View, g Geometry) app.Action {
	if v.Ended {
		return nil
	}
	if !v.MyTurn {
		return respond(v, func(o domain.TradeOffer) bool { return goodDeal(v.Resources, o) })
	}
	switch v.Phase {
	case app.PhaseSetup:
		legal := v.Legal[v.SetupNext]
		if !v.SetupOwed || len(legal) == 0 {
			return nil
		}
		at := legal[0]
		if v.SetupNext == domain.Settlement {
			at = bestCorner(legal, g)
		}
		return app.PlacePiece{Actor: v.Slot, Piece: v.SetupNext, At: at}
	case app.PhaseDice:
		if hasCard(v.Usable, domain.Knight) && v.Robber >= 0 && DefaultTuning.KnightBeforeRoll {
			return app.UseCard{Actor: v.Slot, Card: domain.Knight}
		}
		return app.RollDice{Actor: v.Slot}
	case app.PhaseRobberDiscard:
		return respond(v, never)
	case app.PhaseRobberPlacing:
		return robberMove(v, richestHex)
	case app.PhaseBuild:
		if v.FreeRoads > 0 && len(v.Legal[domain.Road]) > 0 {
			return app.PlacePiece{Actor: v.Slot, Piece: domain.Road, At: v.Legal[domain.Road][0]}
		}
		return app.CancelBuild{Actor: v.Slot}
	case app.PhasePlay:
		return b.play(v, g)
	}
	return nil
}

func (b *GoodBot) play(v app.View, g Geometry) app.Action {
	if act := b.useCard(v); act != nil {
		return act
	}
	if legal := v.Legal[domain.City]; len(legal) > 0 && v.Resources.Covers(domain.City.Cost()) {
		return app.PlacePiece{Actor: v.Slot, Piece: domain.City, At: bestCorner(legal, g)}
	}
	if legal := v.Legal[domain.Settlement]; len(legal) > 0 && v.Resources.Covers(domain.Settlement.Cost()) {
		return app.PlacePiece{Actor: v.Slot, Piece: domain.Settlement, At: bestCorner(legal, g)}
	}
	if len(v.Legal[domain.Settlement]) == 0 && len(v.Legal[domain.Road]) > 0 && v.Resources.Covers(domain.Road.Cost()) {
		return app.PlacePiece{Actor: v.Slot, Piece: domain.Road, At: v.Legal[domain.Road][0]}
	}
	if v.DeckSize > 0 && v.Resources.Covers(domain.DevCardCost) {
		return app.BuyCard{Actor: v.Slot}
	}
	if offer, want, ok := bankTrade(v); ok {
		return app.StartBankTrade{Actor: v.Slot, Offer: offer, Want: want}
	}
	return nil
}

func (b *GoodBot) useCard(v app.View) app.Action {
	for _, c := range v.Usable {
		switch c {
		case domain.YearOfPlenty:
			picks := shortfall(v.Resources, target(v))
			for len(picks) < 2 {
				picks = append(picks, domain.Ore)
			}
			return app.UseCard{Actor: v.Slot, Card: c, Picks: picks[:2]}
		case domain.Monopoly:
			if total(v.Others) >= DefaultTuning.MonopolyMinCards {
				return app.UseCard{Actor: v.Slot, Card: c, Resource: domain.Ore}
			}
		case domain.RoadBuilding:
			if len(v.Legal[domain.Road]) > 0 {
				return app.UseCard{Actor: v.Slot, Card: c}
			}
		case domain.Knight:
			return app.UseCard{Actor: v.Slot, Card: c}
		}
	}
	return nil
}

// target is the next piece the bot saves for.
func target(v app.View) domain.Bundle {
	if len(v.Legal[domain.City]) > 0 {
		return domain.City.Cost()
	}
	if len(v.Legal[domain.Settlement]) > 0 {
		return domain.Settlement.Cost()
	}
	return domain.DevCardCost
}

// shortfall lists, one entry per unit, what hand lacks to cover cost.
func shortfall(hand, cost domain.Bundle) []domain.Resource {
	var out []domain.Resource
	for _, r := range domain.AllResources() {
		for n := hand[r]; n < cost[r]; n++ {
			out = append(out, r)
		}
	}
	return out
}

// bankTrade swaps a surplus stack for one missing unit of the target.
func bankTrade(v app.View) (domain.Bundle, domain.Bundle, bool) {
	goal := target(v)
	missing := shortfall(v.Resources, goal)
	if len(missing) == 0 {
		return domain.Bundle{}, domain.Bundle{}, false
	}
	for _, r := range domain.AllResources() {
		d := domain.BankDivisor(v.Ports, r)
		if v.Resources[r]-goal[r] >= d {
			return domain.Units(r, d), domain.Units(missing[0], 1), true
		}
	}
	return domain.Bundle{}, domain.Bundle{}, false
}

// goodDeal accepts offers that hand over surplus for something scarcer.
func goodDeal(hand domain.Bundle, o domain.TradeOffer) bool {
	if o.Want.Total() > o.Offer.Total() {
		return false
	}
	after := hand.Sub(o.Want).Add(o.Offer)
	return len(shortfall(after, domain.City.Cost()))+len(shortfall(after, domain.Settlement.Cost())) <
		len(shortfall(hand, domain.City.Cost()))+len(shortfall(hand, domain.Settlement.Cost()))
}

// bestCorner picks the corner with the most expected production, breaking
// ties toward resource variety and then the lowest id.
func bestCorner(corners []int, g Geometry) int {
	type scored struct {
		corner int
		score  float64
	}
	var all []scored
	for _, c := range corners {
		all = append(all, scored{corner: c, score: cornerScore(c, g)})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	return all[0].corner
}

func cornerScore(c int, g Geometry) float64 {
	if g == nil {
		return 0
	}
	seen := map[domain.Resource]bool{}
	score := 0.0
	for _, h := range g.HexesAtCorner(c) {
		if h.Desert {
			continue
		}
		score += float64(pips(h.Number)) * DefaultTuning.ResourceWeight[h.Resource]
		if !seen[h.Resource] {
			seen[h.Resource] = true
			score += DefaultTuning.VarietyBonus
		}
	}
	return score
}

func richestHex(hexes []domain.Hex) int {
	best := hexes[0]
	for _, h := range hexes[1:] {
		if pips(h.Number) > pips(best.Number) {
			best = h
		}
	}
	return best.ID
}

func hasCard(cards []domain.DevCard, c domain.DevCard) bool {
	for _, x := range cards {
		if x == c {
			return true
		}
	}
	return false
}

func total(m map[int]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
