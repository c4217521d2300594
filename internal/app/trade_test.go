package app

import (
	"errors"
	"testing"

	"settlers/internal/domain"
)

var (
	oneBrick = domain.Units(domain.Brick, 1)
	oneOre   = domain.Units(domain.Ore, 1)
)

func canceledIDs(s *recordSink) map[string]bool {
	out := make(map[string]bool)
	for _, ev := range s.events {
		if p, ok := ev.Payload.(TradeCanceledPayload); ok {
			out[p.ID] = true
		}
	}
	return out
}

func TestOpenOfferAcceptedCancelsCounters(t *testing.T) {
	f := newFixture(t, 3, nil, Rules{})
	f.toPlay()
	f.give(0, oneBrick)
	f.give(1, domain.Units(domain.Ore, 2))
	f.give(2, oneOre)

	res := mustSubmit(t, f.m, StartTrade{Actor: 0, To: domain.Anyone, Offer: oneBrick, Want: oneOre})
	if f.m.Phase() != PhaseTrade {
		t.Fatalf("phase = %s, want trade", f.m.Phase())
	}
	counter := mustSubmit(t, f.m, StartCounter{Actor: 1, OfferID: res.OfferID, Offer: domain.Units(domain.Ore, 2), Want: oneBrick})
	if len(f.m.ViewFor(0).Offers) != 2 {
		t.Fatalf("offerer sees %d offers, want 2", len(f.m.ViewFor(0).Offers))
	}

	mustSubmit(t, f.m, AcceptTrade{Actor: 2, OfferID: res.OfferID})
	if f.inv.Resources(0) != oneOre || f.inv.Resources(2) != oneBrick {
		t.Fatalf("after exchange 0 = %v 2 = %v", f.inv.Resources(0), f.inv.Resources(2))
	}
	if !canceledIDs(f.sink)[counter.OfferID] {
		t.Fatalf("counter %s not canceled", counter.OfferID)
	}
	for slot := 0; slot < 3; slot++ {
		if n := len(f.m.ViewFor(slot).Offers); n != 0 {
			t.Fatalf("slot %d still holds %d offers", slot, n)
		}
	}
	if f.m.Phase() != PhasePlay {
		t.Fatalf("phase = %s, want play", f.m.Phase())
	}
}

func TestCounterAcceptedByOfferer(t *testing.T) {
	f := newFixture(t, 3, nil, Rules{})
	f.toPlay()
	f.give(0, domain.Units(domain.Brick, 2))
	f.give(1, oneOre)

	res := mustSubmit(t, f.m, StartTrade{Actor: 0, To: domain.Anyone, Offer: oneBrick, Want: oneOre})
	counter := mustSubmit(t, f.m, StartCounter{Actor: 1, OfferID: res.OfferID, Offer: oneOre, Want: domain.Units(domain.Brick, 2)})

	var ne *NegotiationError
	if _, err := f.m.SubmitAction(AcceptTrade{Actor: 2, OfferID: counter.OfferID}); !errors.As(err, &ne) {
		t.Fatalf("outsider accept err = %v, want NegotiationError", err)
	}
	if _, err := f.m.SubmitAction(AcceptTrade{Actor: 1, OfferID: counter.OfferID}); !errors.As(err, &ne) {
		t.Fatalf("author accept err = %v, want NegotiationError", err)
	}

	mustSubmit(t, f.m, AcceptTrade{Actor: 0, OfferID: counter.OfferID})
	if f.inv.Resources(0) != oneOre || f.inv.Resources(1) != domain.Units(domain.Brick, 2) {
		t.Fatalf("after exchange 0 = %v 1 = %v", f.inv.Resources(0), f.inv.Resources(1))
	}
	if !canceledIDs(f.sink)[res.OfferID] {
		t.Fatalf("original offer left open")
	}
	if f.m.Phase() != PhasePlay {
		t.Fatalf("phase = %s, want play", f.m.Phase())
	}
}

func TestNegotiationChecks(t *testing.T) {
	f := newFixture(t, 3, nil, Rules{})
	f.toPlay()
	f.give(0, oneBrick)
	res := mustSubmit(t, f.m, StartTrade{Actor: 0, To: 1, Offer: oneBrick, Want: oneOre})

	tests := []struct {
		name string
		act  Action
	}{
		{"offerer accepts own", AcceptTrade{Actor: 0, OfferID: res.OfferID}},
		{"addressee cancels", CancelTrade{Actor: 1, OfferID: res.OfferID}},
		{"outsider accepts", AcceptTrade{Actor: 2, OfferID: res.OfferID}},
		{"outsider declines", DeclineTrade{Actor: 2, OfferID: res.OfferID}},
		{"unknown offer", AcceptTrade{Actor: 1, OfferID: "missing"}},
		{"offerer counters", StartCounter{Actor: 0, OfferID: res.OfferID, Offer: oneBrick, Want: oneOre}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.m.SubmitAction(tt.act)
			var ne *NegotiationError
			if !errors.As(err, &ne) || !errors.Is(err, domain.ErrNegotiation) {
				t.Fatalf("err = %v, want NegotiationError", err)
			}
			if f.m.Phase() != PhaseTrade {
				t.Fatalf("phase = %s after rejected action", f.m.Phase())
			}
		})
	}
}

func TestAcceptWithoutResourcesLeavesOffer(t *testing.T) {
	f := newFixture(t, 2, nil, Rules{})
	f.toPlay()
	f.give(0, oneBrick)
	res := mustSubmit(t, f.m, StartTrade{Actor: 0, To: 1, Offer: oneBrick, Want: oneOre})
	if _, err := f.m.SubmitAction(AcceptTrade{Actor: 1, OfferID: res.OfferID}); !errors.Is(err, domain.ErrInsufficientResources) {
		t.Fatalf("err = %v, want ErrInsufficientResources", err)
	}
	if f.inv.Resources(0) != oneBrick || !f.inv.Resources(1).IsZero() {
		t.Fatalf("partial transfer: 0 = %v 1 = %v", f.inv.Resources(0), f.inv.Resources(1))
	}
	if len(f.m.ViewFor(1).Offers) != 1 {
		t.Fatalf("offer dropped after failed accept")
	}
}

func TestDeclineByEveryoneCancels(t *testing.T) {
	f := newFixture(t, 3, nil, Rules{})
	f.toPlay()
	f.give(0, oneBrick)
	res := mustSubmit(t, f.m, StartTrade{Actor: 0, To: domain.Anyone, Offer: oneBrick, Want: oneOre})

	mustSubmit(t, f.m, DeclineTrade{Actor: 1, All: true})
	if f.m.Phase() != PhaseTrade {
		t.Fatalf("offer died with one receiver left")
	}
	mustSubmit(t, f.m, DeclineTrade{Actor: 2, OfferID: res.OfferID})
	if !canceledIDs(f.sink)[res.OfferID] {
		t.Fatalf("offer not canceled after every decline")
	}
	if f.m.Phase() != PhasePlay {
		t.Fatalf("phase = %s, want play", f.m.Phase())
	}
}

func TestCancelByOfferer(t *testing.T) {
	f := newFixture(t, 2, nil, Rules{})
	f.toPlay()
	f.give(0, oneBrick)
	res := mustSubmit(t, f.m, StartTrade{Actor: 0, To: 1, Offer: oneBrick, Want: oneOre})
	mustSubmit(t, f.m, CancelTrade{Actor: 0, OfferID: res.OfferID})
	if f.m.Phase() != PhasePlay {
		t.Fatalf("phase = %s, want play", f.m.Phase())
	}
}

func TestRejectedTradeReturnsToPlay(t *testing.T) {
	f := newFixture(t, 2, nil, Rules{})
	f.toPlay()
	if _, err := f.m.SubmitAction(StartTrade{Actor: 0, To: 1, Offer: oneBrick, Want: oneOre}); !errors.Is(err, domain.ErrInsufficientResources) {
		t.Fatalf("err = %v, want ErrInsufficientResources", err)
	}
	if _, err := f.m.SubmitAction(StartTrade{Actor: 0, To: 1, Want: oneOre}); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("empty offer err = %v, want ErrInvalidAction", err)
	}
	if f.m.Phase() != PhasePlay {
		t.Fatalf("phase = %s, want play", f.m.Phase())
	}

	f.give(0, oneBrick)
	mustSubmit(t, f.m, StartTrade{Actor: 0, To: 1, Offer: oneBrick, Want: oneOre})
	if _, err := f.m.SubmitAction(StartTrade{Actor: 0, To: 1, Offer: domain.Units(domain.Wool, 3), Want: oneOre}); err == nil {
		t.Fatalf("unaffordable second offer accepted")
	}
	if f.m.Phase() != PhaseTrade {
		t.Fatalf("phase = %s, want trade while an offer is live", f.m.Phase())
	}
}

func TestTradeTimeoutSweepsOffers(t *testing.T) {
	f := newFixture(t, 2, nil, Rules{})
	f.toPlay()
	f.give(0, oneBrick)
	mustSubmit(t, f.m, StartTrade{Actor: 0, To: 1, Offer: oneBrick, Want: oneOre})
	f.sched.Elapse(DefaultRules().TurnTime)

	ev, ok := f.sink.last(EventTradeOfferCanceled)
	if !ok || !ev.Payload.(TradeCanceledPayload).All {
		t.Fatalf("no blanket cancel: %+v", ev)
	}
	if f.m.TurnHolder() != 1 || f.m.Phase() != PhaseDice {
		t.Fatalf("holder = %d phase = %s", f.m.TurnHolder(), f.m.Phase())
	}
	if len(f.m.ViewFor(1).Offers) != 0 {
		t.Fatalf("offers survived the turn")
	}
}

func TestBankTrade(t *testing.T) {
	tests := []struct {
		name  string
		hand  domain.Bundle
		offer domain.Bundle
		want  domain.Bundle
		ok    bool
	}{
		{"four to one", domain.Units(domain.Brick, 4), domain.Units(domain.Brick, 4), oneOre, true},
		{"short offer", domain.Units(domain.Brick, 3), domain.Units(domain.Brick, 3), oneOre, false},
		{"asks too much", domain.Units(domain.Brick, 4), domain.Units(domain.Brick, 4), domain.Units(domain.Ore, 2), false},
		{"offer not held", domain.Units(domain.Brick, 2), domain.Units(domain.Brick, 4), oneOre, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 2, nil, Rules{})
			f.toPlay()
			f.give(0, tt.hand)
			_, err := f.m.SubmitAction(StartBankTrade{Actor: 0, Offer: tt.offer, Want: tt.want})
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if tt.ok && f.inv.Resources(0) != tt.hand.Sub(tt.offer).Add(tt.want) {
				t.Fatalf("hand = %v", f.inv.Resources(0))
			}
			if !tt.ok && f.inv.Resources(0) != tt.hand {
				t.Fatalf("hand changed on refused trade: %v", f.inv.Resources(0))
			}
			if f.m.Phase() != PhasePlay {
				t.Fatalf("phase = %s, want play", f.m.Phase())
			}
		})
	}
}
