package app

import (
	"fmt"

	"settlers/internal/domain"
)

// tradeLedger tracks every live offer, which participants each offer is
// still open for, and the counter-offers hanging off each original offer.
type tradeLedger struct {
	offers  map[string]*domain.TradeOffer
	order   []string
	open    map[int]map[string]bool
	lineage map[string][]string
}

func newTradeLedger() *tradeLedger {
	return &tradeLedger{
		offers:  make(map[string]*domain.TradeOffer),
		open:    make(map[int]map[string]bool),
		lineage: make(map[string][]string),
	}
}

func (l *tradeLedger) empty() bool { return len(l.offers) == 0 }

func (l *tradeLedger) has(slot int, id string) bool {
	return l.open[slot][id]
}

func (l *tradeLedger) add(o *domain.TradeOffer, parties []int) {
	l.offers[o.ID] = o
	l.order = append(l.order, o.ID)
	for _, p := range parties {
		if l.open[p] == nil {
			l.open[p] = make(map[string]bool)
		}
		l.open[p][o.ID] = true
	}
	if o.IsCounter() {
		l.lineage[o.Parent] = append(l.lineage[o.Parent], o.ID)
	}
}

func (l *tradeLedger) dropFrom(slot int, id string) {
	delete(l.open[slot], id)
}

// holders lists the participants an offer is still open for.
func (l *tradeLedger) holders(id string) []int {
	var out []int
	for slot, set := range l.open {
		if set[id] {
			out = append(out, slot)
		}
	}
	return out
}

// remove deletes an offer from every participant.
func (l *tradeLedger) remove(id string) {
	delete(l.offers, id)
	for _, set := range l.open {
		delete(set, id)
	}
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *tradeLedger) reset() {
	l.offers = make(map[string]*domain.TradeOffer)
	l.order = nil
	l.open = make(map[int]map[string]bool)
	l.lineage = make(map[string][]string)
}

// openFor lists the offers still open for slot, oldest first.
func (l *tradeLedger) openFor(slot int) []domain.TradeOffer {
	var out []domain.TradeOffer
	for _, id := range l.order {
		if l.open[slot][id] {
			out = append(out, *l.offers[id])
		}
	}
	return out
}

func (tradePhase) begin(m *Match) {}

func (tradePhase) handle(m *Match, a Action) (Result, error) {
	switch act := a.(type) {
	case StartTrade:
		if err := m.requireHolder(act.Actor); err != nil {
			return Result{}, err
		}
		return m.startTrade(act)
	case StartBankTrade:
		if err := m.requireHolder(act.Actor); err != nil {
			return Result{}, err
		}
		return Result{}, m.bankTrade(act)
	case StartCounter:
		return m.startCounter(act)
	case AcceptTrade:
		return Result{}, m.acceptTrade(act)
	case TradeInterest:
		return Result{}, m.tradeInterest(act)
	case DeclineTrade:
		return Result{}, m.declineTrade(act)
	case CancelTrade:
		return Result{}, m.cancelTrade(act)
	default:
		return Result{}, wrongPhase(PhaseTrade, a)
	}
}

func (tradePhase) forceEnd(m *Match) {
	m.sweepTrades()
	m.enter(PhaseEnd)
}

func (tradePhase) advance(m *Match) { m.enter(PhasePlay) }

// settleTrade leaves Trade once no offer is live.
func (m *Match) settleTrade() {
	if m.phase == PhaseTrade && m.trades.empty() {
		tradePhase{}.advance(m)
	}
}

// sweepTrades drops every live offer with one blanket cancellation.
func (m *Match) sweepTrades() {
	if m.trades.empty() {
		return
	}
	m.trades.reset()
	m.publish(Event{Kind: EventTradeOfferCanceled, Payload: TradeCanceledPayload{All: true}})
}

// checkNegotiation resolves offer id for sender. senderIsOfferer states
// whether the action belongs to the offering side; expectOpen whether the
// offer must still be open for the sender. Checks run in a fixed order:
// the offer and its offering participant exist, the sender's side matches,
// then the sender's membership matches.
func (m *Match) checkNegotiation(sender int, id string, senderIsOfferer, expectOpen bool) (*domain.TradeOffer, error) {
	fail := func(reason string) error {
		return &NegotiationError{Participant: sender, OfferID: id, ExpectOpen: expectOpen, Reason: reason}
	}
	o := m.trades.offers[id]
	if o == nil || !m.validSlot(o.From) {
		return nil, fail("offering participant unknown")
	}
	if (sender == o.From) != senderIsOfferer {
		if senderIsOfferer {
			return nil, fail("only the offering participant may do this")
		}
		return nil, fail("the offering participant may not do this")
	}
	if m.trades.has(sender, id) != expectOpen {
		if expectOpen {
			return nil, fail("offer not open for participant")
		}
		return nil, fail("offer still open for participant")
	}
	return o, nil
}

func validTerms(offer, want domain.Bundle) error {
	if offer.IsZero() || want.IsZero() || offer.HasNegative() || want.HasNegative() {
		return fmt.Errorf("offer %s for %s: %w", offer, want, domain.ErrInvalidAction)
	}
	return nil
}

// startTrade registers a new offer and moves into Trade. A rejected offer
// still sends the match back to Play when no other offer is live.
func (m *Match) startTrade(act StartTrade) (Result, error) {
	o, err := m.newOffer(act)
	if err != nil {
		m.settleTrade()
		return Result{}, err
	}
	parties := []int{act.Actor, act.To}
	if act.To == domain.Anyone {
		parties = parties[:0]
		for slot := range m.roster {
			parties = append(parties, slot)
		}
	}
	m.trades.add(o, parties)
	m.publish(Event{Kind: EventTradeOfferCreated, Payload: OfferPayload(o)})
	if m.phase != PhaseTrade {
		m.enter(PhaseTrade)
	}
	return Result{OfferID: o.ID}, nil
}

func (m *Match) newOffer(act StartTrade) (*domain.TradeOffer, error) {
	if err := validTerms(act.Offer, act.Want); err != nil {
		return nil, err
	}
	if act.To != domain.Anyone && (!m.validSlot(act.To) || act.To == act.Actor) {
		return nil, fmt.Errorf("trade with slot %d: %w", act.To, domain.ErrUnknownParticipant)
	}
	if !m.inv.Resources(act.Actor).Covers(act.Offer) {
		return nil, fmt.Errorf("offering %s: %w", act.Offer, domain.ErrInsufficientResources)
	}
	return &domain.TradeOffer{ID: m.newID(), From: act.Actor, To: act.To, Offer: act.Offer, Want: act.Want}, nil
}

// bankTrade exchanges with the bank. Want must total exactly what the offer
// buys at the sender's best harbor ratios.
func (m *Match) bankTrade(act StartBankTrade) error {
	err := m.doBankTrade(act)
	m.settleTrade()
	return err
}

func (m *Match) doBankTrade(act StartBankTrade) error {
	if err := validTerms(act.Offer, act.Want); err != nil {
		return err
	}
	slot := act.Actor
	if !m.inv.Resources(slot).Covers(act.Offer) {
		return fmt.Errorf("offering %s: %w", act.Offer, domain.ErrInsufficientResources)
	}
	quote := domain.BankQuote(m.board.PortsOf(slot), act.Offer)
	if quote != act.Want.Total() {
		return fmt.Errorf("bank pays %d for %s, %d wanted: %w", quote, act.Offer, act.Want.Total(), domain.ErrInsufficientResources)
	}
	if err := m.inv.RemoveResources(slot, act.Offer); err != nil {
		return err
	}
	m.inv.AddResources(slot, act.Want)
	m.publish(Event{Kind: EventBankTrade, Payload: BankTradePayload{Slot: slot, Offer: act.Offer.Map(), Want: act.Want.Map()}})
	return nil
}

// startCounter answers an offer open for the sender with a two-party offer
// back to its author.
func (m *Match) startCounter(act StartCounter) (Result, error) {
	parent, err := m.checkNegotiation(act.Actor, act.OfferID, false, true)
	if err != nil {
		return Result{}, err
	}
	if err := validTerms(act.Offer, act.Want); err != nil {
		return Result{}, err
	}
	if !m.inv.Resources(act.Actor).Covers(act.Offer) {
		return Result{}, fmt.Errorf("countering with %s: %w", act.Offer, domain.ErrInsufficientResources)
	}
	root := parent.ID
	if parent.IsCounter() {
		root = parent.Parent
	}
	c := &domain.TradeOffer{ID: m.newID(), From: act.Actor, To: parent.From, Offer: act.Offer, Want: act.Want, Parent: root}
	m.trades.add(c, []int{act.Actor, parent.From})
	m.publish(Event{Kind: EventTradeOfferCountered, Payload: OfferPayload(c)})
	return Result{OfferID: c.ID}, nil
}

// acceptTrade closes an offer and its whole lineage, then swaps the goods.
// Both sides' holdings are checked before anything changes.
func (m *Match) acceptTrade(act AcceptTrade) error {
	o, err := m.checkNegotiation(act.Actor, act.OfferID, false, true)
	if err != nil {
		return err
	}
	if !m.inv.Resources(o.From).Covers(o.Offer) {
		return fmt.Errorf("slot %d no longer holds %s: %w", o.From, o.Offer, domain.ErrInsufficientResources)
	}
	if !m.inv.Resources(act.Actor).Covers(o.Want) {
		return fmt.Errorf("slot %d lacks %s: %w", act.Actor, o.Want, domain.ErrInsufficientResources)
	}
	if err := m.exchange(o.From, o.Offer, act.Actor, o.Want); err != nil {
		return err
	}

	root := o.ID
	if o.IsCounter() {
		root = o.Parent
	}
	m.trades.remove(o.ID)
	m.closeLineage(root, o.ID)
	m.publish(Event{Kind: EventTradeOfferAccepted, Payload: TradeAcceptedPayload{
		ID:       o.ID,
		From:     o.From,
		Accepter: act.Actor,
		Offer:    o.Offer.Map(),
		Want:     o.Want.Map(),
	}})
	m.settleTrade()
	return nil
}

// closeLineage cancels root and every counter under it except keep, one
// cancellation event each.
func (m *Match) closeLineage(root, keep string) {
	for _, id := range append([]string{root}, m.trades.lineage[root]...) {
		if id == keep {
			continue
		}
		if _, live := m.trades.offers[id]; !live {
			continue
		}
		m.trades.remove(id)
		m.publish(Event{Kind: EventTradeOfferCanceled, Payload: TradeCanceledPayload{ID: id}})
	}
	delete(m.trades.lineage, root)
}

func (m *Match) tradeInterest(act TradeInterest) error {
	o, err := m.checkNegotiation(act.Actor, act.OfferID, false, true)
	if err != nil {
		return err
	}
	m.publish(Event{
		Kind:       EventTradeInterest,
		Payload:    TradeInterestPayload{ID: o.ID, Slot: act.Actor},
		Recipients: m.userIDs(o.From),
	})
	return nil
}

func (m *Match) declineTrade(act DeclineTrade) error {
	if act.All {
		for _, o := range m.trades.openFor(act.Actor) {
			if o.From != act.Actor {
				m.decline(act.Actor, o.ID)
			}
		}
		m.settleTrade()
		return nil
	}
	if _, err := m.checkNegotiation(act.Actor, act.OfferID, false, true); err != nil {
		return err
	}
	m.decline(act.Actor, act.OfferID)
	m.settleTrade()
	return nil
}

// decline withdraws slot from an offer, which dies once only its author
// still holds it.
func (m *Match) decline(slot int, id string) {
	if _, live := m.trades.offers[id]; !live {
		return
	}
	m.trades.dropFrom(slot, id)
	m.publish(Event{Kind: EventTradeOfferDeclined, Payload: TradeDeclinedPayload{ID: id, Slot: slot}})
	if len(m.trades.holders(id)) <= 1 {
		m.cancelOffer(id)
	}
}

func (m *Match) cancelTrade(act CancelTrade) error {
	if _, err := m.checkNegotiation(act.Actor, act.OfferID, true, true); err != nil {
		return err
	}
	m.cancelOffer(act.OfferID)
	m.settleTrade()
	return nil
}

// cancelOffer removes an offer and, for an original offer, its counters.
func (m *Match) cancelOffer(id string) {
	m.trades.remove(id)
	m.publish(Event{Kind: EventTradeOfferCanceled, Payload: TradeCanceledPayload{ID: id}})
	for _, cid := range m.trades.lineage[id] {
		if _, live := m.trades.offers[cid]; live {
			m.trades.remove(cid)
			m.publish(Event{Kind: EventTradeOfferCanceled, Payload: TradeCanceledPayload{ID: cid}})
		}
	}
	delete(m.trades.lineage, id)
}
