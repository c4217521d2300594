package app

import "settlers/internal/domain"

// EventKind identifies emitted match events for transport dispatch.
type EventKind string

const (
	EventPhaseChanged        EventKind = "phase_changed"
	EventTurnAdvanced        EventKind = "turn_advanced"
	EventDiceRolled          EventKind = "dice_rolled"
	EventResourcesProduced   EventKind = "resources_produced"
	EventPiecePlaced         EventKind = "piece_placed"
	EventTradeOfferCreated   EventKind = "trade_offer_created"
	EventTradeOfferCountered EventKind = "trade_offer_countered"
	EventTradeOfferAccepted  EventKind = "trade_offer_accepted"
	EventTradeOfferDeclined  EventKind = "trade_offer_declined"
	EventTradeOfferCanceled  EventKind = "trade_offer_canceled"
	EventTradeInterest       EventKind = "trade_interest"
	EventBankTrade           EventKind = "bank_trade"
	EventRobberMoved         EventKind = "robber_moved"
	EventResourceStolen      EventKind = "resource_stolen"
	EventDiscardRequested    EventKind = "discard_requested"
	EventDiscardResolved     EventKind = "discard_resolved"
	EventVictoryPoints       EventKind = "victory_points_changed"
	EventLargestArmy         EventKind = "largest_army_changed"
	EventLongestRoad         EventKind = "longest_road_changed"
	EventCardBought          EventKind = "card_bought"
	EventCardUsed            EventKind = "card_used"
	EventParticipantReplaced EventKind = "participant_replaced"
	EventParticipantRestored EventKind = "participant_restored"
	EventGameOver            EventKind = "game_over"
)

// Event is a match event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

// EventSink receives events as side effects of match operations. Publish is
// called with the match lock held and must not call back into the match.
type EventSink interface {
	Publish(ev Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(ev Event) { f(ev) }

type PhaseChangedPayload struct {
	Phase  PhaseKind `json:"phase"`
	Holder int       `json:"holder"`
}

type TurnAdvancedPayload struct {
	Holder int    `json:"holder"`
	Name   string `json:"name"`
}

type DiceRolledPayload struct {
	Slot  int  `json:"slot"`
	Die1  int  `json:"die1"`
	Die2  int  `json:"die2"`
	Total int  `json:"total"`
	Auto  bool `json:"auto"`
}

type ResourcesProducedPayload struct {
	Roll  int                    `json:"roll"`
	Gains map[int]map[string]int `json:"gains"`
}

type PiecePlacedPayload struct {
	Slot  int    `json:"slot"`
	Name  string `json:"name"`
	Piece string `json:"piece"`
	At    int    `json:"at"`
	Free  bool   `json:"free"`
	Auto  bool   `json:"auto"`
}

type TradeOfferPayload struct {
	ID     string         `json:"id"`
	From   int            `json:"from"`
	To     int            `json:"to"`
	Offer  map[string]int `json:"offer"`
	Want   map[string]int `json:"want"`
	Parent string         `json:"parent,omitempty"`
}

type TradeAcceptedPayload struct {
	ID       string         `json:"id"`
	From     int            `json:"from"`
	Accepter int            `json:"accepter"`
	Offer    map[string]int `json:"offer"`
	Want     map[string]int `json:"want"`
}

type TradeDeclinedPayload struct {
	ID   string `json:"id"`
	Slot int    `json:"slot"`
}

// TradeCanceledPayload names one canceled offer, or with All set reports that
// every open offer was swept.
type TradeCanceledPayload struct {
	ID  string `json:"id,omitempty"`
	All bool   `json:"all,omitempty"`
}

type TradeInterestPayload struct {
	ID   string `json:"id"`
	Slot int    `json:"slot"`
}

type BankTradePayload struct {
	Slot  int            `json:"slot"`
	Offer map[string]int `json:"offer"`
	Want  map[string]int `json:"want"`
}

type RobberMovedPayload struct {
	Slot int  `json:"slot"`
	Hex  int  `json:"hex"`
	Auto bool `json:"auto"`
}

type ResourceStolenPayload struct {
	Thief    int    `json:"thief"`
	Victim   int    `json:"victim"`
	Resource string `json:"resource"`
}

type DiscardRequestedPayload struct {
	Owed map[int]int `json:"owed"`
}

type DiscardResolvedPayload struct {
	Slot  int            `json:"slot"`
	Cards map[string]int `json:"cards"`
	Auto  bool           `json:"auto"`
}

type VictoryPointsPayload struct {
	Slot   int `json:"slot"`
	Points int `json:"points"`
}

// BonusChangedPayload reports a largest army or longest road change. Holder
// is -1 when nobody holds the bonus.
type BonusChangedPayload struct {
	Holder   int `json:"holder"`
	Previous int `json:"previous"`
	Length   int `json:"length"`
}

type CardBoughtPayload struct {
	Slot int    `json:"slot"`
	Card string `json:"card,omitempty"`
}

type CardUsedPayload struct {
	Slot     int            `json:"slot"`
	Card     string         `json:"card"`
	Gained   map[string]int `json:"gained,omitempty"`
	Resource string         `json:"resource,omitempty"`
}

type ParticipantPayload struct {
	Slot   int    `json:"slot"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Bot    bool   `json:"bot"`
}

type GameOverPayload struct {
	Winner    int               `json:"winner"`
	Standings []domain.Standing `json:"standings"`
}

func OfferPayload(o *domain.TradeOffer) TradeOfferPayload {
	return TradeOfferPayload{
		ID:     o.ID,
		From:   o.From,
		To:     o.To,
		Offer:  o.Offer.Map(),
		Want:   o.Want.Map(),
		Parent: o.Parent,
	}
}
