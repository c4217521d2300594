package app

import "settlers/internal/domain"

// ActionKind names an inbound action type.
type ActionKind string

const (
	ActPlacePiece     ActionKind = "place_piece"
	ActStartBuild     ActionKind = "start_build"
	ActCancelBuild    ActionKind = "cancel_build"
	ActRollDice       ActionKind = "roll_dice"
	ActQueryCardUse   ActionKind = "query_card_use"
	ActUseCard        ActionKind = "use_card"
	ActBuyCard        ActionKind = "buy_card"
	ActDiscardCards   ActionKind = "discard_cards"
	ActPlaceRobber    ActionKind = "place_robber"
	ActPickVictim     ActionKind = "pick_victim"
	ActStartTrade     ActionKind = "start_trade"
	ActStartBankTrade ActionKind = "start_bank_trade"
	ActStartCounter   ActionKind = "start_counter"
	ActAcceptTrade    ActionKind = "accept_trade"
	ActTradeInterest  ActionKind = "trade_interest"
	ActDeclineTrade   ActionKind = "decline_trade"
	ActCancelTrade    ActionKind = "cancel_trade"
)

// Action is one inbound request. Humans and bots submit the same values.
type Action interface {
	Kind() ActionKind
	// Sender is the roster slot the action is issued by.
	Sender() int
}

// PlacePiece puts a piece at a corner (settlement, city) or edge (road).
type PlacePiece struct {
	Actor int
	Piece domain.PieceKind
	At    int
}

// StartBuild selects a piece to build and answers with its legal positions.
type StartBuild struct {
	Actor int
	Piece domain.PieceKind
}

type CancelBuild struct{ Actor int }

type RollDice struct{ Actor int }

// QueryCardUse asks whether Card may be played right now.
type QueryCardUse struct {
	Actor int
	Card  domain.DevCard
}

// UseCard plays a development card. Picks holds the two resources chosen for
// Year of Plenty; Resource is the type claimed by Monopoly.
type UseCard struct {
	Actor    int
	Card     domain.DevCard
	Picks    []domain.Resource
	Resource domain.Resource
}

type BuyCard struct{ Actor int }

// DiscardCards gives up half a hand after a seven.
type DiscardCards struct {
	Actor int
	Cards domain.Bundle
}

type PlaceRobber struct {
	Actor int
	Hex   int
}

type PickVictim struct {
	Actor  int
	Victim int
}

// StartTrade proposes an exchange to one participant or, with To set to
// domain.Anyone, to everybody.
type StartTrade struct {
	Actor int
	To    int
	Offer domain.Bundle
	Want  domain.Bundle
}

// StartBankTrade exchanges with the bank at the sender's port ratios.
type StartBankTrade struct {
	Actor int
	Offer domain.Bundle
	Want  domain.Bundle
}

// StartCounter answers an existing offer with a two-party re-offer.
type StartCounter struct {
	Actor   int
	OfferID string
	Offer   domain.Bundle
	Want    domain.Bundle
}

type AcceptTrade struct {
	Actor   int
	OfferID string
}

// TradeInterest tells the offering participant the sender would consider
// the offer.
type TradeInterest struct {
	Actor   int
	OfferID string
}

// DeclineTrade withdraws the sender from one offer, or from every offer
// addressed to them when All is set.
type DeclineTrade struct {
	Actor   int
	OfferID string
	All     bool
}

type CancelTrade struct {
	Actor   int
	OfferID string
}

func (a PlacePiece) Kind() ActionKind     { return ActPlacePiece }
func (a StartBuild) Kind() ActionKind     { return ActStartBuild }
func (a CancelBuild) Kind() ActionKind    { return ActCancelBuild }
func (a RollDice) Kind() ActionKind       { return ActRollDice }
func (a QueryCardUse) Kind() ActionKind   { return ActQueryCardUse }
func (a UseCard) Kind() ActionKind        { return ActUseCard }
func (a BuyCard) Kind() ActionKind        { return ActBuyCard }
func (a DiscardCards) Kind() ActionKind   { return ActDiscardCards }
func (a PlaceRobber) Kind() ActionKind    { return ActPlaceRobber }
func (a PickVictim) Kind() ActionKind     { return ActPickVictim }
func (a StartTrade) Kind() ActionKind     { return ActStartTrade }
func (a StartBankTrade) Kind() ActionKind { return ActStartBankTrade }
func (a StartCounter) Kind() ActionKind   { return ActStartCounter }
func (a AcceptTrade) Kind() ActionKind    { return ActAcceptTrade }
func (a TradeInterest) Kind() ActionKind  { return ActTradeInterest }
func (a DeclineTrade) Kind() ActionKind   { return ActDeclineTrade }
func (a CancelTrade) Kind() ActionKind    { return ActCancelTrade }

func (a PlacePiece) Sender() int     { return a.Actor }
func (a StartBuild) Sender() int     { return a.Actor }
func (a CancelBuild) Sender() int    { return a.Actor }
func (a RollDice) Sender() int       { return a.Actor }
func (a QueryCardUse) Sender() int   { return a.Actor }
func (a UseCard) Sender() int        { return a.Actor }
func (a BuyCard) Sender() int        { return a.Actor }
func (a DiscardCards) Sender() int   { return a.Actor }
func (a PlaceRobber) Sender() int    { return a.Actor }
func (a PickVictim) Sender() int     { return a.Actor }
func (a StartTrade) Sender() int     { return a.Actor }
func (a StartBankTrade) Sender() int { return a.Actor }
func (a StartCounter) Sender() int   { return a.Actor }
func (a AcceptTrade) Sender() int    { return a.Actor }
func (a TradeInterest) Sender() int  { return a.Actor }
func (a DeclineTrade) Sender() int   { return a.Actor }
func (a CancelTrade) Sender() int    { return a.Actor }

// Result carries the data a successful action answers with.
type Result struct {
	// Positions lists legal placements after StartBuild.
	Positions []int
	// CardUsable answers QueryCardUse.
	CardUsable bool
	// OfferID names the offer created by StartTrade or StartCounter.
	OfferID string
	// Victims lists who may be robbed after PlaceRobber.
	Victims []int
	// Drawn is the card received by BuyCard.
	Drawn *domain.DevCard
}
