// Package wire is the JSON message format shared by the Nakama and websocket
// transports. Messages are structpb objects carried as protojson, with a
// "type" field naming the request or event.
package wire

import (
	"encoding/json"
	"fmt"
	"math"

	"settlers/internal/app"
	"settlers/internal/domain"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Control request types that are not match actions.
const (
	TypeEndTurn   = "end_turn"
	TypeStartGame = "start_game"
	TypeResync    = "resync"
	TypeRejoin    = "rejoin"
)

// Outbound message types besides event kinds.
const (
	TypeResult   = "result"
	TypeError    = "error"
	TypeSnapshot = "snapshot"
	TypeView     = "view"
	TypeTicket   = "ticket"
	TypeLobby    = "lobby"
)

// Message is one decoded client request.
type Message struct {
	Type string
	body *structpb.Struct
}

// Decode parses a client request.
func Decode(data []byte) (*Message, error) {
	body := &structpb.Struct{}
	if err := protojson.Unmarshal(data, body); err != nil {
		return nil, fmt.Errorf("decode message: %w: %v", domain.ErrInvalidAction, err)
	}
	msg := &Message{body: body}
	msg.Type = msg.Field("type")
	if msg.Type == "" {
		return nil, fmt.Errorf("message without type: %w", domain.ErrInvalidAction)
	}
	return msg, nil
}

// Field returns a string field, or "" when absent.
func (m *Message) Field(key string) string {
	return m.body.GetFields()[key].GetStringValue()
}

func (m *Message) has(key string) bool {
	_, ok := m.body.GetFields()[key]
	return ok
}

func (m *Message) number(key string) (int, error) {
	v, ok := m.body.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("missing %q: %w", key, domain.ErrInvalidAction)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("%q is not an integer: %w", key, domain.ErrInvalidAction)
	}
	return int(n.NumberValue), nil
}

func (m *Message) flag(key string) bool {
	return m.body.GetFields()[key].GetBoolValue()
}

func (m *Message) bundle(key string) (domain.Bundle, error) {
	counts := make(map[string]int)
	for name, v := range m.body.GetFields()[key].GetStructValue().GetFields() {
		n := v.GetNumberValue()
		if n != math.Trunc(n) {
			return domain.Bundle{}, fmt.Errorf("%s.%s is not an integer: %w", key, name, domain.ErrInvalidAction)
		}
		counts[name] = int(n)
	}
	return domain.BundleFromMap(counts)
}

func (m *Message) piece(key string) (domain.PieceKind, error) {
	return domain.ParsePieceKind(m.Field(key))
}

func (m *Message) card(key string) (domain.DevCard, error) {
	return domain.ParseDevCard(m.Field(key))
}

// Action maps the message onto a match action issued by slot. The sender
// is always the connection's slot; any slot in the body is ignored.
func (m *Message) Action(slot int) (app.Action, error) {
	switch app.ActionKind(m.Type) {
	case app.ActPlacePiece:
		kind, err := m.piece("piece")
		if err != nil {
			return nil, err
		}
		at, err := m.number("at")
		if err != nil {
			return nil, err
		}
		return app.PlacePiece{Actor: slot, Piece: kind, At: at}, nil
	case app.ActStartBuild:
		kind, err := m.piece("piece")
		if err != nil {
			return nil, err
		}
		return app.StartBuild{Actor: slot, Piece: kind}, nil
	case app.ActCancelBuild:
		return app.CancelBuild{Actor: slot}, nil
	case app.ActRollDice:
		return app.RollDice{Actor: slot}, nil
	case app.ActQueryCardUse:
		c, err := m.card("card")
		if err != nil {
			return nil, err
		}
		return app.QueryCardUse{Actor: slot, Card: c}, nil
	case app.ActUseCard:
		return m.useCard(slot)
	case app.ActBuyCard:
		return app.BuyCard{Actor: slot}, nil
	case app.ActDiscardCards:
		cards, err := m.bundle("cards")
		if err != nil {
			return nil, err
		}
		return app.DiscardCards{Actor: slot, Cards: cards}, nil
	case app.ActPlaceRobber:
		hex, err := m.number("hex")
		if err != nil {
			return nil, err
		}
		return app.PlaceRobber{Actor: slot, Hex: hex}, nil
	case app.ActPickVictim:
		victim, err := m.number("victim")
		if err != nil {
			return nil, err
		}
		return app.PickVictim{Actor: slot, Victim: victim}, nil
	case app.ActStartTrade, app.ActStartBankTrade, app.ActStartCounter:
		return m.trade(slot)
	case app.ActAcceptTrade:
		return app.AcceptTrade{Actor: slot, OfferID: m.Field("offer_id")}, nil
	case app.ActTradeInterest:
		return app.TradeInterest{Actor: slot, OfferID: m.Field("offer_id")}, nil
	case app.ActDeclineTrade:
		return app.DeclineTrade{Actor: slot, OfferID: m.Field("offer_id"), All: m.flag("all")}, nil
	case app.ActCancelTrade:
		return app.CancelTrade{Actor: slot, OfferID: m.Field("offer_id")}, nil
	}
	return nil, fmt.Errorf("unknown request %q: %w", m.Type, domain.ErrInvalidAction)
}

func (m *Message) useCard(slot int) (app.Action, error) {
	c, err := m.card("card")
	if err != nil {
		return nil, err
	}
	act := app.UseCard{Actor: slot, Card: c}
	for _, v := range m.body.GetFields()["picks"].GetListValue().GetValues() {
		r, err := domain.ParseResource(v.GetStringValue())
		if err != nil {
			return nil, err
		}
		act.Picks = append(act.Picks, r)
	}
	if m.has("resource") {
		if act.Resource, err = domain.ParseResource(m.Field("resource")); err != nil {
			return nil, err
		}
	}
	return act, nil
}

func (m *Message) trade(slot int) (app.Action, error) {
	offer, err := m.bundle("offer")
	if err != nil {
		return nil, err
	}
	want, err := m.bundle("want")
	if err != nil {
		return nil, err
	}
	switch app.ActionKind(m.Type) {
	case app.ActStartBankTrade:
		return app.StartBankTrade{Actor: slot, Offer: offer, Want: want}, nil
	case app.ActStartCounter:
		return app.StartCounter{Actor: slot, OfferID: m.Field("offer_id"), Offer: offer, Want: want}, nil
	}
	to := domain.Anyone
	if m.has("to") {
		if to, err = m.number("to"); err != nil {
			return nil, err
		}
	}
	return app.StartTrade{Actor: slot, To: to, Offer: offer, Want: want}, nil
}

// encode wraps a JSON-tagged payload under type.
func encode(typ string, payload any) ([]byte, error) {
	fields := map[string]interface{}{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", typ, err)
		}
		fields["payload"] = generic
	}
	fields["type"] = typ
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build %s message: %w", typ, err)
	}
	return protojson.Marshal(s)
}

// EncodeEvent renders a match event.
func EncodeEvent(ev app.Event) ([]byte, error) {
	return encode(string(ev.Kind), ev.Payload)
}

// EncodeSnapshot renders the public match state.
func EncodeSnapshot(s app.Snapshot) ([]byte, error) {
	return encode(TypeSnapshot, s)
}

type resultPayload struct {
	Request    string `json:"request"`
	Positions  []int  `json:"positions,omitempty"`
	CardUsable bool   `json:"card_usable,omitempty"`
	OfferID    string `json:"offer_id,omitempty"`
	Victims    []int  `json:"victims,omitempty"`
	Drawn      string `json:"drawn,omitempty"`
}

// EncodeResult renders the private answer to a successful request.
func EncodeResult(request string, res app.Result) ([]byte, error) {
	p := resultPayload{
		Request:    request,
		Positions:  res.Positions,
		CardUsable: res.CardUsable,
		OfferID:    res.OfferID,
		Victims:    res.Victims,
	}
	if res.Drawn != nil {
		p.Drawn = res.Drawn.String()
	}
	return encode(TypeResult, p)
}

type errorPayload struct {
	Request string `json:"request,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeError renders a rejected request. Code is the error kind label.
func EncodeError(request string, err error) ([]byte, error) {
	return encode(TypeError, errorPayload{Request: request, Code: app.Outcome(err), Message: err.Error()})
}

// EncodeTicket renders a rejoin ticket.
func EncodeTicket(matchID, token string) ([]byte, error) {
	return encode(TypeTicket, map[string]string{"match_id": matchID, "ticket": token})
}

// LobbySeat is one chair in a lobby listing.
type LobbySeat struct {
	Seat   int    `json:"seat"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Bot    bool   `json:"bot"`
	Owner  bool   `json:"owner"`
}

// EncodeLobby renders the seat list of a room waiting to start.
func EncodeLobby(seats []LobbySeat, owner int) ([]byte, error) {
	return encode(TypeLobby, map[string]interface{}{"seats": seats, "owner_seat": owner})
}

type hexPayload struct {
	ID       int    `json:"id"`
	Resource string `json:"resource,omitempty"`
	Number   int    `json:"number"`
	Desert   bool   `json:"desert,omitempty"`
}

type portPayload struct {
	ID       int    `json:"id"`
	Resource string `json:"resource,omitempty"`
	Generic  bool   `json:"generic,omitempty"`
}

type viewPayload struct {
	Slot         int                     `json:"slot"`
	Phase        app.PhaseKind           `json:"phase"`
	Holder       int                     `json:"holder"`
	MyTurn       bool                    `json:"my_turn"`
	Ended        bool                    `json:"ended"`
	Resources    map[string]int          `json:"resources"`
	DevCards     map[string]int          `json:"dev_cards"`
	Usable       []string                `json:"usable"`
	CardPlayed   bool                    `json:"card_played"`
	Rolled       bool                    `json:"rolled"`
	FreeRoads    int                     `json:"free_roads"`
	Points       int                     `json:"points"`
	DeckSize     int                     `json:"deck_size"`
	SetupNext    string                  `json:"setup_next,omitempty"`
	Legal        map[string][]int        `json:"legal"`
	DiscardOwed  int                     `json:"discard_owed"`
	Robber       int                     `json:"robber"`
	RobberPlaced bool                    `json:"robber_placed"`
	Victims      []int                   `json:"victims"`
	Hexes        []hexPayload            `json:"hexes"`
	Ports        []portPayload           `json:"ports"`
	Offers       []app.TradeOfferPayload `json:"offers"`
	Others       map[string]int          `json:"others"`
}

// EncodeView renders one participant's private view.
func EncodeView(v app.View) ([]byte, error) {
	p := viewPayload{
		Slot:         v.Slot,
		Phase:        v.Phase,
		Holder:       v.Holder,
		MyTurn:       v.MyTurn,
		Ended:        v.Ended,
		Resources:    v.Resources.Map(),
		DevCards:     make(map[string]int),
		CardPlayed:   v.CardPlayed,
		Rolled:       v.Rolled,
		FreeRoads:    v.FreeRoads,
		Points:       v.Points,
		DeckSize:     v.DeckSize,
		Legal:        make(map[string][]int),
		DiscardOwed:  v.DiscardOwed,
		Robber:       v.Robber,
		RobberPlaced: v.RobberPlaced,
		Victims:      v.Victims,
		Others:       make(map[string]int),
	}
	for c, n := range v.DevCards {
		p.DevCards[c.String()] = n
	}
	for _, c := range v.Usable {
		p.Usable = append(p.Usable, c.String())
	}
	if v.SetupOwed {
		p.SetupNext = v.SetupNext.String()
	}
	for k, at := range v.Legal {
		p.Legal[k.String()] = at
	}
	for _, h := range v.Hexes {
		hp := hexPayload{ID: h.ID, Number: h.Number, Desert: h.Desert}
		if !h.Desert {
			hp.Resource = h.Resource.String()
		}
		p.Hexes = append(p.Hexes, hp)
	}
	for _, port := range v.Ports {
		pp := portPayload{ID: port.ID, Generic: port.Generic}
		if !port.Generic {
			pp.Resource = port.Resource.String()
		}
		p.Ports = append(p.Ports, pp)
	}
	for i := range v.Offers {
		p.Offers = append(p.Offers, app.OfferPayload(&v.Offers[i]))
	}
	for slot, n := range v.Others {
		p.Others[fmt.Sprint(slot)] = n
	}
	return encode(TypeView, p)
}
