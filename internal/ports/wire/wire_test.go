package wire

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"settlers/internal/app"
	"settlers/internal/domain"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want app.Action
	}{
		{"place", `{"type":"place_piece","piece":"road","at":12}`, app.PlacePiece{Actor: 2, Piece: domain.Road, At: 12}},
		{"build", `{"type":"start_build","piece":"city"}`, app.StartBuild{Actor: 2, Piece: domain.City}},
		{"roll", `{"type":"roll_dice","actor":0}`, app.RollDice{Actor: 2}},
		{"robber", `{"type":"place_robber","hex":4}`, app.PlaceRobber{Actor: 2, Hex: 4}},
		{"discard", `{"type":"discard_cards","cards":{"ore":2,"wool":1}}`, app.DiscardCards{Actor: 2, Cards: domain.Bundle{domain.Wool: 1, domain.Ore: 2}}},
		{
			"open trade",
			`{"type":"start_trade","offer":{"brick":1},"want":{"grain":1}}`,
			app.StartTrade{Actor: 2, To: domain.Anyone, Offer: domain.Units(domain.Brick, 1), Want: domain.Units(domain.Grain, 1)},
		},
		{
			"direct trade",
			`{"type":"start_trade","to":0,"offer":{"brick":1},"want":{"grain":1}}`,
			app.StartTrade{Actor: 2, To: 0, Offer: domain.Units(domain.Brick, 1), Want: domain.Units(domain.Grain, 1)},
		},
		{
			"counter",
			`{"type":"start_counter","offer_id":"o1","offer":{"ore":1},"want":{"brick":2}}`,
			app.StartCounter{Actor: 2, OfferID: "o1", Offer: domain.Units(domain.Ore, 1), Want: domain.Units(domain.Brick, 2)},
		},
		{"decline all", `{"type":"decline_trade","all":true}`, app.DeclineTrade{Actor: 2, All: true}},
		{"monopoly", `{"type":"use_card","card":"monopoly","resource":"ore"}`, app.UseCard{Actor: 2, Card: domain.Monopoly, Resource: domain.Ore}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.in))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			got, err := msg.Action(2)
			if err != nil {
				t.Fatalf("Action: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Action = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeYearOfPlenty(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"use_card","card":"year_of_plenty","picks":["ore","grain"]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	act, err := msg.Action(1)
	if err != nil {
		t.Fatalf("Action: %v", err)
	}
	uc := act.(app.UseCard)
	if len(uc.Picks) != 2 || uc.Picks[0] != domain.Ore || uc.Picks[1] != domain.Grain {
		t.Fatalf("picks = %v", uc.Picks)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"no type", `{"at":1}`},
		{"unknown type", `{"type":"fly"}`},
		{"bad piece", `{"type":"place_piece","piece":"castle","at":1}`},
		{"missing at", `{"type":"place_piece","piece":"road"}`},
		{"fractional at", `{"type":"place_piece","piece":"road","at":1.5}`},
		{"negative bundle", `{"type":"discard_cards","cards":{"ore":-1}}`},
		{"unknown resource", `{"type":"start_bank_trade","offer":{"gold":4},"want":{"ore":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.in))
			if err == nil {
				_, err = msg.Action(0)
			}
			if !errors.Is(err, domain.ErrInvalidAction) {
				t.Fatalf("err = %v, want ErrInvalidAction", err)
			}
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	data, err := EncodeEvent(app.Event{
		Kind:    app.EventDiceRolled,
		Payload: app.DiceRolledPayload{Slot: 1, Die1: 3, Die2: 4, Total: 7},
	})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	var got struct {
		Type    string                `json:"type"`
		Payload app.DiceRolledPayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if got.Type != "dice_rolled" || got.Payload.Total != 7 || got.Payload.Slot != 1 {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestEncodeError(t *testing.T) {
	data, err := EncodeError("roll_dice", &app.WrongPhaseError{Phase: app.PhasePlay, Action: app.ActRollDice})
	if err != nil {
		t.Fatalf("EncodeError: %v", err)
	}
	var got struct {
		Type    string `json:"type"`
		Payload struct {
			Code string `json:"code"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != TypeError || got.Payload.Code != "wrong_phase" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestEncodeView(t *testing.T) {
	v := app.View{
		Slot:      0,
		Phase:     app.PhaseSetup,
		MyTurn:    true,
		Resources: domain.Units(domain.Ore, 2),
		SetupOwed: true,
		SetupNext: domain.Road,
		Legal:     map[domain.PieceKind][]int{domain.Road: {3, 4}},
		Hexes:     []domain.Hex{{ID: 0, Desert: true}, {ID: 1, Resource: domain.Wool, Number: 9}},
		Others:    map[int]int{1: 5},
	}
	data, err := EncodeView(v)
	if err != nil {
		t.Fatalf("EncodeView: %v", err)
	}
	var got struct {
		Payload struct {
			Resources map[string]int   `json:"resources"`
			SetupNext string           `json:"setup_next"`
			Legal     map[string][]int `json:"legal"`
			Hexes     []hexPayload     `json:"hexes"`
			Others    map[string]int   `json:"others"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p := got.Payload
	if p.Resources["ore"] != 2 || p.SetupNext != "road" || len(p.Legal["road"]) != 2 || p.Others["1"] != 5 {
		t.Fatalf("view = %+v", p)
	}
	if p.Hexes[0].Resource != "" || p.Hexes[1].Resource != "wool" {
		t.Fatalf("hexes = %+v", p.Hexes)
	}
}

func TestEncodeLobby(t *testing.T) {
	data, err := EncodeLobby([]LobbySeat{{Seat: 0, UserID: "u1", Name: "Ann", Owner: true}, {Seat: 1}}, 0)
	if err != nil {
		t.Fatalf("EncodeLobby: %v", err)
	}
	var got struct {
		Type    string `json:"type"`
		Payload struct {
			Seats     []LobbySeat `json:"seats"`
			OwnerSeat int         `json:"owner_seat"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != TypeLobby || len(got.Payload.Seats) != 2 || !got.Payload.Seats[0].Owner || got.Payload.Seats[1].UserID != "" {
		t.Fatalf("decoded = %+v", got)
	}
}
