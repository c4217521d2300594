package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"settlers/internal/app"
	"settlers/internal/bot"
	"settlers/internal/config"
	"settlers/internal/domain"
	"settlers/internal/ports"
	"settlers/internal/ticket"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// mockWallet implements walletAPI for testing.
type mockWallet struct {
	accounts map[string]*api.Account
	wallets  map[string]map[string]int64
	metadata map[string]map[string]interface{}
}

func (m *mockWallet) AccountGetId(ctx context.Context, userID string) (*api.Account, error) {
	if acc, ok := m.accounts[userID]; ok {
		return acc, nil
	}
	// Return a default account with empty wallet if not found, to avoid nil pointers in logic
	return &api.Account{Wallet: "{}"}, nil
}

func (m *mockWallet) WalletUpdate(ctx context.Context, userID string, changeset map[string]int64, metadata map[string]interface{}, updateLedger bool) (map[string]int64, map[string]int64, error) {
	if m.wallets == nil {
		m.wallets = make(map[string]map[string]int64)
	}
	if _, ok := m.wallets[userID]; !ok {
		m.wallets[userID] = make(map[string]int64)
	}
	if m.metadata == nil {
		m.metadata = make(map[string]map[string]interface{})
	}
	m.metadata[userID] = metadata
	prev := make(map[string]int64)
	for k, v := range m.wallets[userID] {
		prev[k] = v
	}
	for k, v := range changeset {
		m.wallets[userID][k] += v
	}
	return m.wallets[userID], prev, nil
}

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode int64
	data   []byte
	to     []string // user ids; nil means broadcast
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcastCount int
	labelUpdates   int
	lastLabel      string
	sent           []sentMessage
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcastCount++
	msg := sentMessage{opCode: opCode, data: append([]byte(nil), data...)}
	for _, p := range presences {
		msg.to = append(msg.to, p.GetUserId())
	}
	md.sent = append(md.sent, msg)
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

// messages returns the payloads sent with opCode to userID, including
// broadcasts.
func (md *mockDispatcher) messages(opCode int64, userID string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, m := range md.sent {
		if m.opCode != opCode {
			continue
		}
		if m.to != nil && !contains(m.to, userID) {
			continue
		}
		var body map[string]interface{}
		if err := json.Unmarshal(m.data, &body); err == nil {
			out = append(out, body)
		}
	}
	return out
}

func (md *mockDispatcher) reset() { md.sent = nil }

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

type mockEconomy struct {
	balances map[string]int64
	matchID  string
	rewards  []ports.StandingReward
}

func (me *mockEconomy) Balance(ctx context.Context, userID string) (int64, error) {
	if balance, ok := me.balances[userID]; ok {
		return balance, nil
	}
	return 0, errors.New("balance not found")
}

func (me *mockEconomy) PayStandings(ctx context.Context, matchID string, rewards []ports.StandingReward) error {
	me.matchID = matchID
	me.rewards = append(me.rewards, rewards...)
	return nil
}

type fakePresence struct {
	userID   string
	username string
}

func (p fakePresence) GetHidden() bool                   { return false }
func (p fakePresence) GetPersistence() bool              { return false }
func (p fakePresence) GetUsername() string               { return p.username }
func (p fakePresence) GetStatus() string                 { return "" }
func (p fakePresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p fakePresence) GetUserId() string                 { return p.userID }
func (p fakePresence) GetSessionId() string              { return "session-" + p.userID }
func (p fakePresence) GetNodeId() string                 { return "node" }

type fakeMatchData struct {
	fakePresence
	opCode int64
	data   []byte
}

func (d fakeMatchData) GetOpCode() int64      { return d.opCode }
func (d fakeMatchData) GetData() []byte       { return d.data }
func (d fakeMatchData) GetReference() string  { return "" }
func (d fakeMatchData) GetReliable() bool     { return true }
func (d fakeMatchData) GetReceiveTime() int64 { return 0 }

const testMatchID = "match-1.node"

func testContext() context.Context {
	return context.WithValue(context.Background(), runtime.RUNTIME_CTX_MATCH_ID, testMatchID)
}

func decodeJSON(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return out
}

func player(name string) fakePresence {
	return fakePresence{userID: "user-" + name, username: name}
}

func newTestState(t *testing.T, cfg config.GameConfig) (*MatchState, *mockEconomy) {
	t.Helper()
	bot.SetIdentities([]bot.BotIdentity{
		{UserID: "bot-ada", DisplayName: "Ada", Difficulty: "good"},
		{UserID: "bot-bea", DisplayName: "Bea", Difficulty: "easy"},
		{UserID: "bot-cy", DisplayName: "Cy", Difficulty: "good"},
		{UserID: "bot-dee", DisplayName: "Dee", Difficulty: "easy"},
	})
	t.Cleanup(func() { bot.SetIdentities(nil) })

	tickets, err := ticket.NewIssuer("test-secret", 0, nil)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	econ := &mockEconomy{balances: map[string]int64{}}
	state := newMatchState(cfg, econ, nil, tickets)
	state.Rand = rand.New(rand.NewSource(7))
	return state, econ
}

func join(t *testing.T, mh *matchHandler, state *MatchState, d *mockDispatcher, ps ...fakePresence) {
	t.Helper()
	ctx := testContext()
	presences := make([]runtime.Presence, len(ps))
	for i, p := range ps {
		if _, ok, reason := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, d, state.Tick, state, p, nil); !ok {
			t.Fatalf("join attempt of %s rejected: %s", p.userID, reason)
		}
		presences[i] = p
	}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, d, state.Tick, state, presences)
}

func loop(mh *matchHandler, state *MatchState, d *mockDispatcher, tick int64, msgs ...runtime.MatchData) interface{} {
	return mh.MatchLoop(testContext(), noopLogger{}, nil, nil, d, tick, state, msgs)
}

func send(p fakePresence, opCode int64, body string) fakeMatchData {
	return fakeMatchData{fakePresence: p, opCode: opCode, data: []byte(body)}
}

// startedGame seats the players and has the first one start the game.
func startedGame(t *testing.T, cfg config.GameConfig, ps ...fakePresence) (*matchHandler, *MatchState, *mockDispatcher, *mockEconomy) {
	t.Helper()
	mh := newMatchHandler()
	state, econ := newTestState(t, cfg)
	d := &mockDispatcher{}
	join(t, mh, state, d, ps...)
	state.Tick = 1
	loop(mh, state, d, 1, send(ps[0], OpStartGame, "{}"))
	if state.Game == nil {
		t.Fatalf("game did not start")
	}
	return mh, state, d, econ
}

func TestFindFirstHumanSeat(t *testing.T) {
	botSeat := seat{UserID: "bot-1", Bot: true}
	human := seat{UserID: "user-1"}
	tests := []struct {
		name  string
		seats []seat
		want  int
	}{
		{"FirstHumanAfterBot", []seat{botSeat, human, {}, {}}, 1},
		{"AllBots", []seat{botSeat, botSeat}, -1},
		{"Empty", []seat{{}, {}}, -1},
		{"HumanFirst", []seat{human, botSeat}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findFirstHumanSeat(tt.seats); got != tt.want {
				t.Fatalf("findFirstHumanSeat = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMatchLabel(t *testing.T) {
	state, _ := newTestState(t, config.Default())
	state.Seats[0] = seat{UserID: "user-a"}

	raw, err := matchLabel(state)
	if err != nil {
		t.Fatalf("matchLabel: %v", err)
	}
	var label struct {
		Game  string `json:"game"`
		Open  int    `json:"open"`
		Phase string `json:"phase"`
	}
	if err := json.Unmarshal([]byte(raw), &label); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	if label.Game != "settlers" || label.Open != 3 || label.Phase != "lobby" {
		t.Fatalf("label = %+v", label)
	}
}

func TestQuickMatchQuery(t *testing.T) {
	q := quickMatchQuery()
	for _, part := range []string{"+label.game:settlers", "+label.phase:lobby", "+label.open:>=1"} {
		if !strings.Contains(q, part) {
			t.Fatalf("query %q missing %q", q, part)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	state, _ := newTestState(t, config.Default())
	applyEnv(state, map[string]string{
		envBotsEnabled:      "true",
		envBotMinDelay:      "2",
		envBotMaxDelay:      "1",
		envBotAutoFillDelay: "4",
	})
	if !state.BotsEnabled || state.BotMinDelay != 2*tickRate || state.BotAutoFillDelay != 4*tickRate {
		t.Fatalf("state = %+v", state)
	}
	if state.BotMaxDelay != state.BotMinDelay {
		t.Fatalf("inverted delay kept: min=%d max=%d", state.BotMinDelay, state.BotMaxDelay)
	}
}

func TestMatchJoin_SeatsPlayersAndOwner(t *testing.T) {
	mh := newMatchHandler()
	state, econ := newTestState(t, config.Default())
	econ.balances["user-a"] = 120
	d := &mockDispatcher{}

	join(t, mh, state, d, player("a"), player("b"))

	if state.Seats[0].UserID != "user-a" || state.Seats[1].UserID != "user-b" {
		t.Fatalf("seats = %+v", state.Seats)
	}
	if state.OwnerSeat != 0 {
		t.Fatalf("owner = %d, want 0", state.OwnerSeat)
	}
	if d.labelUpdates == 0 || decodeJSON(t, d.lastLabel)["open"] != float64(2) {
		t.Fatalf("label = %q after %d updates", d.lastLabel, d.labelUpdates)
	}

	lobbies := d.messages(OpLobby, "user-a")
	if len(lobbies) == 0 {
		t.Fatalf("no lobby broadcast")
	}
	seats := lobbies[len(lobbies)-1]["payload"].(map[string]interface{})["seats"].([]interface{})
	first := seats[0].(map[string]interface{})
	if first["balance"] != float64(120) || first["owner"] != true {
		t.Fatalf("first seat = %v", first)
	}
	if _, ok := seats[1].(map[string]interface{})["balance"]; ok {
		t.Fatalf("seat without a known balance reported one")
	}
}

func TestMatchJoinAttempt_FullLobby(t *testing.T) {
	cfg := config.Default()
	cfg.Seats = 2
	mh := newMatchHandler()
	state, _ := newTestState(t, cfg)
	d := &mockDispatcher{}
	join(t, mh, state, d, player("a"), player("b"))

	if _, ok, _ := mh.MatchJoinAttempt(testContext(), noopLogger{}, nil, nil, d, 0, state, player("c"), nil); ok {
		t.Fatalf("third player admitted to a two-seat lobby")
	}

	state.Seats[1] = seat{UserID: "bot-ada", Bot: true}
	if _, ok, _ := mh.MatchJoinAttempt(testContext(), noopLogger{}, nil, nil, d, 0, state, player("c"), nil); !ok {
		t.Fatalf("player refused although a bot seat can be taken")
	}
	join(t, mh, state, d, player("c"))
	if state.Seats[1].UserID != "user-c" || state.Seats[1].Bot {
		t.Fatalf("bot seat not replaced: %+v", state.Seats[1])
	}
}

func TestProcessBots_FillsSeatsForSoloHuman(t *testing.T) {
	mh := newMatchHandler()
	state, _ := newTestState(t, config.Default())
	state.BotsEnabled = true
	state.BotAutoFillDelay = 3
	d := &mockDispatcher{}
	join(t, mh, state, d, player("a"))

	loop(mh, state, d, 1)
	if state.GetOpenSeatsCount() != 3 {
		t.Fatalf("bots added before the delay")
	}
	loop(mh, state, d, 4)
	if state.GetOpenSeatsCount() != 0 {
		t.Fatalf("open seats = %d after auto-fill", state.GetOpenSeatsCount())
	}
	for i, s := range state.Seats[1:] {
		if !s.Bot || s.UserID == "" {
			t.Fatalf("seat %d = %+v, want a bot", i+1, s)
		}
	}
	if state.Seats[1].Name != "Bea" || state.Seats[1].Level != bot.BotLevelEasy {
		t.Fatalf("seat 1 = %+v, want pool identity for seat 1", state.Seats[1])
	}
}

func TestStartGame_RequiresOwner(t *testing.T) {
	mh := newMatchHandler()
	state, _ := newTestState(t, config.Default())
	d := &mockDispatcher{}
	join(t, mh, state, d, player("a"), player("b"))

	loop(mh, state, d, 1, send(player("b"), OpStartGame, "{}"))
	if state.Game != nil {
		t.Fatalf("non-owner started the game")
	}
	errs := d.messages(OpError, "user-b")
	if len(errs) != 1 {
		t.Fatalf("errors to sender = %d, want 1", len(errs))
	}
	if len(d.messages(OpError, "user-a")) != 0 {
		t.Fatalf("error leaked to another player")
	}
}

func TestStartGame_NeedsTwoParticipants(t *testing.T) {
	mh := newMatchHandler()
	state, _ := newTestState(t, config.Default())
	d := &mockDispatcher{}
	join(t, mh, state, d, player("a"))

	loop(mh, state, d, 1, send(player("a"), OpStartGame, "{}"))
	if state.Game != nil {
		t.Fatalf("game started with one participant")
	}
}

func TestStartGame_BroadcastsAndLabels(t *testing.T) {
	_, state, d, _ := startedGame(t, config.Default(), player("a"), player("b"))

	if label := decodeJSON(t, d.lastLabel); label["phase"] != "playing" || label["open"] != float64(0) {
		t.Fatalf("label = %q", d.lastLabel)
	}
	if state.Game.Phase() != app.PhaseSetup {
		t.Fatalf("phase = %s, want setup", state.Game.Phase())
	}
	events := d.messages(OpEvent, "user-b")
	if len(events) == 0 {
		t.Fatalf("no events broadcast at start")
	}
	views := d.messages(OpView, "user-b")
	if len(views) == 0 || views[0]["type"] != "view" {
		t.Fatalf("views = %v", views)
	}
}

func TestHandleAction_ResultToSenderEventsToAll(t *testing.T) {
	mh, state, d, _ := startedGame(t, config.Default(), player("a"), player("b"))
	holder, _ := state.Game.Participant(state.Game.TurnHolder())
	at := state.Game.ViewFor(holder.Index).Legal[domain.Settlement][0]
	d.reset()

	sender := fakePresence{userID: holder.UserID}
	body := fmt.Sprintf(`{"type":"place_piece","piece":"settlement","at":%d}`, at)
	loop(mh, state, d, 2, send(sender, OpAction, body))

	results := d.messages(OpResult, holder.UserID)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if state.Game.Points(holder.Index) != 1 {
		t.Fatalf("points = %d, want 1", state.Game.Points(holder.Index))
	}
	other := "user-a"
	if holder.UserID == other {
		other = "user-b"
	}
	if len(d.messages(OpResult, other)) != 0 {
		t.Fatalf("result leaked to %s", other)
	}
	placed := false
	for _, ev := range d.messages(OpEvent, other) {
		if ev["type"] == string(app.EventPiecePlaced) {
			placed = true
		}
	}
	if !placed {
		t.Fatalf("piece_placed not broadcast to %s", other)
	}
}

func TestHandleAction_ErrorsGoToSenderOnly(t *testing.T) {
	mh, state, d, _ := startedGame(t, config.Default(), player("a"), player("b"))
	holder := state.Game.TurnHolder()
	idle, _ := state.Game.Participant(1 - holder)
	d.reset()

	tests := []struct {
		name string
		body string
		code string
	}{
		{"garbage", `{`, "invalid_action"},
		{"unknown type", `{"type":"fly"}`, "invalid_action"},
		{"roll in setup", `{"type":"roll_dice"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.reset()
			loop(mh, state, d, 2, send(fakePresence{userID: idle.UserID}, OpAction, tt.body))
			errs := d.messages(OpError, idle.UserID)
			if len(errs) != 1 {
				t.Fatalf("errors = %d, want 1", len(errs))
			}
			code := errs[0]["payload"].(map[string]interface{})["code"]
			if tt.code != "" && code != tt.code {
				t.Fatalf("code = %v, want %s", code, tt.code)
			}
			for _, m := range d.sent {
				if m.opCode == OpError && !contains(m.to, idle.UserID) {
					t.Fatalf("error sent to %v", m.to)
				}
			}
		})
	}
	if state.Game.Phase() != app.PhaseSetup {
		t.Fatalf("phase = %s after rejected actions", state.Game.Phase())
	}
}

func TestMatchLoop_TimerForcesSetup(t *testing.T) {
	cfg := config.Default()
	cfg.SetupSeconds = 1
	mh, state, d, _ := startedGame(t, cfg, player("a"), player("b"))
	first := state.Game.TurnHolder()

	loop(mh, state, d, 1+2*tickRate)

	if state.Game.Points(first) != 1 {
		t.Fatalf("points = %d after timeout, want auto placement", state.Game.Points(first))
	}
	if state.Game.TurnHolder() == first {
		t.Fatalf("turn did not advance after timeout")
	}
}

func TestLeaveAndRejoinWithTicket(t *testing.T) {
	mh, state, d, _ := startedGame(t, config.Default(), player("a"), player("b"))
	ctx := testContext()
	idle, _ := state.Game.Participant(1 - state.Game.TurnHolder())
	p := fakePresence{userID: idle.UserID}

	if got := mh.MatchLeave(ctx, noopLogger{}, nil, nil, d, 2, state, []runtime.Presence{p}); got == nil {
		t.Fatalf("match terminated with a human still present")
	}
	standIn, _ := state.Game.Participant(idle.Index)
	if !standIn.Bot || state.Bots[idle.Index] == nil {
		t.Fatalf("slot %d = %+v, want a bot agent", idle.Index, standIn)
	}

	if _, ok, _ := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, d, 3, state, p, map[string]string{"ticket": "forged"}); ok {
		t.Fatalf("forged ticket accepted")
	}

	signal := fmt.Sprintf(`{"type":"rejoin","user_id":%q}`, idle.UserID)
	_, reply := mh.MatchSignal(ctx, noopLogger{}, nil, nil, d, 3, state, signal)
	var msg struct {
		Type    string `json:"type"`
		Payload struct {
			Ticket string `json:"ticket"`
		} `json:"payload"`
	}
	if err := json.Unmarshal([]byte(reply), &msg); err != nil || msg.Type != "ticket" {
		t.Fatalf("signal reply %q: %v", reply, err)
	}

	stranger := fakePresence{userID: "user-z"}
	if _, ok, _ := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, d, 3, state, stranger, map[string]string{"ticket": msg.Payload.Ticket}); ok {
		t.Fatalf("stranger admitted to a running game")
	}
	if _, ok, reason := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, d, 3, state, p, map[string]string{"ticket": msg.Payload.Ticket}); !ok {
		t.Fatalf("ticket rejected: %s", reason)
	}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, d, 3, state, []runtime.Presence{p})

	back, _ := state.Game.Participant(idle.Index)
	if back.UserID != idle.UserID || back.Bot {
		t.Fatalf("slot %d = %+v after rejoin", idle.Index, back)
	}
	if _, ok := state.Bots[idle.Index]; ok {
		t.Fatalf("stand-in agent kept after rejoin")
	}
	if len(d.messages(OpSnapshot, idle.UserID)) == 0 {
		t.Fatalf("no snapshot sent on rejoin")
	}
}

func TestMatchSignal_RefusesSeatedUser(t *testing.T) {
	mh, state, d, _ := startedGame(t, config.Default(), player("a"), player("b"))
	_, reply := mh.MatchSignal(testContext(), noopLogger{}, nil, nil, d, 2, state, `{"type":"rejoin","user_id":"user-a"}`)
	if decodeJSON(t, reply)["type"] != "error" {
		t.Fatalf("reply = %s, want error", reply)
	}
}

func TestMatchLeave_LastHumanTerminates(t *testing.T) {
	mh, state, d, _ := startedGame(t, config.Default(), player("a"), player("b"))
	ctx := testContext()
	mh.MatchLeave(ctx, noopLogger{}, nil, nil, d, 2, state, []runtime.Presence{player("a")})
	if got := mh.MatchLeave(ctx, noopLogger{}, nil, nil, d, 2, state, []runtime.Presence{player("b")}); got != nil {
		t.Fatalf("match kept running without humans")
	}
	if state.Game != nil {
		t.Fatalf("game not closed")
	}
}

func TestFinishGame_PaysRewardsAndReturnsToLobby(t *testing.T) {
	mh, state, d, econ := startedGame(t, config.Default(), player("a"), player("b"))
	mh.finishGame(testContext(), state, d, noopLogger{})

	if len(econ.rewards) != 2 || econ.matchID == "" {
		t.Fatalf("rewards = %+v for match %q, want one per human", econ.rewards, econ.matchID)
	}
	want := map[string]int64{"user-a": 300, "user-b": 150}
	for _, r := range econ.rewards {
		if r.Gold != want[r.UserID] {
			t.Fatalf("%s paid %d, want %d", r.UserID, r.Gold, want[r.UserID])
		}
	}
	if state.Game != nil || decodeJSON(t, d.lastLabel)["phase"] != "lobby" {
		t.Fatalf("match not back in the lobby: label %q", d.lastLabel)
	}
	if state.Seats[0].UserID != "user-a" {
		t.Fatalf("connected player lost their seat")
	}
}

func TestBotsAndTimerDriveMixedGame(t *testing.T) {
	cfg := config.Default()
	cfg.SetupSeconds = 1
	cfg.RollSeconds = 1
	cfg.TurnSeconds = 1
	cfg.DiscardSeconds = 1
	cfg.RobberSeconds = 1
	mh := newMatchHandler()
	state, _ := newTestState(t, cfg)
	state.BotsEnabled = true
	state.BotAutoFillDelay = 1
	state.BotMinDelay, state.BotMaxDelay = 0, 0
	d := &mockDispatcher{}
	join(t, mh, state, d, player("a"))

	loop(mh, state, d, 1)
	loop(mh, state, d, 2)
	if state.GetOpenSeatsCount() != 0 {
		t.Fatalf("lobby not filled")
	}
	loop(mh, state, d, 3, send(player("a"), OpStartGame, "{}"))
	if state.Game == nil {
		t.Fatalf("game did not start")
	}
	for tick := int64(4); tick < 600 && state.Game != nil && state.Game.Phase() == app.PhaseSetup; tick++ {
		loop(mh, state, d, tick)
	}
	if state.Game != nil && state.Game.Phase() == app.PhaseSetup {
		t.Fatalf("mixed game stuck in setup")
	}
}

func TestEconomyAdapter(t *testing.T) {
	w := &mockWallet{accounts: map[string]*api.Account{"u1": {Wallet: `{"gold": 40}`}}}
	a := NewNakamaEconomyAdapter(w)

	got, err := a.Balance(context.Background(), "u1")
	if err != nil || got != 40 {
		t.Fatalf("Balance = %d, %v", got, err)
	}
	rewards := []ports.StandingReward{
		{UserID: "u1", Rank: 1, Points: 10, Gold: 25},
		{UserID: "u2", Rank: 2, Points: 7},
	}
	if err := a.PayStandings(context.Background(), "match-9", rewards); err != nil {
		t.Fatalf("PayStandings: %v", err)
	}
	if w.wallets["u1"]["gold"] != 25 {
		t.Fatalf("wallet = %v", w.wallets["u1"])
	}
	if md := w.metadata["u1"]; md["match_id"] != "match-9" || md["rank"] != 1 || md["reason"] != "game_settlement" {
		t.Fatalf("metadata = %v", md)
	}
	if _, ok := w.wallets["u2"]; ok {
		t.Fatalf("zero update applied")
	}
}

type recordingSignaler struct {
	id, data string
	reply    string
}

func (s *recordingSignaler) MatchSignal(ctx context.Context, id string, data string) (string, error) {
	s.id, s.data = id, data
	return s.reply, nil
}

func TestRequestTicket(t *testing.T) {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, "user-a")
	s := &recordingSignaler{reply: `{"type":"ticket"}`}

	got, err := requestTicket(ctx, noopLogger{}, s, `{"match_id":"m1"}`)
	if err != nil || got != s.reply {
		t.Fatalf("requestTicket = %q, %v", got, err)
	}
	if signal := decodeJSON(t, s.data); s.id != "m1" || signal["user_id"] != "user-a" || signal["type"] != "rejoin" {
		t.Fatalf("signal = %s to %s", s.data, s.id)
	}
	if _, err := requestTicket(ctx, noopLogger{}, s, `{}`); err == nil {
		t.Fatalf("missing match id accepted")
	}
}

type recordingMetrics struct {
	counters map[string]int64
	gauges   map[string]float64
}

func (r *recordingMetrics) MetricsCounterAdd(name string, tags map[string]string, delta int64) {
	if r.counters == nil {
		r.counters = make(map[string]int64)
	}
	r.counters[name+fmt.Sprint(tags)] += delta
}

func (r *recordingMetrics) MetricsGaugeSet(name string, tags map[string]string, value float64) {
	if r.gauges == nil {
		r.gauges = make(map[string]float64)
	}
	r.gauges[name] = value
}

func TestNakamaRecorder(t *testing.T) {
	m := &recordingMetrics{}
	r := newNakamaRecorder(m)
	r.ActionHandled(app.ActRollDice, "ok")
	r.ActionHandled(app.ActRollDice, "ok")
	r.GameFinished()
	r.gameRunning("m1", true)

	key := "settlers_actions" + fmt.Sprint(map[string]string{"kind": "roll_dice", "outcome": "ok"})
	if m.counters[key] != 2 {
		t.Fatalf("counters = %v", m.counters)
	}
	if m.gauges["settlers_match_running"] != 1 {
		t.Fatalf("gauges = %v", m.gauges)
	}
}
