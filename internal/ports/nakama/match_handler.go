package nakama

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"settlers/internal/app"
	"settlers/internal/board"
	"settlers/internal/bot"
	"settlers/internal/config"
	"settlers/internal/domain"
	"settlers/internal/inventory"
	"settlers/internal/ports"
	"settlers/internal/ports/wire"
	"settlers/internal/ticket"
	"settlers/internal/turntimer"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type matchHandler struct{}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := bot.LoadIdentities(botIdentitiesPath); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}
	if err := config.LoadGameConfig(gameConfigPath); err != nil {
		logger.Warn("MatchInit: Could not load game config, using defaults: %v", err)
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	// Tickets only need to verify inside this match, so a fresh secret works
	// when none is configured.
	secret := env[envTicketSecret]
	if secret == "" {
		secret = uuid.NewString()
	}
	tickets, err := ticket.NewIssuer(secret, ticket.DefaultTTL, nil)
	if err != nil {
		logger.Error("MatchInit: Failed to create ticket issuer: %v", err)
		return nil, 0, ""
	}

	state := newMatchState(*config.GetGameConfig(), NewNakamaEconomyAdapter(nk), newNakamaRecorder(nk), tickets)
	applyEnv(state, env)

	label, err := matchLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	return state, tickRate, label
}

// applyEnv overrides bot settings from the runtime environment. Delays are
// given in seconds.
func applyEnv(state *MatchState, env map[string]string) {
	if val, ok := env[envBotsEnabled]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env[envBotMinDelay]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMinDelay = int64(i) * tickRate
		}
	}
	if val, ok := env[envBotMaxDelay]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMaxDelay = int64(i) * tickRate
		}
	}
	if val, ok := env[envBotAutoFillDelay]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotAutoFillDelay = int64(i) * tickRate
		}
	}
	if state.BotMaxDelay < state.BotMinDelay {
		state.BotMaxDelay = state.BotMinDelay
	}
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	userID := presence.GetUserId()

	// A running game only takes back humans who left it, and only with a
	// ticket this match issued.
	if matchState.Game != nil {
		if _, departed := matchState.Game.Departed(userID); !departed {
			return state, false, "Match in progress"
		}
		matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
		claims, err := matchState.Tickets.Verify(metadata["ticket"], matchID)
		if err != nil {
			logger.Warn("MatchJoinAttempt: Rejected rejoin of %s: %v", userID, err)
			return state, false, "Invalid ticket"
		}
		if claims.Subject != userID {
			return state, false, "Ticket belongs to another user"
		}
		return state, true, ""
	}

	if matchState.seatOf(userID) >= 0 {
		return state, true, ""
	}
	if matchState.GetOpenSeatsCount() > 0 {
		return state, true, ""
	}
	for _, s := range matchState.Seats {
		if s.Bot {
			return state, true, ""
		}
	}
	return state, false, "Match full"
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		if matchState.Game != nil {
			mh.rejoin(matchState, logger, p.GetUserId())
			mh.sendGameState(matchState, dispatcher, logger, p.GetUserId())
			continue
		}
		mh.takeSeat(matchState, logger, p)
	}

	if matchState.Game == nil {
		// Ensure owner seat is assigned to a human player only.
		if !isHumanSeat(matchState.Seats, matchState.OwnerSeat) {
			matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats)
			logger.Debug("MatchJoin: Owner set to human seat %d.", matchState.OwnerSeat)
		}
		mh.updateLabel(matchState, dispatcher, logger)
		mh.broadcastLobby(ctx, matchState, dispatcher, logger)
		return matchState
	}

	mh.flush(ctx, matchState, dispatcher, logger)
	return matchState
}

// takeSeat assigns a lobby seat: empty seats first, then bot seats.
func (mh *matchHandler) takeSeat(state *MatchState, logger runtime.Logger, p runtime.Presence) {
	userID := p.GetUserId()
	if state.seatOf(userID) >= 0 {
		return
	}
	human := seat{UserID: userID, Name: p.GetUsername()}
	for i, s := range state.Seats {
		if s.empty() {
			state.Seats[i] = human
			return
		}
	}
	for i, s := range state.Seats {
		if s.Bot {
			logger.Info("MatchJoin: Replacing bot %s with human %s in seat %d", s.UserID, userID, i)
			state.Seats[i] = human
			return
		}
	}
	logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", userID)
}

// rejoin hands a returning human their slot back. While their stand-in
// holds the turn the user waits and is retried every tick.
func (mh *matchHandler) rejoin(state *MatchState, logger runtime.Logger, userID string) {
	if _, err := state.Game.Rejoin(userID); err != nil {
		if errors.Is(err, domain.ErrCannotRejoin) {
			if !state.PendingRejoin[userID] {
				logger.Info("MatchJoin: Rejoin of %s deferred: %v", userID, err)
			}
			state.PendingRejoin[userID] = true
			return
		}
		logger.Warn("MatchJoin: Rejoin of %s failed: %v", userID, err)
		delete(state.PendingRejoin, userID)
		return
	}
	delete(state.PendingRejoin, userID)
	slot := state.Game.SlotOf(userID)
	delete(state.Bots, slot)
	logger.Info("MatchJoin: User %s restored to slot %d", userID, slot)
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		delete(matchState.PendingRejoin, userID)

		if matchState.Game != nil {
			mh.standIn(matchState, logger, userID)
			continue
		}
		if i := matchState.seatOf(userID); i >= 0 {
			matchState.Seats[i] = seat{}
			logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, i)
		}
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating match with no humans.")
		mh.closeGame(matchState)
		return nil
	}

	if matchState.Game == nil {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats)
		mh.updateLabel(matchState, dispatcher, logger)
		mh.broadcastLobby(ctx, matchState, dispatcher, logger)
		return matchState
	}
	mh.flush(ctx, matchState, dispatcher, logger)
	return matchState
}

// standIn moves a departing human's slot to a bot agent.
func (mh *matchHandler) standIn(state *MatchState, logger runtime.Logger, userID string) {
	slot := state.Game.SlotOf(userID)
	if slot < 0 {
		return
	}
	sub, err := state.Game.Leave(userID)
	if err != nil {
		logger.Warn("MatchLeave: Could not replace %s: %v", userID, err)
		return
	}
	mh.addAgent(state, logger, sub, bot.Identity(slot).Level())
}

func (mh *matchHandler) addAgent(state *MatchState, logger runtime.Logger, p domain.Participant, level bot.BotLevel) {
	agent, err := bot.NewAgent(p, level, state.Board, rand.New(rand.NewSource(state.Rand.Int63())))
	if err != nil {
		logger.Error("Failed to create bot agent for %s: %v", p.UserID, err)
		return
	}
	state.Bots[p.Index] = agent
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpAction:
			mh.handleAction(matchState, dispatcher, logger, msg)
		case OpEndTurn:
			mh.handleEndTurn(matchState, dispatcher, logger, msg)
		case OpResync:
			mh.handleResync(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.Game != nil {
		matchState.Clock.Advance(tickTime(tick))
		for userID := range matchState.PendingRejoin {
			mh.rejoin(matchState, logger, userID)
		}
	}

	mh.processBots(ctx, matchState, dispatcher, logger)

	if matchState.Game != nil {
		mh.flush(ctx, matchState, dispatcher, logger)
	}
	return matchState
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// Auto-fill the lobby once a single human has waited long enough.
	if state.Game == nil {
		if !state.BotsEnabled || state.GetHumanPlayerCount() != 1 {
			state.LastSinglePlayerTick = 0
			return
		}
		if state.LastSinglePlayerTick == 0 {
			state.LastSinglePlayerTick = state.Tick
			logger.Debug("processBots: Single player detected, starting auto-fill timer.")
		}
		if state.Tick-state.LastSinglePlayerTick < state.BotAutoFillDelay {
			return
		}
		if mh.fillBots(state, logger) {
			mh.updateLabel(state, dispatcher, logger)
			mh.broadcastLobby(ctx, state, dispatcher, logger)
		}
		state.LastSinglePlayerTick = 0
		return
	}

	if state.Game.Ended() || len(state.Bots) == 0 {
		return
	}
	if state.BotWaitUntil == 0 {
		state.BotWaitUntil = state.Tick + state.botDelay()
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0
	for _, slot := range state.botSlots() {
		if _, err := bot.Act(state.Game, state.Bots[slot]); err != nil {
			logger.Debug("processBots: Bot in slot %d: %v", slot, err)
		}
	}
}

// fillBots seats a pool bot in every empty seat.
func (mh *matchHandler) fillBots(state *MatchState, logger runtime.Logger) bool {
	added := false
	for i, s := range state.Seats {
		if !s.empty() {
			continue
		}
		identity := bot.Identity(i)
		p := identity.Participant(i)
		state.Seats[i] = seat{UserID: p.UserID, Name: p.Name, Bot: true, Level: identity.Level()}
		logger.Info("processBots: Added bot %s (%s) to seat %d", p.Name, p.UserID, i)
		added = true
	}
	return added
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)

	logger.Info("StartGame: Request received from %s (seat=%d, owner_seat=%d, occupied=%d)", senderID, senderSeat, state.OwnerSeat, state.GetOccupiedSeatCount())

	if state.Game != nil {
		mh.sendError(state, dispatcher, logger, senderID, wire.TypeStartGame, fmt.Errorf("game already running: %w", domain.ErrWrongPhase))
		return
	}
	if senderSeat != state.OwnerSeat {
		mh.sendError(state, dispatcher, logger, senderID, wire.TypeStartGame, fmt.Errorf("only the owner starts the game: %w", domain.ErrNotYourTurn))
		return
	}
	if n := state.GetOccupiedSeatCount(); n < app.MinParticipants {
		mh.sendError(state, dispatcher, logger, senderID, wire.TypeStartGame, fmt.Errorf("%d seated, need %d: %w", n, app.MinParticipants, domain.ErrInvalidAction))
		return
	}

	if err := mh.startGame(ctx, state, logger); err != nil {
		logger.Error("StartGame: Failed to start game: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, wire.TypeStartGame, err)
		return
	}
	mh.updateLabel(state, dispatcher, logger)
	mh.flush(ctx, state, dispatcher, logger)
	logger.Info("StartGame: Game started with %d players.", state.GetOccupiedSeatCount())
}

// startGame builds the match from the occupied seats in seat order.
func (mh *matchHandler) startGame(ctx context.Context, state *MatchState, logger runtime.Logger) error {
	var (
		roster []domain.Participant
		levels []bot.BotLevel
	)
	for _, s := range state.Seats {
		if s.empty() {
			continue
		}
		roster = append(roster, domain.Participant{UserID: s.UserID, Name: s.Name, Bot: s.Bot})
		levels = append(levels, s.Level)
	}

	b := board.New()
	if state.Config.ShuffleBoard {
		b = board.NewShuffled(state.Rand)
	}
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	clock := turntimer.NewManual(tickTime(state.Tick))

	opts := app.Options{
		ID:         matchID,
		Roster:     roster,
		Board:      b,
		Inventory:  inventory.NewShuffled(state.Rand),
		Rules:      state.Config.Rules(),
		Rand:       state.Rand,
		Logger:     logger.WithField("match_id", matchID),
		Sink:       app.SinkFunc(func(ev app.Event) { state.Outbox = append(state.Outbox, ev) }),
		Scheduler:  clock,
		Substitute: bot.Substitute,
	}
	if state.Recorder != nil {
		opts.Recorder = state.Recorder
	}
	m, err := app.NewMatch(opts)
	if err != nil {
		return err
	}

	state.Game = m
	state.Board = b
	state.Clock = clock
	state.Bots = make(map[int]*bot.Agent)
	state.BotWaitUntil = 0
	for _, p := range m.Roster() {
		if p.Bot {
			mh.addAgent(state, logger, p, levels[p.Index])
		}
	}
	if err := m.Start(); err != nil {
		state.Game = nil
		return err
	}
	if state.Recorder != nil {
		state.Recorder.gameRunning(m.ID(), true)
	}
	return nil
}

func (mh *matchHandler) handleAction(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	req, err := wire.Decode(msg.GetData())
	if err != nil {
		mh.sendError(state, dispatcher, logger, senderID, "", err)
		return
	}
	slot, err := mh.senderSlot(state, senderID)
	if err != nil {
		mh.sendError(state, dispatcher, logger, senderID, req.Type, err)
		return
	}
	act, err := req.Action(slot)
	if err != nil {
		mh.sendError(state, dispatcher, logger, senderID, req.Type, err)
		return
	}
	res, err := state.Game.SubmitAction(act)
	if err != nil {
		logger.Debug("handleAction: User %s (slot %d) %s rejected: %v", senderID, slot, req.Type, err)
		mh.sendError(state, dispatcher, logger, senderID, req.Type, err)
		return
	}
	data, err := wire.EncodeResult(req.Type, res)
	if err != nil {
		logger.Error("handleAction: Failed to encode result: %v", err)
		return
	}
	mh.sendTo(state, dispatcher, logger, senderID, OpResult, data)
}

func (mh *matchHandler) handleEndTurn(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	slot, err := mh.senderSlot(state, senderID)
	if err == nil {
		err = state.Game.EndTurn(slot)
	}
	if err != nil {
		mh.sendError(state, dispatcher, logger, senderID, wire.TypeEndTurn, err)
	}
}

func (mh *matchHandler) handleResync(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		mh.sendLobby(ctx, state, dispatcher, logger, msg.GetUserId())
		return
	}
	mh.sendGameState(state, dispatcher, logger, msg.GetUserId())
}

// senderSlot resolves the roster slot a connected user currently holds.
func (mh *matchHandler) senderSlot(state *MatchState, userID string) (int, error) {
	if state.Game == nil {
		return -1, fmt.Errorf("no game running: %w", domain.ErrWrongPhase)
	}
	slot := state.Game.SlotOf(userID)
	if slot < 0 {
		return -1, fmt.Errorf("user %s: %w", userID, domain.ErrUnknownParticipant)
	}
	return slot, nil
}

// flush delivers published events, then refreshes every human's private
// view. A finished game is settled afterwards.
func (mh *matchHandler) flush(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if len(state.Outbox) == 0 {
		return
	}
	events := state.Outbox
	state.Outbox = nil
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	for _, p := range state.Game.Roster() {
		if !p.Bot {
			mh.sendView(state, dispatcher, logger, p)
		}
	}
	if state.Game.Ended() {
		mh.finishGame(ctx, state, dispatcher, logger)
	}
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	data, err := wire.EncodeEvent(ev)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Targeted events whose recipients are not connected (bots, departed
		// users) must not fall back to a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(OpEvent, data, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

func (mh *matchHandler) sendView(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, p domain.Participant) {
	if _, ok := state.Presences[p.UserID]; !ok {
		return
	}
	data, err := wire.EncodeView(state.Game.ViewFor(p.Index))
	if err != nil {
		logger.Error("Failed to marshal view for slot %d: %v", p.Index, err)
		return
	}
	mh.sendTo(state, dispatcher, logger, p.UserID, OpView, data)
}

// sendGameState sends the public snapshot and, for participants, their
// private view.
func (mh *matchHandler) sendGameState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	data, err := wire.EncodeSnapshot(state.Game.Snapshot())
	if err != nil {
		logger.Error("Failed to marshal snapshot: %v", err)
		return
	}
	mh.sendTo(state, dispatcher, logger, userID, OpSnapshot, data)
	if slot := state.Game.SlotOf(userID); slot >= 0 {
		if p, ok := state.Game.Participant(slot); ok {
			mh.sendView(state, dispatcher, logger, p)
		}
	}
}

// finishGame pays rewards by final standing and returns the match to the
// lobby. Humans who are no longer connected lose their seats.
func (mh *matchHandler) finishGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	standings := state.Game.Standings()
	if state.Economy != nil {
		rewards := make([]ports.StandingReward, 0, len(standings))
		for rank, s := range standings {
			if s.Bot {
				continue
			}
			rewards = append(rewards, ports.StandingReward{
				UserID: s.UserID,
				Rank:   rank + 1,
				Points: s.Points,
				Gold:   state.Config.Reward(rank),
			})
		}
		if err := state.Economy.PayStandings(ctx, state.Game.ID(), rewards); err != nil {
			logger.Error("Failed to pay standings: %v", err)
		}
	}

	if len(standings) > 0 {
		logger.Info("finishGame: %s won with %d points", standings[0].Name, standings[0].Points)
	}
	mh.closeGame(state)
	for i, s := range state.Seats {
		if _, connected := state.Presences[s.UserID]; s.human() && !connected {
			state.Seats[i] = seat{}
		}
	}
	state.OwnerSeat = findFirstHumanSeat(state.Seats)
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastLobby(ctx, state, dispatcher, logger)
}

func (mh *matchHandler) closeGame(state *MatchState) {
	if state.Game == nil {
		return
	}
	state.Game.Close()
	if state.Recorder != nil {
		state.Recorder.gameRunning(state.Game.ID(), false)
	}
	state.Game = nil
	state.Board = nil
	state.Clock = nil
	state.Outbox = nil
	state.Bots = make(map[int]*bot.Agent)
	state.PendingRejoin = make(map[string]bool)
	state.BotWaitUntil = 0
}

// isHumanSeat reports whether the seat index belongs to a human player.
func isHumanSeat(seats []seat, i int) bool {
	return i >= 0 && i < len(seats) && seats[i].human()
}

// lobbyMessage renders the seat list. Human seats carry their wallet
// balance when the economy can report it.
func lobbyMessage(ctx context.Context, state *MatchState, logger runtime.Logger) ([]byte, error) {
	seats := make([]interface{}, len(state.Seats))
	for i, s := range state.Seats {
		entry := map[string]interface{}{
			"seat":    i,
			"user_id": s.UserID,
			"name":    s.Name,
			"bot":     s.Bot,
			"owner":   i == state.OwnerSeat,
		}
		if s.human() && state.Economy != nil {
			balance, err := state.Economy.Balance(ctx, s.UserID)
			if err != nil {
				logger.Warn("Failed to get balance for %s: %v", s.UserID, err)
			} else {
				entry["balance"] = balance
			}
		}
		seats[i] = entry
	}
	body, err := structpb.NewStruct(map[string]interface{}{
		"type": "lobby",
		"payload": map[string]interface{}{
			"seats":      seats,
			"owner_seat": state.OwnerSeat,
			"tick":       state.Tick,
		},
	})
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(body)
}

func (mh *matchHandler) broadcastLobby(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	data, err := lobbyMessage(ctx, state, logger)
	if err != nil {
		logger.Error("Failed to marshal lobby: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpLobby, data, nil, nil, true); err != nil {
		logger.Error("Failed to broadcast lobby: %v", err)
	}
}

func (mh *matchHandler) sendLobby(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	data, err := lobbyMessage(ctx, state, logger)
	if err != nil {
		logger.Error("Failed to marshal lobby: %v", err)
		return
	}
	mh.sendTo(state, dispatcher, logger, userID, OpLobby, data)
}

// sendError sends a rejected request back to its sender only.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID, request string, cause error) {
	data, err := wire.EncodeError(request, cause)
	if err != nil {
		logger.Error("Failed to marshal error: %v", err)
		return
	}
	mh.sendTo(state, dispatcher, logger, userID, OpError, data)
}

func (mh *matchHandler) sendTo(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, opCode int64, data []byte) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send op %d to %s: Presence not found", opCode, userID)
		return
	}
	if err := dispatcher.BroadcastMessage(opCode, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send op %d to %s: %v", opCode, userID, err)
	}
}

// matchLabel renders the label quick match queries filter on.
func matchLabel(state *MatchState) (string, error) {
	open := state.GetOpenSeatsCount()
	if state.Game != nil {
		open = 0
	}
	label, err := structpb.NewStruct(map[string]interface{}{
		labelKeyGame:  gameLabel,
		labelKeyOpen:  open,
		labelKeyPhase: state.phase(),
	})
	if err != nil {
		return "", err
	}
	data, err := protojson.Marshal(label)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := matchLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d seconds of grace", graceSeconds)
	if matchState, ok := state.(*MatchState); ok {
		mh.closeGame(matchState)
	}
	return state
}

// MatchSignal answers rejoin ticket requests made through RpcRejoinTicket.
// The reply is a wire ticket or error message.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}
	reply, err := mh.issueTicket(ctx, matchState, data)
	if err != nil {
		logger.Warn("MatchSignal: %v", err)
		reply, _ = wire.EncodeError(wire.TypeRejoin, err)
	}
	return matchState, string(reply)
}

func (mh *matchHandler) issueTicket(ctx context.Context, state *MatchState, data string) ([]byte, error) {
	req, err := wire.Decode([]byte(data))
	if err != nil {
		return nil, err
	}
	if req.Type != wire.TypeRejoin {
		return nil, fmt.Errorf("signal %q: %w", req.Type, domain.ErrInvalidAction)
	}
	if state.Game == nil {
		return nil, fmt.Errorf("no game running: %w", domain.ErrCannotRejoin)
	}
	userID := req.Field("user_id")
	slot, ok := state.Game.Departed(userID)
	if !ok {
		return nil, fmt.Errorf("user %s holds no departed slot: %w", userID, domain.ErrCannotRejoin)
	}
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	token, err := state.Tickets.Issue(matchID, userID, slot)
	if err != nil {
		return nil, err
	}
	return wire.EncodeTicket(matchID, token)
}
