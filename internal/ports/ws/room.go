package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"settlers/internal/app"
	"settlers/internal/board"
	"settlers/internal/bot"
	"settlers/internal/config"
	"settlers/internal/domain"
	"settlers/internal/inventory"
	"settlers/internal/logger"
	"settlers/internal/ports/wire"
	"settlers/internal/ticket"
)

// DefaultTick is how often a room retries rejoins and drives its bots.
const DefaultTick = 200 * time.Millisecond

var (
	ErrRoomClosed = errors.New("room closed")
	ErrRoomFull   = errors.New("room full")
	ErrInProgress = errors.New("game in progress")
)

// Metrics is what rooms report to. *telemetry.Metrics satisfies it.
type Metrics interface {
	app.Recorder
	MatchStarted()
	MatchClosed()
}

// RoomOptions configures every room a hub creates.
type RoomOptions struct {
	Config      config.GameConfig
	Tickets     *ticket.Issuer
	Metrics     Metrics
	Logger      *slog.Logger
	BotsEnabled bool
	Tick        time.Duration
}

// RoomInfo is the public listing of a room.
type RoomInfo struct {
	ID     string `json:"id"`
	Phase  string `json:"phase"`
	Seats  int    `json:"seats"`
	Seated int    `json:"seated"`
	Humans int    `json:"humans"`
}

type seat struct {
	UserID string
	Name   string
	Bot    bool
	Level  bot.BotLevel
}

func (s seat) empty() bool { return s.UserID == "" }

func (s seat) human() bool { return s.UserID != "" && !s.Bot }

type joinRequest struct {
	client *Client
	ok     chan bool
}

type inbound struct {
	client *Client
	data   []byte
}

// Room runs one lobby and, once started, one match. Room state belongs to
// the Run goroutine; clients and HTTP handlers reach it through channels.
type Room struct {
	ID string

	cfg         config.GameConfig
	tickets     *ticket.Issuer
	metrics     Metrics
	log         *slog.Logger
	botsEnabled bool
	tick        time.Duration

	joins   chan joinRequest
	leaves  chan *Client
	inbound chan inbound
	calls   chan func()
	done    chan struct{}

	clients   map[string]*Client
	seats     []seat
	owner     int
	game      *app.Match
	board     *board.Board
	bots      map[int]*bot.Agent
	pending   map[string]bool
	botAt     time.Time
	soloSince time.Time
	rand      *rand.Rand

	// outMu guards outbox, which timer goroutines append to.
	outMu  sync.Mutex
	outbox []app.Event

	infoMu sync.Mutex
	info   RoomInfo
}

func newRoom(id string, opts RoomOptions) *Room {
	seats := opts.Config.Seats
	if seats < app.MinParticipants || seats > app.MaxParticipants {
		seats = config.Default().Seats
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	r := &Room{
		ID:          id,
		cfg:         opts.Config,
		tickets:     opts.Tickets,
		metrics:     opts.Metrics,
		log:         log.With("room_id", id),
		botsEnabled: opts.BotsEnabled,
		tick:        tick,
		joins:       make(chan joinRequest),
		leaves:      make(chan *Client),
		inbound:     make(chan inbound, 64),
		calls:       make(chan func()),
		done:        make(chan struct{}),
		clients:     make(map[string]*Client),
		seats:       make([]seat, seats),
		owner:       -1,
		bots:        make(map[int]*bot.Agent),
		pending:     make(map[string]bool),
		rand:        rand.New(rand.NewSource(app.Seed())),
	}
	r.publishInfo()
	return r
}

// Run serves the room until ctx is cancelled or its last client leaves.
func (r *Room) Run(ctx context.Context) {
	ticker := time.NewTicker(r.tick)
	defer func() {
		ticker.Stop()
		r.shutdown()
	}()

	for {
		select {
		case req := <-r.joins:
			req.ok <- r.join(req.client)
		case c := <-r.leaves:
			if r.leave(c) {
				return
			}
		case in := <-r.inbound:
			r.handle(in.client, in.data)
		case fn := <-r.calls:
			fn()
		case now := <-ticker.C:
			r.step(now)
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once the room stops.
func (r *Room) Done() <-chan struct{} { return r.done }

// Info returns the latest public listing.
func (r *Room) Info() RoomInfo {
	r.infoMu.Lock()
	defer r.infoMu.Unlock()
	return r.info
}

// Admit reports whether userID may connect, presenting raw as a rejoin
// ticket when a game is running.
func (r *Room) Admit(userID, raw string) error {
	var err error
	if callErr := r.call(func() { err = r.admit(userID, raw) }); callErr != nil {
		return callErr
	}
	return err
}

// IssueTicket signs a rejoin ticket for a human who left the running game.
func (r *Room) IssueTicket(userID string) (string, error) {
	var (
		token string
		err   error
	)
	if callErr := r.call(func() { token, err = r.issueTicket(userID) }); callErr != nil {
		return "", callErr
	}
	return token, err
}

func (r *Room) call(fn func()) error {
	finished := make(chan struct{})
	select {
	case r.calls <- func() { fn(); close(finished) }:
	case <-r.done:
		return ErrRoomClosed
	}
	<-finished
	return nil
}

func (r *Room) attach(c *Client) bool {
	req := joinRequest{client: c, ok: make(chan bool, 1)}
	select {
	case r.joins <- req:
	case <-r.done:
		return false
	}
	select {
	case ok := <-req.ok:
		return ok
	case <-r.done:
		return false
	}
}

func (r *Room) detach(c *Client) {
	select {
	case r.leaves <- c:
	case <-r.done:
	}
}

func (r *Room) receive(c *Client, data []byte) {
	select {
	case r.inbound <- inbound{client: c, data: data}:
	case <-r.done:
	}
}

func (r *Room) admit(userID, raw string) error {
	if r.game != nil {
		if _, departed := r.game.Departed(userID); !departed {
			return ErrInProgress
		}
		claims, err := r.tickets.Verify(raw, r.ID)
		if err != nil {
			return err
		}
		if claims.Subject != userID {
			return fmt.Errorf("ticket belongs to another user: %w", ticket.ErrInvalid)
		}
		return nil
	}
	if r.seatOf(userID) >= 0 {
		return nil
	}
	for _, s := range r.seats {
		if s.empty() || s.Bot {
			return nil
		}
	}
	return ErrRoomFull
}

func (r *Room) issueTicket(userID string) (string, error) {
	if r.game == nil {
		return "", fmt.Errorf("no game running: %w", domain.ErrCannotRejoin)
	}
	slot, ok := r.game.Departed(userID)
	if !ok {
		return "", fmt.Errorf("user %s holds no departed slot: %w", userID, domain.ErrCannotRejoin)
	}
	return r.tickets.Issue(r.ID, userID, slot)
}

func (r *Room) join(c *Client) bool {
	if err := r.admit(c.UserID, c.Ticket); err != nil {
		r.log.Info("join refused", "user_id", c.UserID, "error", err)
		if data, encErr := wire.EncodeError("join", err); encErr == nil {
			c.deliver(data)
		}
		return false
	}
	if old, ok := r.clients[c.UserID]; ok && old != c {
		close(old.send)
	}
	r.clients[c.UserID] = c

	if r.game != nil {
		r.rejoin(c.UserID)
		r.sendGameState(c)
		r.flush()
		r.publishInfo()
		return true
	}
	r.takeSeat(c)
	if !isHumanSeat(r.seats, r.owner) {
		r.owner = r.seatOf(c.UserID)
	}
	r.broadcastLobby()
	r.publishInfo()
	return true
}

// takeSeat puts the user in an empty seat, or replaces a bot.
func (r *Room) takeSeat(c *Client) {
	if i := r.seatOf(c.UserID); i >= 0 {
		return
	}
	name := c.Name
	if name == "" {
		name = c.UserID
	}
	for i, s := range r.seats {
		if s.empty() {
			r.seats[i] = seat{UserID: c.UserID, Name: name}
			r.log.Info("seated", "user_id", c.UserID, "seat", i)
			return
		}
	}
	for i, s := range r.seats {
		if s.Bot {
			r.seats[i] = seat{UserID: c.UserID, Name: name}
			r.log.Info("replaced bot", "user_id", c.UserID, "seat", i, "bot", s.UserID)
			return
		}
	}
}

func (r *Room) rejoin(userID string) {
	if _, err := r.game.Rejoin(userID); err != nil {
		if errors.Is(err, domain.ErrCannotRejoin) {
			if !r.pending[userID] {
				r.log.Info("rejoin deferred", "user_id", userID, "error", err)
			}
			r.pending[userID] = true
			return
		}
		r.log.Warn("rejoin failed", "user_id", userID, "error", err)
		delete(r.pending, userID)
		return
	}
	delete(r.pending, userID)
	slot := r.game.SlotOf(userID)
	delete(r.bots, slot)
	r.log.Info("rejoined", "user_id", userID, "slot", slot)
}

// leave drops c and reports whether the room has no clients left.
func (r *Room) leave(c *Client) bool {
	if cur, ok := r.clients[c.UserID]; !ok || cur != c {
		return false
	}
	delete(r.clients, c.UserID)
	close(c.send)
	delete(r.pending, c.UserID)

	if r.game != nil {
		r.standIn(c.UserID)
	} else if i := r.seatOf(c.UserID); i >= 0 {
		r.seats[i] = seat{}
	}

	if len(r.clients) == 0 {
		r.log.Info("last client left")
		return true
	}
	if r.game == nil {
		r.owner = findFirstHumanSeat(r.seats)
		r.broadcastLobby()
	} else {
		r.flush()
	}
	r.publishInfo()
	return false
}

func (r *Room) standIn(userID string) {
	slot := r.game.SlotOf(userID)
	if slot < 0 {
		return
	}
	sub, err := r.game.Leave(userID)
	if err != nil {
		r.log.Warn("could not replace departing user", "user_id", userID, "error", err)
		return
	}
	r.addAgent(sub, bot.Identity(slot).Level())
}

func (r *Room) addAgent(p domain.Participant, level bot.BotLevel) {
	agent, err := bot.NewAgent(p, level, r.board, rand.New(rand.NewSource(r.rand.Int63())))
	if err != nil {
		r.log.Error("failed to create bot agent", "user_id", p.UserID, "error", err)
		return
	}
	r.bots[p.Index] = agent
}

func (r *Room) step(now time.Time) {
	if r.game != nil {
		for userID := range r.pending {
			r.rejoin(userID)
		}
	}
	r.processBots(now)
	if r.game != nil {
		r.flush()
	}
}

func (r *Room) processBots(now time.Time) {
	if r.game == nil {
		if !r.botsEnabled || countHumans(r.seats) != 1 {
			r.soloSince = time.Time{}
			return
		}
		if r.soloSince.IsZero() {
			r.soloSince = now
		}
		if now.Sub(r.soloSince) < time.Duration(r.cfg.BotAutoFillDelaySeconds)*time.Second {
			return
		}
		if r.fillBots() {
			r.broadcastLobby()
			r.publishInfo()
		}
		r.soloSince = time.Time{}
		return
	}

	if r.game.Ended() || len(r.bots) == 0 {
		return
	}
	if r.botAt.IsZero() {
		r.botAt = now.Add(r.botDelay())
	}
	if now.Before(r.botAt) {
		return
	}
	r.botAt = time.Time{}
	for _, slot := range r.botSlots() {
		if _, err := bot.Act(r.game, r.bots[slot]); err != nil {
			r.log.Debug("bot step rejected", "slot", slot, "error", err)
		}
	}
}

func (r *Room) fillBots() bool {
	added := false
	for i, s := range r.seats {
		if !s.empty() {
			continue
		}
		identity := bot.Identity(i)
		p := identity.Participant(i)
		r.seats[i] = seat{UserID: p.UserID, Name: p.Name, Bot: true, Level: identity.Level()}
		r.log.Info("added bot", "bot", p.Name, "user_id", p.UserID, "seat", i)
		added = true
	}
	return added
}

func (r *Room) botDelay() time.Duration {
	lo, hi := r.cfg.BotMinDelayMillis, r.cfg.BotMaxDelayMillis
	if hi <= lo {
		return time.Duration(lo) * time.Millisecond
	}
	return time.Duration(lo+r.rand.Intn(hi-lo+1)) * time.Millisecond
}

func (r *Room) botSlots() []int {
	slots := make([]int, 0, len(r.bots))
	for slot := range r.bots {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

func (r *Room) handle(c *Client, data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		r.sendError(c, "", err)
		return
	}
	switch msg.Type {
	case wire.TypeStartGame:
		r.handleStartGame(c)
	case wire.TypeEndTurn:
		r.handleEndTurn(c)
	case wire.TypeResync:
		r.handleResync(c)
	default:
		r.handleAction(c, msg)
	}
	if r.game != nil {
		r.flush()
	}
}

func (r *Room) handleStartGame(c *Client) {
	if r.game != nil {
		r.sendError(c, wire.TypeStartGame, fmt.Errorf("game already running: %w", domain.ErrWrongPhase))
		return
	}
	if r.seatOf(c.UserID) != r.owner {
		r.sendError(c, wire.TypeStartGame, fmt.Errorf("only the owner starts the game: %w", domain.ErrNotYourTurn))
		return
	}
	if n := countSeated(r.seats); n < app.MinParticipants {
		r.sendError(c, wire.TypeStartGame, fmt.Errorf("%d seated, need %d: %w", n, app.MinParticipants, domain.ErrInvalidAction))
		return
	}
	if err := r.startGame(); err != nil {
		r.log.Error("failed to start game", "error", err)
		r.sendError(c, wire.TypeStartGame, err)
		return
	}
	r.publishInfo()
	r.log.Info("game started", "players", countSeated(r.seats))
}

// startGame builds the match from the occupied seats in seat order. Turn
// deadlines run on the wall clock.
func (r *Room) startGame() error {
	var (
		roster []domain.Participant
		levels []bot.BotLevel
	)
	for _, s := range r.seats {
		if s.empty() {
			continue
		}
		roster = append(roster, domain.Participant{UserID: s.UserID, Name: s.Name, Bot: s.Bot})
		levels = append(levels, s.Level)
	}

	b := board.New()
	if r.cfg.ShuffleBoard {
		b = board.NewShuffled(r.rand)
	}
	// The match draws from its own source on timer goroutines; r.rand stays
	// with the room goroutine.
	matchRand := rand.New(rand.NewSource(r.rand.Int63()))
	sink := app.SinkFunc(func(ev app.Event) {
		r.outMu.Lock()
		r.outbox = append(r.outbox, ev)
		r.outMu.Unlock()
	})
	opts := app.Options{
		ID:         r.ID,
		Roster:     roster,
		Board:      b,
		Inventory:  inventory.NewShuffled(r.rand),
		Rules:      r.cfg.Rules(),
		Rand:       matchRand,
		Logger:     logger.Runtime(r.log).WithField("match_id", r.ID),
		Sink:       sink,
		Substitute: bot.Substitute,
	}
	if r.metrics != nil {
		opts.Recorder = r.metrics
	}
	m, err := app.NewMatch(opts)
	if err != nil {
		return err
	}

	r.game = m
	r.board = b
	r.bots = make(map[int]*bot.Agent)
	r.botAt = time.Time{}
	for _, p := range m.Roster() {
		if p.Bot {
			r.addAgent(p, levels[p.Index])
		}
	}
	if err := m.Start(); err != nil {
		r.game = nil
		return err
	}
	if r.metrics != nil {
		r.metrics.MatchStarted()
	}
	return nil
}

func (r *Room) handleAction(c *Client, msg *wire.Message) {
	slot, err := r.senderSlot(c.UserID)
	if err != nil {
		r.sendError(c, msg.Type, err)
		return
	}
	act, err := msg.Action(slot)
	if err != nil {
		r.sendError(c, msg.Type, err)
		return
	}
	res, err := r.game.SubmitAction(act)
	if err != nil {
		r.log.Debug("action rejected", "user_id", c.UserID, "slot", slot, "type", msg.Type, "error", err)
		r.sendError(c, msg.Type, err)
		return
	}
	data, err := wire.EncodeResult(msg.Type, res)
	if err != nil {
		r.log.Error("failed to encode result", "error", err)
		return
	}
	c.deliver(data)
}

func (r *Room) handleEndTurn(c *Client) {
	slot, err := r.senderSlot(c.UserID)
	if err == nil {
		err = r.game.EndTurn(slot)
	}
	if err != nil {
		r.sendError(c, wire.TypeEndTurn, err)
	}
}

func (r *Room) handleResync(c *Client) {
	if r.game == nil {
		r.sendLobby(c)
		return
	}
	r.sendGameState(c)
}

func (r *Room) senderSlot(userID string) (int, error) {
	if r.game == nil {
		return -1, fmt.Errorf("no game running: %w", domain.ErrWrongPhase)
	}
	slot := r.game.SlotOf(userID)
	if slot < 0 {
		return -1, fmt.Errorf("user %s: %w", userID, domain.ErrUnknownParticipant)
	}
	return slot, nil
}

// flush delivers published events, then refreshes every connected human's
// private view. A finished game is settled afterwards.
func (r *Room) flush() {
	r.outMu.Lock()
	events := r.outbox
	r.outbox = nil
	r.outMu.Unlock()
	if len(events) == 0 {
		return
	}
	for _, ev := range events {
		r.broadcastEvent(ev)
	}
	for _, p := range r.game.Roster() {
		if !p.Bot {
			r.sendView(p)
		}
	}
	if r.game.Ended() {
		r.finishGame()
	}
}

func (r *Room) broadcastEvent(ev app.Event) {
	data, err := wire.EncodeEvent(ev)
	if err != nil {
		r.log.Error("failed to encode event", "kind", ev.Kind, "error", err)
		return
	}
	if len(ev.Recipients) == 0 {
		for _, c := range r.clients {
			c.deliver(data)
		}
		return
	}
	for _, uid := range ev.Recipients {
		if c, ok := r.clients[uid]; ok {
			c.deliver(data)
		}
	}
}

func (r *Room) sendView(p domain.Participant) {
	c, ok := r.clients[p.UserID]
	if !ok {
		return
	}
	data, err := wire.EncodeView(r.game.ViewFor(p.Index))
	if err != nil {
		r.log.Error("failed to encode view", "slot", p.Index, "error", err)
		return
	}
	c.deliver(data)
}

func (r *Room) sendGameState(c *Client) {
	data, err := wire.EncodeSnapshot(r.game.Snapshot())
	if err != nil {
		r.log.Error("failed to encode snapshot", "error", err)
		return
	}
	c.deliver(data)
	if slot := r.game.SlotOf(c.UserID); slot >= 0 {
		if p, ok := r.game.Participant(slot); ok {
			r.sendView(p)
		}
	}
}

// finishGame returns the room to the lobby. Humans who are no longer
// connected lose their seats.
func (r *Room) finishGame() {
	if standings := r.game.Standings(); len(standings) > 0 {
		r.log.Info("game finished", "winner", standings[0].Name, "points", standings[0].Points)
	}
	r.closeGame()
	for i, s := range r.seats {
		if _, connected := r.clients[s.UserID]; s.human() && !connected {
			r.seats[i] = seat{}
		}
	}
	r.owner = findFirstHumanSeat(r.seats)
	r.broadcastLobby()
	r.publishInfo()
}

func (r *Room) closeGame() {
	if r.game == nil {
		return
	}
	r.game.Close()
	if r.metrics != nil {
		r.metrics.MatchClosed()
	}
	r.game = nil
	r.board = nil
	r.bots = make(map[int]*bot.Agent)
	r.pending = make(map[string]bool)
	r.botAt = time.Time{}
	r.outMu.Lock()
	r.outbox = nil
	r.outMu.Unlock()
}

func (r *Room) shutdown() {
	close(r.done)
	r.closeGame()
	for id, c := range r.clients {
		close(c.send)
		delete(r.clients, id)
	}
	r.infoMu.Lock()
	r.info.Phase = "closed"
	r.infoMu.Unlock()
}

func (r *Room) lobbyMessage() ([]byte, error) {
	seats := make([]wire.LobbySeat, len(r.seats))
	for i, s := range r.seats {
		seats[i] = wire.LobbySeat{Seat: i, UserID: s.UserID, Name: s.Name, Bot: s.Bot, Owner: i == r.owner}
	}
	return wire.EncodeLobby(seats, r.owner)
}

func (r *Room) broadcastLobby() {
	data, err := r.lobbyMessage()
	if err != nil {
		r.log.Error("failed to encode lobby", "error", err)
		return
	}
	for _, c := range r.clients {
		c.deliver(data)
	}
}

func (r *Room) sendLobby(c *Client) {
	data, err := r.lobbyMessage()
	if err != nil {
		r.log.Error("failed to encode lobby", "error", err)
		return
	}
	c.deliver(data)
}

func (r *Room) sendError(c *Client, request string, cause error) {
	data, err := wire.EncodeError(request, cause)
	if err != nil {
		r.log.Error("failed to encode error", "error", err)
		return
	}
	c.deliver(data)
}

func (r *Room) publishInfo() {
	phase := "lobby"
	if r.game != nil {
		phase = "playing"
	}
	info := RoomInfo{
		ID:     r.ID,
		Phase:  phase,
		Seats:  len(r.seats),
		Seated: countSeated(r.seats),
		Humans: countHumans(r.seats),
	}
	r.infoMu.Lock()
	r.info = info
	r.infoMu.Unlock()
}

func (r *Room) seatOf(userID string) int {
	for i, s := range r.seats {
		if s.UserID == userID {
			return i
		}
	}
	return -1
}

func countSeated(seats []seat) int {
	n := 0
	for _, s := range seats {
		if !s.empty() {
			n++
		}
	}
	return n
}

func countHumans(seats []seat) int {
	n := 0
	for _, s := range seats {
		if s.human() {
			n++
		}
	}
	return n
}

func findFirstHumanSeat(seats []seat) int {
	for i, s := range seats {
		if s.human() {
			return i
		}
	}
	return -1
}

func isHumanSeat(seats []seat, i int) bool {
	return i >= 0 && i < len(seats) && seats[i].human()
}
