package app

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"settlers/internal/domain"
	"settlers/internal/ports"
	"settlers/internal/turntimer"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

const noHolder = -1

// Options configures a new match. Board and Inventory are required.
type Options struct {
	ID        string
	Roster    []domain.Participant
	Board     ports.BoardPort
	Inventory ports.InventoryPort
	Rules     Rules
	Rand      Rand
	Logger    runtime.Logger
	Sink      EventSink
	Recorder  Recorder
	Scheduler turntimer.Scheduler
	// Substitute builds the bot that takes over a departing participant's
	// slot. A generic bot is used when nil.
	Substitute func(slot int) domain.Participant
	// NewID generates trade offer ids.
	NewID func() string
}

// Match owns one session: roster, turn queue, active phase, turn context,
// trade ledger and turn timer. Every exported method takes the match lock,
// so inbound actions, timer expirations and roster changes never overlap.
// The lock gives mutual exclusion only; concurrent callers are served in
// whatever order they acquire it.
type Match struct {
	mu sync.Mutex

	id         string
	rules      Rules
	log        runtime.Logger
	rng        Rand
	board      ports.BoardPort
	inv        ports.InventoryPort
	sink       EventSink
	rec        Recorder
	timer      *turntimer.Timer
	substitute func(slot int) domain.Participant
	newID      func() string

	roster   []domain.Participant
	departed map[string]domain.Participant
	queue    *TurnQueue
	phase    PhaseKind
	prev     PhaseKind
	ctx      *TurnContext
	trades   *tradeLedger

	knights    map[int]int
	roads      map[int][]int
	roadHolder int
	playable   map[domain.DevCard]int
	points     []int

	started   bool
	ended     bool
	standings []domain.Standing
}

// NewMatch validates opts and builds a match ready to Start.
func NewMatch(opts Options) (*Match, error) {
	if n := len(opts.Roster); n < MinParticipants || n > MaxParticipants {
		return nil, fmt.Errorf("roster of %d, need %d-%d: %w", n, MinParticipants, MaxParticipants, domain.ErrInvalidAction)
	}
	if opts.Board == nil || opts.Inventory == nil {
		return nil, errors.New("match needs a board and an inventory")
	}

	roster := make([]domain.Participant, len(opts.Roster))
	for i, p := range opts.Roster {
		p.Index = i
		if p.Color == "" {
			p.Color = domain.ColorFor(i)
		}
		if p.Name == "" {
			p.Name = p.UserID
		}
		roster[i] = p
	}

	m := &Match{
		id:         opts.ID,
		rules:      opts.Rules.withDefaults(),
		log:        opts.Logger,
		rng:        opts.Rand,
		board:      opts.Board,
		inv:        opts.Inventory,
		sink:       opts.Sink,
		rec:        opts.Recorder,
		timer:      turntimer.New(opts.Scheduler),
		substitute: opts.Substitute,
		newID:      opts.NewID,
		roster:     roster,
		departed:   make(map[string]domain.Participant),
		queue:      NewTurnQueue(len(roster)),
		trades:     newTradeLedger(),
		knights:    make(map[int]int),
		roads:      make(map[int][]int),
		roadHolder: noHolder,
		playable:   make(map[domain.DevCard]int),
		points:     make([]int, len(roster)),
	}
	if m.id == "" {
		m.id = uuid.NewString()
	}
	if m.log == nil {
		m.log = nopLogger{}
	}
	if m.rng == nil {
		m.rng = NewRand()
	}
	if m.rec == nil {
		m.rec = nopRecorder{}
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.substitute == nil {
		m.substitute = genericBot
	}
	m.ctx = newTurnContext(len(roster), m.rules.ArmyThreshold)
	return m, nil
}

func genericBot(slot int) domain.Participant {
	id := "bot-" + uuid.NewString()[:8]
	return domain.Participant{Index: slot, UserID: id, Name: fmt.Sprintf("Bot %d", slot+1), Bot: true}
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// Rules returns the rules the match was built with.
func (m *Match) Rules() Rules { return m.rules }

// Start enters the setup phase for the first participant.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("match %s already started: %w", m.id, domain.ErrInvalidAction)
	}
	m.started = true
	holder := m.queue.Head()
	m.publish(Event{Kind: EventTurnAdvanced, Payload: TurnAdvancedPayload{Holder: holder, Name: m.roster[holder].Name}})
	m.enter(PhaseSetup)
	m.log.Info("Start: match %s started with %d participants", m.id, len(m.roster))
	return nil
}

// Close tears the match down without a result. The timer is stopped and
// killed so an expiration already in flight finds the match closed.
func (m *Match) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timer.Stop()
	m.timer.Kill()
	m.ended = true
}

// SubmitAction is the single entry point for inbound actions. Failures are
// returned to the caller only and leave the match in a consistent phase.
func (m *Match) SubmitAction(a Action) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a == nil {
		return Result{}, fmt.Errorf("nil action: %w", domain.ErrInvalidAction)
	}
	res, err := m.submit(a)
	m.rec.ActionHandled(a.Kind(), Outcome(err))
	if err != nil {
		m.log.Debug("SubmitAction: %s from slot %d rejected in %s: %v", a.Kind(), a.Sender(), m.phase, err)
	}
	return res, err
}

func (m *Match) submit(a Action) (Result, error) {
	if m.ended {
		return Result{}, domain.ErrMatchEnded
	}
	if !m.started {
		return Result{}, fmt.Errorf("match not started: %w", domain.ErrWrongPhase)
	}
	if !m.validSlot(a.Sender()) {
		return Result{}, fmt.Errorf("slot %d: %w", a.Sender(), domain.ErrUnknownParticipant)
	}
	m.ctx.LastAction = a
	return phaseFor(m.phase).handle(m, a)
}

// EndTurn runs the active phase's forced end-of-turn on behalf of the turn
// holder, completing anything left unfinished. It is refused while other
// participants still owe discards, since those belong to them.
func (m *Match) EndTurn(sender int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ended {
		return domain.ErrMatchEnded
	}
	if !m.started {
		return fmt.Errorf("match not started: %w", domain.ErrWrongPhase)
	}
	if sender != m.queue.Head() {
		return fmt.Errorf("slot %d ending slot %d's turn: %w", sender, m.queue.Head(), domain.ErrNotYourTurn)
	}
	if m.phase == PhaseRobberDiscard {
		return fmt.Errorf("discards outstanding: %w", domain.ErrWrongPhase)
	}
	phaseFor(m.phase).forceEnd(m)
	return nil
}

// onTimer is the turn timer callback.
func (m *Match) onTimer(tok turntimer.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ended || !m.timer.Current(tok) {
		return
	}
	m.rec.TimerExpired(m.phase)
	m.log.Debug("onTimer: deadline passed in %s for slot %d", m.phase, m.queue.Head())
	phaseFor(m.phase).forceEnd(m)
}

func (m *Match) restartTimer(d time.Duration) {
	m.timer.Restart(d, m.onTimer)
}

// Leave hands a departing human's slot to a bot. Pieces stay with the slot.
func (m *Match) Leave(userID string) (domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ended {
		return domain.Participant{}, domain.ErrMatchEnded
	}
	slot := m.slotOf(userID)
	if slot < 0 {
		return domain.Participant{}, fmt.Errorf("user %s: %w", userID, domain.ErrUnknownParticipant)
	}
	orig := m.roster[slot]
	if orig.Bot {
		return domain.Participant{}, fmt.Errorf("slot %d is already a bot: %w", slot, domain.ErrInvalidAction)
	}
	sub := m.substitute(slot)
	sub.Index = slot
	sub.Bot = true
	sub.Color = orig.Color
	m.departed[userID] = orig
	m.roster[slot] = sub
	m.publish(Event{Kind: EventParticipantReplaced, Payload: participantPayload(sub)})
	m.log.Info("Leave: user %s left slot %d, bot %s stands in", userID, slot, sub.UserID)
	return sub, nil
}

// Rejoin restores a departed human to their slot. It fails with
// domain.ErrCannotRejoin if the user never left this match or if their
// stand-in currently holds the turn.
func (m *Match) Rejoin(userID string) (domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ended {
		return domain.Participant{}, domain.ErrMatchEnded
	}
	orig, ok := m.departed[userID]
	if !ok {
		return domain.Participant{}, fmt.Errorf("user %s did not leave this match: %w", userID, domain.ErrCannotRejoin)
	}
	if orig.Index == m.queue.Head() && m.started {
		return domain.Participant{}, fmt.Errorf("slot %d is acting: %w", orig.Index, domain.ErrCannotRejoin)
	}
	sub := m.roster[orig.Index]
	m.roster[orig.Index] = orig
	delete(m.departed, userID)
	m.publish(Event{Kind: EventParticipantRestored, Payload: participantPayload(orig)})
	m.log.Info("Rejoin: user %s back in slot %d replacing %s", userID, orig.Index, sub.UserID)
	return sub, nil
}

// Departed reports the slot a user left, if they have not rejoined.
func (m *Match) Departed(userID string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.departed[userID]
	return p.Index, ok
}

// DebugForcePhase makes k the active phase without any validation.
func (m *Match) DebugForcePhase(k PhaseKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !k.Valid() {
		return fmt.Errorf("phase %q: %w", k, domain.ErrInvalidAction)
	}
	m.log.Warn("DebugForcePhase: forcing %s -> %s", m.phase, k)
	m.enter(k)
	return nil
}

// DebugOverrideDice fixes the total of the next roll.
func (m *Match) DebugOverrideDice(total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if total < 2 || total > 12 {
		return fmt.Errorf("dice total %d: %w", total, domain.ErrInvalidAction)
	}
	m.ctx.DiceOverride = total
	return nil
}

// Phase returns the active phase.
func (m *Match) Phase() PhaseKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// TurnHolder returns the slot at the head of the turn queue.
func (m *Match) TurnHolder() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Head()
}

// QueueSnapshot returns the turn order, head first.
func (m *Match) QueueSnapshot() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Snapshot()
}

// Roster returns a copy of the current roster.
func (m *Match) Roster() []domain.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Participant(nil), m.roster...)
}

// Participant returns the roster entry for slot.
func (m *Match) Participant(slot int) (domain.Participant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.validSlot(slot) {
		return domain.Participant{}, false
	}
	return m.roster[slot], true
}

// SlotOf returns the roster slot held by userID, or -1.
func (m *Match) SlotOf(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slotOf(userID)
}

// Points returns a participant's current victory points.
func (m *Match) Points(slot int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.validSlot(slot) {
		return 0
	}
	return m.pointsOf(slot)
}

// Ended reports whether the match is over.
func (m *Match) Ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ended
}

// Standings returns the final standings once the match has a winner, or the
// current ranking while it is running.
func (m *Match) Standings() []domain.Standing {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.standings != nil {
		return append([]domain.Standing(nil), m.standings...)
	}
	return m.rank()
}

func (m *Match) validSlot(slot int) bool {
	return slot >= 0 && slot < len(m.roster)
}

func (m *Match) slotOf(userID string) int {
	for i, p := range m.roster {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func (m *Match) publish(ev Event) {
	if m.sink != nil {
		m.sink.Publish(ev)
	}
}

// userIDs maps slots to the user ids currently holding them.
func (m *Match) userIDs(slots ...int) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if m.validSlot(s) {
			out = append(out, m.roster[s].UserID)
		}
	}
	return out
}

func (m *Match) requireHolder(slot int) error {
	if slot != m.queue.Head() {
		return fmt.Errorf("slot %d acting on slot %d's turn: %w", slot, m.queue.Head(), domain.ErrNotYourTurn)
	}
	return nil
}

func (m *Match) pick(xs []int) int {
	return xs[m.rng.Intn(len(xs))]
}

func (m *Match) rank() []domain.Standing {
	out := make([]domain.Standing, len(m.roster))
	for i, p := range m.roster {
		out[i] = domain.Standing{Slot: i, UserID: p.UserID, Name: p.Name, Bot: p.Bot, Points: m.pointsOf(i)}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Points > out[b].Points })
	return out
}

func participantPayload(p domain.Participant) ParticipantPayload {
	return ParticipantPayload{Slot: p.Index, UserID: p.UserID, Name: p.Name, Bot: p.Bot}
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
