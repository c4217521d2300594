package nakama

import (
	"math/rand"
	"sort"
	"time"

	"settlers/internal/app"
	"settlers/internal/board"
	"settlers/internal/bot"
	"settlers/internal/config"
	"settlers/internal/ports"
	"settlers/internal/ticket"
	"settlers/internal/turntimer"

	"github.com/heroiclabs/nakama-common/runtime"
)

// seat is one lobby chair. Seats keep their user id through a running game
// so departed humans can be found again.
type seat struct {
	UserID string       `json:"user_id"`
	Name   string       `json:"name"`
	Bot    bool         `json:"bot"`
	Level  bot.BotLevel `json:"-"`
}

func (s seat) empty() bool { return s.UserID == "" }

func (s seat) human() bool { return s.UserID != "" && !s.Bot }

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Config    config.GameConfig           `json:"-"`
	Seats     []seat                      `json:"seats"`
	OwnerSeat int                         `json:"owner_seat"` // -1 when no human holds a seat
	Tick      int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"` // UserId -> Presence for targeted messaging

	Game   *app.Match        `json:"-"` // nil while in the lobby
	Board  *board.Board      `json:"-"`
	Clock  *turntimer.Manual `json:"-"` // driven from the tick count
	Outbox []app.Event       `json:"-"` // events published since the last flush

	// PendingRejoin holds returning users whose stand-in was holding the
	// turn when they reconnected.
	PendingRejoin map[string]bool `json:"-"`

	BotsEnabled          bool               `json:"bots_enabled"`
	BotMinDelay          int64              `json:"bot_min_delay"`       // ticks
	BotMaxDelay          int64              `json:"bot_max_delay"`       // ticks
	BotAutoFillDelay     int64              `json:"bot_auto_fill_delay"` // ticks
	BotWaitUntil         int64              `json:"bot_wait_until"`
	LastSinglePlayerTick int64              `json:"last_single_player_tick"`
	Bots                 map[int]*bot.Agent `json:"-"` // by roster slot

	Rand     *rand.Rand        `json:"-"`
	Economy  ports.EconomyPort `json:"-"`
	Recorder *nakamaRecorder   `json:"-"`
	Tickets  *ticket.Issuer    `json:"-"`
}

func newMatchState(cfg config.GameConfig, economy ports.EconomyPort, rec *nakamaRecorder, tickets *ticket.Issuer) *MatchState {
	seats := cfg.Seats
	if seats < app.MinParticipants || seats > app.MaxParticipants {
		seats = config.Default().Seats
	}
	return &MatchState{
		Config:           cfg,
		Seats:            make([]seat, seats),
		OwnerSeat:        -1,
		Presences:        make(map[string]runtime.Presence),
		PendingRejoin:    make(map[string]bool),
		BotMinDelay:      millisToTicks(cfg.BotMinDelayMillis),
		BotMaxDelay:      millisToTicks(cfg.BotMaxDelayMillis),
		BotAutoFillDelay: int64(cfg.BotAutoFillDelaySeconds) * tickRate,
		Bots:             make(map[int]*bot.Agent),
		Rand:             rand.New(rand.NewSource(app.Seed())),
		Economy:          economy,
		Recorder:         rec,
		Tickets:          tickets,
	}
}

func millisToTicks(ms int) int64 {
	return int64(ms) * tickRate / 1000
}

// tickTime maps a tick onto the logical clock the turn timer runs on.
func tickTime(tick int64) time.Time {
	return time.Unix(0, 0).Add(time.Duration(tick) * time.Second / tickRate)
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, s := range ms.Seats {
		if s.empty() {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	return len(ms.Seats) - ms.GetOpenSeatsCount()
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, s := range ms.Seats {
		if s.human() {
			count++
		}
	}
	return count
}

func (ms *MatchState) seatOf(userID string) int {
	for i, s := range ms.Seats {
		if s.UserID == userID {
			return i
		}
	}
	return -1
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1 if none exist.
func findFirstHumanSeat(seats []seat) int {
	for i, s := range seats {
		if s.human() {
			return i
		}
	}
	return -1
}

// botDelay draws the ticks a bot waits before acting.
func (ms *MatchState) botDelay() int64 {
	span := ms.BotMaxDelay - ms.BotMinDelay
	if span <= 0 {
		return ms.BotMinDelay
	}
	return ms.BotMinDelay + ms.Rand.Int63n(span+1)
}

func (ms *MatchState) botSlots() []int {
	slots := make([]int, 0, len(ms.Bots))
	for slot := range ms.Bots {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

func (ms *MatchState) phase() string {
	if ms.Game != nil {
		return "playing"
	}
	return "lobby"
}
