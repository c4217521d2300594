package app

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"settlers/internal/board"
	"settlers/internal/domain"
	"settlers/internal/inventory"
	"settlers/internal/turntimer"
)

type recordSink struct {
	events []Event
}

func (s *recordSink) Publish(ev Event) { s.events = append(s.events, ev) }

func (s *recordSink) count(kind EventKind) int {
	n := 0
	for _, ev := range s.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (s *recordSink) last(kind EventKind) (Event, bool) {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Kind == kind {
			return s.events[i], true
		}
	}
	return Event{}, false
}

type fixture struct {
	m     *Match
	sink  *recordSink
	sched *turntimer.Manual
	board *board.Board
	inv   *inventory.Ledger
}

func roster(n int) []domain.Participant {
	out := make([]domain.Participant, n)
	for i := range out {
		out[i] = domain.Participant{UserID: fmt.Sprintf("u%d", i), Name: fmt.Sprintf("Player %d", i)}
	}
	return out
}

func newFixture(t *testing.T, n int, deck []domain.DevCard, rules Rules) *fixture {
	t.Helper()
	f := &fixture{
		sink:  &recordSink{},
		sched: turntimer.NewManual(time.Unix(0, 0)),
		board: board.New(),
		inv:   inventory.New(deck),
	}
	seq := 0
	m, err := NewMatch(Options{
		ID:        "match-1",
		Roster:    roster(n),
		Board:     f.board,
		Inventory: f.inv,
		Rules:     rules,
		Rand:      rand.New(rand.NewSource(7)),
		Sink:      f.sink,
		Scheduler: f.sched,
		NewID: func() string {
			seq++
			return fmt.Sprintf("offer-%d", seq)
		},
	})
	if err != nil {
		t.Fatalf("new match error: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start error: %v", err)
	}
	f.m = m
	return f
}

// skipSetup marks setup finished and opens slot 0's dice phase.
func (f *fixture) skipSetup() {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.ctx.SetupTurns = 2 * f.m.queue.Len()
	f.m.ctx.Setup = nil
	f.m.enter(PhaseDice)
}

// toPlay skips setup and opens slot 0's play phase as if the dice were
// rolled.
func (f *fixture) toPlay() {
	f.skipSetup()
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.ctx.Rolled = true
	f.m.enter(PhasePlay)
}

func (f *fixture) give(slot int, b domain.Bundle) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.inv.AddResources(slot, b)
}

func (f *fixture) giveCard(slot int, c domain.DevCard, playable bool) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.inv.AddDevCard(slot, c)
	if playable {
		f.m.playable[c]++
	}
}

func (f *fixture) place(t *testing.T, slot int, kind domain.PieceKind, at int) {
	t.Helper()
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if err := f.board.Place(slot, kind, at); err != nil {
		t.Fatalf("place %s at %d: %v", kind, at, err)
	}
}

// cornerOf returns a corner of hex that satisfies the distance rule.
func (f *fixture) cornerOf(t *testing.T, hex int) int {
	t.Helper()
	for _, c := range f.board.LegalPositions(0, domain.Settlement, true) {
		for _, h := range f.board.HexesAtCorner(c) {
			if h.ID == hex {
				return c
			}
		}
	}
	t.Fatalf("no free corner on hex %d", hex)
	return -1
}

// producingHex returns a non-desert hex other than the robber's.
func (f *fixture) producingHex(t *testing.T) domain.Hex {
	t.Helper()
	for _, h := range f.board.Hexes() {
		if !h.Desert && h.ID != f.board.RobberHex() {
			return h
		}
	}
	t.Fatalf("no producing hex")
	return domain.Hex{}
}

// trail walks n edges from corner start without revisiting a corner.
func (f *fixture) trail(t *testing.T, start, n int) (edges, corners []int) {
	t.Helper()
	corners = []int{start}
	seen := map[int]bool{start: true}
	c := start
	for len(edges) < n {
		moved := false
		for _, e := range f.board.EdgesAtCorner(c) {
			ends := f.board.CornersOfEdge(e)
			next := ends[0]
			if next == c {
				next = ends[1]
			}
			if seen[next] {
				continue
			}
			edges = append(edges, e)
			corners = append(corners, next)
			seen[next] = true
			c = next
			moved = true
			break
		}
		if !moved {
			t.Fatalf("trail from %d stuck after %d edges", start, len(edges))
		}
	}
	return edges, corners
}

func mustSubmit(t *testing.T, m *Match, a Action) Result {
	t.Helper()
	res, err := m.SubmitAction(a)
	if err != nil {
		t.Fatalf("%s by slot %d: %v", a.Kind(), a.Sender(), err)
	}
	return res
}
