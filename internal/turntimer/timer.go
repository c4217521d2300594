// Package turntimer provides a restartable one-shot countdown.
package turntimer

import (
	"sync"
	"time"
)

// Stopper cancels a scheduled callback. Stop reports whether the callback
// was prevented from running.
type Stopper interface {
	Stop() bool
}

// Scheduler arranges for f to run once after d, on its own clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
	Now() time.Time
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

func (wallClock) Now() time.Time { return time.Now() }

// WallClock schedules callbacks on real time.
var WallClock Scheduler = wallClock{}

// Token identifies one scheduling of the timer. A callback holding a stale
// token must not act.
type Token uint64

// Timer is a cancellable, reschedulable countdown. Each Restart supersedes the
// previous scheduling; after Kill nothing is ever scheduled again.
//
// A callback may already be running when Restart or Kill is called. Callers
// guard against that by checking Current with the token passed to the
// callback while holding their own lock.
type Timer struct {
	mu       sync.Mutex
	sched    Scheduler
	pending  Stopper
	deadline time.Time
	gen      Token
	killed   bool
}

// New returns a timer backed by sched, or by the wall clock when sched is nil.
func New(sched Scheduler) *Timer {
	if sched == nil {
		sched = WallClock
	}
	return &Timer{sched: sched}
}

// Restart cancels any pending firing and schedules fn to run after d. After
// Kill it does nothing and returns the zero token.
func (t *Timer) Restart(d time.Duration, fn func(Token)) Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.killed {
		return 0
	}
	t.cancelLocked()
	t.gen++
	tok := t.gen
	t.deadline = t.sched.Now().Add(d)
	t.pending = t.sched.AfterFunc(d, func() { fn(tok) })
	return tok
}

// Remaining is the time left before the pending firing, or zero when nothing
// is scheduled.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return 0
	}
	if left := t.deadline.Sub(t.sched.Now()); left > 0 {
		return left
	}
	return 0
}

// Stop cancels any pending firing. Later restarts are still honoured.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.gen++
}

// Kill stops the timer and disables all future scheduling. It is idempotent.
func (t *Timer) Kill() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.gen++
	t.killed = true
}

// Current reports whether tok belongs to the latest live scheduling.
func (t *Timer) Current(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.killed && tok != 0 && tok == t.gen
}

// Killed reports whether Kill has been called.
func (t *Timer) Killed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.killed
}

func (t *Timer) cancelLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.deadline = time.Time{}
}
