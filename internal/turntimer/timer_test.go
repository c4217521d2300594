package turntimer

import (
	"testing"
	"time"
)

func TestRestartSupersedesPending(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))
	tm := New(clock)

	var fired []Token
	first := tm.Restart(10*time.Second, func(tok Token) { fired = append(fired, tok) })
	second := tm.Restart(10*time.Second, func(tok Token) { fired = append(fired, tok) })

	if tm.Current(first) {
		t.Fatalf("first token still current after restart")
	}
	clock.Elapse(10 * time.Second)
	if len(fired) != 1 || fired[0] != second {
		t.Fatalf("fired = %v, want [%d]", fired, second)
	}
}

func TestStopAllowsRestart(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))
	tm := New(clock)

	calls := 0
	tok := tm.Restart(time.Second, func(Token) { calls++ })
	tm.Stop()
	if tm.Current(tok) {
		t.Fatalf("token current after Stop")
	}
	clock.Elapse(time.Second)
	if calls != 0 {
		t.Fatalf("calls = %d after Stop, want 0", calls)
	}

	tok = tm.Restart(time.Second, func(Token) { calls++ })
	clock.Elapse(time.Second)
	if calls != 1 || !tm.Current(tok) {
		t.Fatalf("calls = %d current = %v, want 1 true", calls, tm.Current(tok))
	}
}

func TestKillIsPermanent(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))
	tm := New(clock)

	var seen Token
	tm.Restart(time.Second, func(tok Token) { seen = tok })
	tm.Kill()
	tm.Kill()

	if tok := tm.Restart(time.Second, func(Token) { t.Fatalf("callback after Kill") }); tok != 0 {
		t.Fatalf("Restart after Kill = %d, want 0", tok)
	}
	clock.Elapse(2 * time.Second)
	if seen != 0 {
		t.Fatalf("callback ran after Kill")
	}
	if !tm.Killed() || clock.Pending() != 0 {
		t.Fatalf("killed = %v pending = %d", tm.Killed(), clock.Pending())
	}
}

func TestFiredCallbackSeesStaleTokenAfterKill(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))
	tm := New(clock)

	var current bool
	tm.Restart(time.Second, func(tok Token) {
		// The match ends between the firing and the callback taking its lock.
		tm.Kill()
		current = tm.Current(tok)
	})
	clock.Elapse(time.Second)
	if current {
		t.Fatalf("token still current inside a callback racing Kill")
	}
}

func TestWallClockFires(t *testing.T) {
	tm := New(nil)
	done := make(chan Token, 1)
	want := tm.Restart(5*time.Millisecond, func(tok Token) { done <- tok })
	select {
	case got := <-done:
		if got != want {
			t.Fatalf("token = %d, want %d", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("wall clock timer never fired")
	}
}

func TestRemaining(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))
	tm := New(clock)
	if got := tm.Remaining(); got != 0 {
		t.Fatalf("idle remaining = %v, want 0", got)
	}

	tm.Restart(10*time.Second, func(Token) {})
	clock.Elapse(4 * time.Second)
	if got := tm.Remaining(); got != 6*time.Second {
		t.Fatalf("remaining = %v, want 6s", got)
	}
	clock.Elapse(6 * time.Second)
	if got := tm.Remaining(); got != 0 {
		t.Fatalf("remaining after firing = %v, want 0", got)
	}

	tm.Restart(time.Second, func(Token) {})
	tm.Stop()
	if got := tm.Remaining(); got != 0 {
		t.Fatalf("remaining after Stop = %v, want 0", got)
	}
}
