package turntimer

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by explicit calls to Advance. It runs
// callbacks on the goroutine calling Advance, which suits single-threaded
// hosts that poll on a tick and deterministic tests.
type Manual struct {
	mu   sync.Mutex
	now  time.Time
	seq  int
	jobs []*manualJob
}

type manualJob struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	m       *Manual
}

// NewManual returns a scheduler whose clock starts at now.
func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Stopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	j := &manualJob{at: m.now.Add(d), seq: m.seq, fn: f, m: m}
	m.jobs = append(m.jobs, j)
	return j
}

// Now returns the scheduler's clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (j *manualJob) Stop() bool {
	j.m.mu.Lock()
	defer j.m.mu.Unlock()
	if j.stopped {
		return false
	}
	j.stopped = true
	return true
}

// Advance moves the clock to now and runs every callback that has come due,
// earliest first. It returns the number of callbacks run.
func (m *Manual) Advance(now time.Time) int {
	m.mu.Lock()
	if now.After(m.now) {
		m.now = now
	}
	var due []*manualJob
	keep := m.jobs[:0]
	for _, j := range m.jobs {
		switch {
		case j.stopped:
		case !j.at.After(m.now):
			j.stopped = true
			due = append(due, j)
		default:
			keep = append(keep, j)
		}
	}
	m.jobs = keep
	m.mu.Unlock()

	sort.Slice(due, func(a, b int) bool {
		if due[a].at.Equal(due[b].at) {
			return due[a].seq < due[b].seq
		}
		return due[a].at.Before(due[b].at)
	})
	for _, j := range due {
		j.fn()
	}
	return len(due)
}

// Elapse advances the clock by d.
func (m *Manual) Elapse(d time.Duration) int {
	m.mu.Lock()
	now := m.now.Add(d)
	m.mu.Unlock()
	return m.Advance(now)
}

// Pending reports how many callbacks are still scheduled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if !j.stopped {
			n++
		}
	}
	return n
}
