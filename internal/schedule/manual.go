package schedule

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler whose clock only moves when told to. Callbacks run
// synchronously inside Advance and Step, in due order.
type Manual struct {
	run     sync.Mutex
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*manualTimer
}

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTimer struct {
	m       *Manual
	due     time.Time
	seq     int
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.m.remove(t)
	return true
}

// Now returns the manual clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers f to run once the clock reaches now+d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, due: m.now.Add(d), seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].due.Equal(m.pending[j].due) {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].due.Before(m.pending[j].due)
	})
	return t
}

func (m *Manual) remove(t *manualTimer) {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of callbacks waiting to run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Step jumps to the next due callback and runs it. It reports false when nothing is pending.
func (m *Manual) Step() bool {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return false
	}
	t := m.pending[0]
	m.pending = m.pending[1:]
	t.stopped = true
	if t.due.After(m.now) {
		m.now = t.due
	}
	m.mu.Unlock()

	m.run.Lock()
	defer m.run.Unlock()
	t.f()
	return true
}

// Do runs f on the caller's goroutine, never alongside a due callback.
func (m *Manual) Do(f func()) error {
	m.run.Lock()
	defer m.run.Unlock()
	f()
	return nil
}

// Advance moves the clock forward by d, running every callback that falls due,
// including ones scheduled by earlier callbacks.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if len(m.pending) == 0 || m.pending[0].due.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		m.Step()
	}
}

// RunUntilIdle steps until nothing is pending or limit callbacks have run.
// It returns the number of callbacks run.
func (m *Manual) RunUntilIdle(limit int) int {
	n := 0
	for n < limit && m.Step() {
		n++
	}
	return n
}
