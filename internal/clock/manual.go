package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual provides a controllable clock for deterministic tests. Callbacks
// registered with AfterFunc run synchronously inside Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	clock *Manual
	seq   uint64
	at    time.Time
	ch    chan time.Time
	fn    func()
}

// NewManual constructs a Manual clock starting at the supplied time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After returns a channel that fires when the manual clock advances by d.
func (m *Manual) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	m.mu.Lock()
	if d <= 0 {
		now := m.now
		m.mu.Unlock()
		ch <- now
		return ch
	}
	m.schedule(d, ch, nil)
	m.mu.Unlock()
	return ch
}

// AfterFunc runs f once the manual clock has advanced by d. A non-positive d
// still waits for the next Advance, matching a timer that fires "soon".
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedule(d, nil, f)
}

func (m *Manual) schedule(d time.Duration, ch chan time.Time, fn func()) *manualTimer {
	m.seq++
	timer := &manualTimer{clock: m, seq: m.seq, at: m.now.Add(d), ch: ch, fn: fn}
	m.timers = append(m.timers, timer)
	return timer
}

// Advance moves time forward by d and fires any due timers in deadline order.
func (m *Manual) Advance(d time.Duration) time.Time {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now
	var due []*manualTimer
	remaining := m.timers[:0]
	for _, timer := range m.timers {
		if timer.at.After(now) {
			remaining = append(remaining, timer)
			continue
		}
		due = append(due, timer)
	}
	m.timers = remaining
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	// callbacks run unlocked so they may schedule new timers
	for _, timer := range due {
		if timer.fn != nil {
			timer.fn()
			continue
		}
		timer.ch <- now
	}
	return now
}

// Set jumps the clock to t without firing timers, as a device waking from
// sleep would observe.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t.UTC()
	m.mu.Unlock()
}

// Pending returns the number of scheduled timers.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (t *manualTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, timer := range m.timers {
		if timer == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}
