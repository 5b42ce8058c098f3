package debounce

import (
	"sort"
	"sync"
	"time"
)

// ManualClock is a Clock whose time only moves when Advance is called.
// Callbacks run synchronously on the goroutine calling Advance.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock   *ManualClock
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewManualClock 创建一个从start开始的手动时钟
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &manualTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs every timer that became due, in due order.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var due []*manualTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(now):
			t.fired = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	for _, t := range due {
		t.fn()
	}
}

// Pending returns the number of scheduled, unfired, unstopped timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
