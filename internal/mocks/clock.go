package mocks

import (
	"sync"
	"time"

	"github.com/benmeehan/hospital-finder/internal/utils"
)

// ManualClock is a utils.Clock whose timers fire only when the test says so,
// or at once on their own goroutine when created with NewAutoClock.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	auto    bool
	delays  []time.Duration
	pending []*manualTimer
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// NewAutoClock returns a clock that fires every timer immediately while still
// recording the requested delay.
func NewAutoClock(start time.Time) *ManualClock {
	return &ManualClock{now: start, auto: true}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) utils.Timer {
	t := &manualTimer{f: f}

	c.mu.Lock()
	c.delays = append(c.delays, d)
	if !c.auto {
		c.pending = append(c.pending, t)
	}
	c.mu.Unlock()

	if c.auto {
		go t.fire()
	}
	return t
}

// Fire advances the clock by d and runs every pending timer that has not
// been stopped. It returns how many callbacks ran.
func (c *ManualClock) Fire(d time.Duration) int {
	c.mu.Lock()
	c.now = c.now.Add(d)
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	ran := 0
	for _, t := range pending {
		if t.fire() {
			ran++
		}
	}
	return ran
}

// Pending returns the number of scheduled, not yet fired timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// Delays returns every delay passed to AfterFunc, in order.
func (c *ManualClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

type manualTimer struct {
	mu      sync.Mutex
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *manualTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *manualTimer) fire() bool {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	t.mu.Unlock()

	t.f()
	return true
}
