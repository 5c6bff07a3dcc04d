package clock

import (
	"sync"
	"time"
)

// Source provides the current time. System reads the wall clock (with its monotonic
// reading); Manual is advanced by hand for tests and headless runs.
type Source interface {
	Now() time.Time
}

// System is the real-time Source.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Manual is a controllable Source.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManual returns a Manual source starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set jumps to t. Jumping backwards is allowed; FrameClock clamps the resulting delta.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the manual time forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// FrameClock produces per-frame elapsed seconds. Call Tick once per frame, then read Delta.
type FrameClock struct {
	src   Source
	start time.Time
	last  time.Time
	curr  time.Time
}

// NewFrameClock returns a clock whose first Tick yields the time since construction.
func NewFrameClock(src Source) *FrameClock {
	if src == nil {
		src = System{}
	}
	now := src.Now()
	return &FrameClock{src: src, start: now, last: now, curr: now}
}

// Tick samples the source and makes the previous sample the frame start.
func (c *FrameClock) Tick() {
	c.last = c.curr
	c.curr = c.src.Now()
}

// Delta is the seconds between the last two Ticks, never negative.
func (c *FrameClock) Delta() float64 {
	d := c.curr.Sub(c.last).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

// Elapsed is the seconds between construction and the latest Tick.
func (c *FrameClock) Elapsed() float64 {
	return c.curr.Sub(c.start).Seconds()
}
