package examflow

import (
	"sync"
	"time"
)

// Countdown is a cancellable once-per-interval countdown. At most one countdown
// is active per instance: Start cancels the previous one first.
type Countdown struct {
	clock    Clock
	interval time.Duration

	mu        sync.Mutex
	gen       uint64
	timer     Timer
	remaining int
	active    bool
}

// NewCountdown creates a Countdown ticking once per interval (one second when
// interval is zero).
func NewCountdown(clock Clock, interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{clock: clock, interval: interval}
}

// Start cancels any running countdown and counts down from seconds. onTick
// receives the remaining value after every decrement; onDone runs exactly once
// when it reaches zero, unless the countdown is cancelled first.
func (c *Countdown) Start(seconds int, onTick func(remaining int), onDone func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	c.remaining = seconds
	c.active = true

	gen := c.gen
	if seconds <= 0 {
		c.timer = c.clock.AfterFunc(0, func() { c.tick(gen, onTick, onDone) })
		return
	}
	c.timer = c.clock.AfterFunc(c.interval, func() { c.tick(gen, onTick, onDone) })
}

func (c *Countdown) tick(gen uint64, onTick func(int), onDone func()) {
	c.mu.Lock()
	if gen != c.gen || !c.active {
		c.mu.Unlock()
		return
	}

	if c.remaining > 0 {
		c.remaining--
	}
	remaining := c.remaining
	if remaining == 0 {
		c.active = false
		c.timer = nil
	} else {
		c.timer = c.clock.AfterFunc(c.interval, func() { c.tick(gen, onTick, onDone) })
	}
	c.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if remaining == 0 && onDone != nil {
		onDone()
	}
}

// Cancel stops the running countdown without calling its onDone.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.active = false
	c.gen++
}

// Remaining returns the seconds left on the running countdown.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Active reports whether a countdown is running.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
