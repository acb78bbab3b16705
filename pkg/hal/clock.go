package hal

import (
	"sync"
	"time"
)

// SystemClock counts milliseconds since it was created.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a SystemClock starting at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Millis implements Clock.
func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start) / time.Millisecond)
}

// Delay implements Delayer.
func (c *SystemClock) Delay(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// ManualClock is a Clock only moved by Advance, Set or Delay.
// Delay advances the clock instead of sleeping, so a blocking
// pause is observed as elapsed time without wall-clock waiting.
type ManualClock struct {
	now  uint32
	lock sync.Mutex
}

// NewManualClock creates a ManualClock at the given time.
func NewManualClock(now uint32) *ManualClock {
	return &ManualClock{now: now}
}

// Millis implements Clock.
func (c *ManualClock) Millis() uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(ms uint32) uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now += ms
	return c.now
}

// Set moves the clock to an absolute time.
func (c *ManualClock) Set(ms uint32) {
	c.lock.Lock()
	c.now = ms
	c.lock.Unlock()
}

// Delay implements Delayer.
func (c *ManualClock) Delay(ms uint32) {
	c.Advance(ms)
}
