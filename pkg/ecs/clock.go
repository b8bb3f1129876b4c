package ecs

import "time"

// Clock tracks frame timing. The first tick establishes the baseline and reports a zero delta.
type Clock struct {
	now     func() time.Time
	last    time.Time
	delta   time.Duration
	elapsed time.Duration
	frame   uint64
}

func newClock(now func() time.Time) Clock {
	return Clock{now: now}
}

// tick advances the clock to the current time and returns the start of the frame.
func (c *Clock) tick() time.Time {
	t := c.now()
	if c.frame == 0 {
		c.delta = 0
	} else {
		c.delta = t.Sub(c.last)
	}
	c.last = t
	c.elapsed += c.delta
	c.frame++
	return t
}

// Delta returns the time between the last two frames.
func (c *Clock) Delta() time.Duration { return c.delta }

// DeltaSeconds returns Delta in seconds, the unit per-frame integration usually wants.
func (c *Clock) DeltaSeconds() float64 { return c.delta.Seconds() }

// Elapsed returns the time since the first frame.
func (c *Clock) Elapsed() time.Duration { return c.elapsed }

// Frame returns the number of frames started so far.
func (c *Clock) Frame() uint64 { return c.frame }
