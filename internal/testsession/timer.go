package testsession

import (
	"math"
	"time"
)

// Countdown is a deadline-anchored timer. Remaining time is always derived
// from the absolute deadline, so time spent with the program closed is
// accounted for on the next load.
type Countdown struct {
	deadline time.Time
	stopped  bool
	frozen   int
}

// Start anchors the deadline remaining seconds after now.
func (c *Countdown) Start(now time.Time, remaining int) {
	if remaining < 0 {
		remaining = 0
	}
	c.deadline = now.Add(time.Duration(remaining) * time.Second)
	c.stopped = false
}

// Resume anchors the countdown on a previously persisted deadline.
func (c *Countdown) Resume(deadline time.Time) {
	c.deadline = deadline
	c.stopped = false
}

// Anchored reports whether a deadline has been set.
func (c *Countdown) Anchored() bool {
	return !c.deadline.IsZero()
}

// Deadline returns the absolute deadline, zero if not anchored.
func (c *Countdown) Deadline() time.Time {
	return c.deadline
}

// Remaining returns whole seconds left at now, rounded up and never negative.
// A stopped countdown reports the value it was stopped at.
func (c *Countdown) Remaining(now time.Time) int {
	if c.stopped {
		return c.frozen
	}
	if !c.Anchored() {
		return 0
	}
	return secondsUntil(c.deadline, now)
}

// Expired reports whether the deadline has passed at now.
func (c *Countdown) Expired(now time.Time) bool {
	return c.Anchored() && c.Remaining(now) <= 0
}

// Stop freezes the countdown at its current value.
func (c *Countdown) Stop(now time.Time) {
	if c.stopped {
		return
	}
	c.frozen = c.Remaining(now)
	c.stopped = true
}

// Restart undoes Stop. The deadline is unchanged, so time that passed while
// stopped still counts.
func (c *Countdown) Restart() {
	c.stopped = false
}

// Stopped reports whether Stop was called without a later Restart.
func (c *Countdown) Stopped() bool {
	return c.stopped
}

// restoreDeadline picks the deadline for a reloaded attempt. Whichever of
// the persisted deadline and the persisted remaining-seconds counter leaves
// less time wins, so a reload never grants extra time.
func restoreDeadline(now time.Time, deadline time.Time, remaining int, hasRemaining bool) time.Time {
	if !hasRemaining {
		return deadline
	}
	if remaining < 0 {
		remaining = 0
	}
	byCounter := now.Add(time.Duration(remaining) * time.Second)
	if deadline.IsZero() || byCounter.Before(deadline) {
		return byCounter
	}
	return deadline
}

func secondsUntil(deadline, now time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
