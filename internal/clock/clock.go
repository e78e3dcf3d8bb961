// Package clock tracks elapsed playback time for one block run,
// independent of wall-clock drift, with pause/resume/seek support.
package clock

import (
	"fmt"
	"time"
)

// #region state

// State is the playback clock lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// #endregion

// #region errors

// InvalidTransitionError reports an operation called in an incompatible
// clock state. This is an integration error and is never swallowed.
type InvalidTransitionError struct {
	Op   string
	From State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("clock: %s not allowed in state %s", e.Op, e.From)
}

// #endregion

// #region clock-struct

// Clock reports the current offset inside a block as a pure function of
// wall time. While running, offset = frozen + (now - anchor); while
// paused, offset = frozen. The caller supplies now, so polling
// granularity is the caller's choice and tests are deterministic.
type Clock struct {
	state      State
	anchor     time.Time // wall time corresponding to offset == frozenMs
	frozenMs   uint64    // accumulated offset at the last pause/anchor
	durationMs uint64
}

// New returns an idle clock for a block of the given duration.
func New(durationMs uint64) *Clock {
	return &Clock{state: StateIdle, durationMs: durationMs}
}

// #endregion

// #region accessors

// State returns the current lifecycle state.
func (c *Clock) State() State { return c.state }

// DurationMs returns the block duration this clock was built for.
func (c *Clock) DurationMs() uint64 { return c.durationMs }

// #endregion

// #region start

// Start transitions Idle → Running, anchoring offset 0 at now.
func (c *Clock) Start(now time.Time) error {
	if c.state != StateIdle {
		return &InvalidTransitionError{Op: "start", From: c.state}
	}
	c.state = StateRunning
	c.anchor = now
	c.frozenMs = 0
	return nil
}

// #endregion

// #region offset

// OffsetAt reports the playback offset at the given wall time, clamped
// to the block duration. Legal in any state; Idle reports 0 and Paused
// or Completed report the frozen offset.
func (c *Clock) OffsetAt(now time.Time) uint64 {
	var off uint64
	switch c.state {
	case StateRunning:
		elapsed := now.Sub(c.anchor)
		if elapsed < 0 {
			elapsed = 0
		}
		off = c.frozenMs + uint64(elapsed.Milliseconds())
	default:
		off = c.frozenMs
	}
	if off > c.durationMs {
		off = c.durationMs
	}
	return off
}

// #endregion

// #region pause-resume

// Pause transitions Running → Paused, freezing the offset computed at now.
func (c *Clock) Pause(now time.Time) error {
	if c.state != StateRunning {
		return &InvalidTransitionError{Op: "pause", From: c.state}
	}
	c.frozenMs = c.OffsetAt(now)
	c.state = StatePaused
	return nil
}

// Resume transitions Paused → Running, re-anchoring so the reported
// offset continues from the frozen value with zero discontinuity.
func (c *Clock) Resume(now time.Time) error {
	if c.state != StatePaused {
		return &InvalidTransitionError{Op: "resume", From: c.state}
	}
	c.anchor = now
	c.state = StateRunning
	return nil
}

// #endregion

// #region seek

// Seek relocates the frozen offset. Only legal while Paused; used when
// resuming from an interruption snapshot at a non-current position.
func (c *Clock) Seek(offsetMs uint64) error {
	if c.state != StatePaused {
		return &InvalidTransitionError{Op: "seek", From: c.state}
	}
	if offsetMs > c.durationMs {
		offsetMs = c.durationMs
	}
	c.frozenMs = offsetMs
	return nil
}

// #endregion

// #region complete

// Complete transitions Running → Completed once the offset has reached
// the block duration. Completed is terminal for the block.
func (c *Clock) Complete(now time.Time) error {
	if c.state != StateRunning {
		return &InvalidTransitionError{Op: "complete", From: c.state}
	}
	off := c.OffsetAt(now)
	if off < c.durationMs {
		return &InvalidTransitionError{Op: "complete", From: c.state}
	}
	c.frozenMs = c.durationMs
	c.state = StateCompleted
	return nil
}

// #endregion

// #region restore

// RestorePaused builds a clock already in Paused state at the given
// offset, the shape a resumed block starts from after an interruption.
func RestorePaused(durationMs, offsetMs uint64) *Clock {
	if offsetMs > durationMs {
		offsetMs = durationMs
	}
	return &Clock{state: StatePaused, frozenMs: offsetMs, durationMs: durationMs}
}

// #endregion
