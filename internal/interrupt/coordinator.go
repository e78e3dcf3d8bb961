// Package interrupt suspends playback when the learner speaks and
// restores it later from the exact paused offset.
package interrupt

import (
	"errors"
	"time"

	"github.com/chalktalk/lesson-controller/internal/dispatch"
	"github.com/chalktalk/lesson-controller/internal/render"
	"github.com/chalktalk/lesson-controller/internal/session"
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region errors

// ErrNoSnapshot reports a resume request with nothing to resume.
var ErrNoSnapshot = errors.New("no interruption snapshot")

// #endregion

// #region suspended

// suspended pairs a snapshot with the block it must resume, since the
// snapshot itself only carries the block ID.
type suspended struct {
	block timeline.TeachingBlock
	snap  session.InterruptionSnapshot
}

// #endregion

// #region coordinator-struct

// Coordinator captures interruption snapshots and replays them. Nested
// interruptions stack: a response block interrupted mid-play suspends
// on top of the original block.
type Coordinator struct {
	stack []suspended
}

// New returns an empty coordinator.
func New() *Coordinator { return &Coordinator{} }

// #endregion

// #region interrupt

// Interrupt pauses a running block and captures a snapshot exactly
// once. The pending block queue is recorded by ID and abandoned, not
// buffered; the interruption response supersedes it. Returns the
// captured snapshot.
func (c *Coordinator) Interrupt(d *dispatch.Dispatcher, pending []timeline.TeachingBlock, reason string, now time.Time) (session.InterruptionSnapshot, error) {
	offset, err := d.Pause(now)
	if err != nil {
		return session.InterruptionSnapshot{}, err
	}

	pendingIDs := make([]string, 0, len(pending))
	for _, b := range pending {
		pendingIDs = append(pendingIDs, b.ID)
	}

	snap := session.InterruptionSnapshot{
		PausedPosition: session.PlaybackPosition{
			BlockID:         d.BlockID(),
			OffsetMs:        offset,
			WallClockAnchor: now.Add(-time.Duration(offset) * time.Millisecond),
		},
		PendingBlockIDs: pendingIDs,
		Reason:          reason,
		CapturedAt:      now,
	}
	c.stack = append(c.stack, suspended{block: d.Block(), snap: snap})
	return snap, nil
}

// #endregion

// #region resume

// Resume consumes the most recent snapshot: the original block's clock
// is rebuilt Paused at the saved offset, sought there, and resumed.
// Events before the saved offset are never re-dispatched.
func (c *Coordinator) Resume(sink render.Sink, now time.Time) (*dispatch.Dispatcher, error) {
	if len(c.stack) == 0 {
		return nil, ErrNoSnapshot
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]

	d, err := dispatch.Restore(top.block, sink, top.snap.PausedPosition.OffsetMs)
	if err != nil {
		return nil, err
	}
	if err := d.Clock().Seek(top.snap.PausedPosition.OffsetMs); err != nil {
		return nil, err
	}
	if err := d.Resume(now); err != nil {
		return nil, err
	}
	return d, nil
}

// #endregion

// #region accessors

// Active reports whether any snapshot is outstanding.
func (c *Coordinator) Active() bool { return len(c.stack) > 0 }

// Last returns the most recent snapshot for mirroring into the session
// context, or nil when none is outstanding.
func (c *Coordinator) Last() *session.InterruptionSnapshot {
	if len(c.stack) == 0 {
		return nil
	}
	snap := c.stack[len(c.stack)-1].snap
	return &snap
}

// Abandon discards all outstanding snapshots with no resumption, the
// end-of-session path.
func (c *Coordinator) Abandon() {
	c.stack = nil
}

// #endregion
