// Package dispatch pumps a block's timeline: each poll it advances the
// clock window and forwards the newly due events to the render sink.
package dispatch

import (
	"fmt"
	"time"

	"github.com/chalktalk/lesson-controller/internal/clock"
	"github.com/chalktalk/lesson-controller/internal/render"
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region dispatcher-struct

// Dispatcher runs one block through its timeline. Windows passed to the
// cursor are contiguous and non-overlapping, so every event is delivered
// exactly once per run even under coarse polling.
type Dispatcher struct {
	tl         *timeline.Timeline
	cursor     *timeline.Cursor
	clk        *clock.Clock
	sink       render.Sink
	lastOffset uint64
	done       bool
}

// #endregion

// #region constructors

// Start builds a dispatcher for the block and begins playback at now,
// emitting BlockStarted.
func Start(block timeline.TeachingBlock, sink render.Sink, now time.Time) (*Dispatcher, error) {
	tl, err := timeline.New(block)
	if err != nil {
		return nil, err
	}
	clk := clock.New(block.TotalDurationMs)
	if err := clk.Start(now); err != nil {
		return nil, err
	}
	d := &Dispatcher{tl: tl, cursor: tl.NewCursor(), clk: clk, sink: sink}
	if err := sink.Notify(render.Lifecycle{Kind: render.BlockStarted, BlockID: block.ID}); err != nil {
		return nil, fmt.Errorf("notify started: %w", err)
	}
	return d, nil
}

// Restore builds a dispatcher for a block resuming at offsetMs: the
// clock comes up Paused at the saved offset and events before it are
// treated as already delivered. The caller resumes when ready.
func Restore(block timeline.TeachingBlock, sink render.Sink, offsetMs uint64) (*Dispatcher, error) {
	tl, err := timeline.New(block)
	if err != nil {
		return nil, err
	}
	clk := clock.RestorePaused(block.TotalDurationMs, offsetMs)
	return &Dispatcher{
		tl:         tl,
		cursor:     tl.NewCursorAt(offsetMs),
		clk:        clk,
		sink:       sink,
		lastOffset: offsetMs,
	}, nil
}

// #endregion

// #region accessors

// BlockID returns the block this dispatcher is running.
func (d *Dispatcher) BlockID() string { return d.tl.Block().ID }

// Block returns the block this dispatcher is running.
func (d *Dispatcher) Block() timeline.TeachingBlock { return d.tl.Block() }

// Clock exposes the underlying playback clock.
func (d *Dispatcher) Clock() *clock.Clock { return d.clk }

// Done reports whether the block fully played.
func (d *Dispatcher) Done() bool { return d.done }

// OffsetAt reports the playback offset at the given wall time.
func (d *Dispatcher) OffsetAt(now time.Time) uint64 { return d.clk.OffsetAt(now) }

// #endregion

// #region poll

// Poll advances the dispatch window to the clock's offset at now and
// forwards every newly due event. Returns true once the block has fully
// played; the first such poll completes the clock and emits
// BlockCompleted.
func (d *Dispatcher) Poll(now time.Time) (bool, error) {
	if d.done {
		return true, nil
	}
	if d.clk.State() != clock.StateRunning {
		return false, nil
	}

	offset := d.clk.OffsetAt(now)
	if offset > d.lastOffset {
		// Half-open window [lastOffset, offset); the next window starts
		// exactly where this one ended.
		for _, ev := range d.cursor.Collect(offset) {
			if err := d.forward(ev); err != nil {
				return false, err
			}
		}
		d.lastOffset = offset
	}

	if offset >= d.tl.DurationMs() {
		// Events at the terminal offset sit outside any half-open
		// window; flush them before completing.
		for _, ev := range d.cursor.Collect(d.tl.DurationMs() + 1) {
			if err := d.forward(ev); err != nil {
				return false, err
			}
		}
		if err := d.clk.Complete(now); err != nil {
			return false, err
		}
		d.done = true
		if err := d.sink.Notify(render.Lifecycle{
			Kind:     render.BlockCompleted,
			BlockID:  d.BlockID(),
			OffsetMs: d.tl.DurationMs(),
		}); err != nil {
			return false, fmt.Errorf("notify completed: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// #endregion

// #region pause-resume

// Pause freezes the clock and notifies the renderer. A pause can land
// between polls, so the window the ticker had not reached yet is
// flushed first; otherwise events in [lastOffset, off) would be lost
// when a later Restore positions the cursor at the paused offset.
func (d *Dispatcher) Pause(now time.Time) (uint64, error) {
	if err := d.clk.Pause(now); err != nil {
		return 0, err
	}
	off := d.clk.OffsetAt(now)
	if off > d.lastOffset {
		for _, ev := range d.cursor.Collect(off) {
			if err := d.forward(ev); err != nil {
				return 0, err
			}
		}
		d.lastOffset = off
	}
	if err := d.sink.Notify(render.Lifecycle{Kind: render.BlockPaused, BlockID: d.BlockID(), OffsetMs: off}); err != nil {
		return 0, fmt.Errorf("notify paused: %w", err)
	}
	return off, nil
}

// Resume re-anchors the clock and notifies the renderer.
func (d *Dispatcher) Resume(now time.Time) error {
	if err := d.clk.Resume(now); err != nil {
		return err
	}
	off := d.clk.OffsetAt(now)
	if err := d.sink.Notify(render.Lifecycle{Kind: render.BlockResumed, BlockID: d.BlockID(), OffsetMs: off}); err != nil {
		return fmt.Errorf("notify resumed: %w", err)
	}
	return nil
}

// #endregion

// #region forward

// forward converts one timeline event into a render command.
func (d *Dispatcher) forward(ev timeline.Event) error {
	cmd := render.Command{BlockID: d.BlockID(), OffsetMs: ev.OffsetMs}
	switch {
	case ev.Mark != nil:
		cmd.Mark = ev.Mark
	case ev.Visual != nil:
		cmd.Surface = ev.Visual.Surface
		cmd.Payload = ev.Visual.Payload
		cmd.PayloadKind = ev.Visual.Payload.PayloadKind()
	}
	if err := d.sink.Dispatch(cmd); err != nil {
		return fmt.Errorf("dispatch %s@%dms: %w", d.BlockID(), ev.OffsetMs, err)
	}
	return nil
}

// #endregion
