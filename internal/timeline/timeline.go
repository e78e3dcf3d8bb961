package timeline

import (
	"errors"
	"fmt"
	"sort"
)

// #region errors

// ErrMalformedTimeline is the sentinel for timeline construction failures.
var ErrMalformedTimeline = errors.New("malformed timeline")

// MalformedTimelineError reports why a block's timeline was rejected.
// The block is fatal and the caller should request a replacement.
type MalformedTimelineError struct {
	BlockID string
	Reason  string
}

func (e *MalformedTimelineError) Error() string {
	return fmt.Sprintf("block %s: %s: %v", e.BlockID, e.Reason, ErrMalformedTimeline)
}

func (e *MalformedTimelineError) Unwrap() error { return ErrMalformedTimeline }

// #endregion

// #region event

// Event is one entry in a block's merged timeline: either a speech mark
// or a visual event, never both.
type Event struct {
	OffsetMs uint64
	Mark     *SpeechMark
	Visual   *VisualEvent
}

// #endregion

// #region timeline-struct

// Timeline is the immutable, queryable form of a block's timed events.
// Speech marks and visual events are merged into a single offset-ordered
// sequence; marks sort before visuals at equal offsets.
type Timeline struct {
	block  TeachingBlock
	events []Event
}

// #endregion

// #region constructor

// New validates a block's marks and events and builds its timeline.
// Unsorted sequences or offsets past TotalDurationMs fail with a
// *MalformedTimelineError.
func New(block TeachingBlock) (*Timeline, error) {
	for i, m := range block.SpeechMarks {
		if m.OffsetMs > block.TotalDurationMs {
			return nil, &MalformedTimelineError{
				BlockID: block.ID,
				Reason:  fmt.Sprintf("speech mark %d at %dms exceeds duration %dms", i, m.OffsetMs, block.TotalDurationMs),
			}
		}
		if i > 0 && m.OffsetMs < block.SpeechMarks[i-1].OffsetMs {
			return nil, &MalformedTimelineError{
				BlockID: block.ID,
				Reason:  fmt.Sprintf("speech marks unsorted at index %d", i),
			}
		}
	}
	for i, v := range block.VisualEvents {
		if v.OffsetMs > block.TotalDurationMs {
			return nil, &MalformedTimelineError{
				BlockID: block.ID,
				Reason:  fmt.Sprintf("visual event %d at %dms exceeds duration %dms", i, v.OffsetMs, block.TotalDurationMs),
			}
		}
		if i > 0 && v.OffsetMs < block.VisualEvents[i-1].OffsetMs {
			return nil, &MalformedTimelineError{
				BlockID: block.ID,
				Reason:  fmt.Sprintf("visual events unsorted at index %d", i),
			}
		}
		if v.Payload == nil {
			return nil, &MalformedTimelineError{
				BlockID: block.ID,
				Reason:  fmt.Sprintf("visual event %d has no payload", i),
			}
		}
	}

	events := make([]Event, 0, len(block.SpeechMarks)+len(block.VisualEvents))
	mi, vi := 0, 0
	for mi < len(block.SpeechMarks) || vi < len(block.VisualEvents) {
		takeMark := vi >= len(block.VisualEvents) ||
			(mi < len(block.SpeechMarks) && block.SpeechMarks[mi].OffsetMs <= block.VisualEvents[vi].OffsetMs)
		if takeMark {
			m := block.SpeechMarks[mi]
			events = append(events, Event{OffsetMs: m.OffsetMs, Mark: &m})
			mi++
		} else {
			v := block.VisualEvents[vi]
			events = append(events, Event{OffsetMs: v.OffsetMs, Visual: &v})
			vi++
		}
	}

	return &Timeline{block: block, events: events}, nil
}

// #endregion

// #region accessors

// Block returns the source block.
func (t *Timeline) Block() TeachingBlock { return t.block }

// DurationMs returns the block's total duration.
func (t *Timeline) DurationMs() uint64 { return t.block.TotalDurationMs }

// Len returns the number of merged events.
func (t *Timeline) Len() int { return len(t.events) }

// #endregion

// #region events-due-between

// EventsDueBetween returns events with OffsetMs in the half-open window
// [fromMs, toMs), in timeline order. Pure query; at-most-once delivery
// across a run is the Cursor's job.
func (t *Timeline) EventsDueBetween(fromMs, toMs uint64) []Event {
	lo := sort.Search(len(t.events), func(i int) bool { return t.events[i].OffsetMs >= fromMs })
	hi := sort.Search(len(t.events), func(i int) bool { return t.events[i].OffsetMs >= toMs })
	if lo >= hi {
		return nil
	}
	out := make([]Event, hi-lo)
	copy(out, t.events[lo:hi])
	return out
}

// #endregion

// #region cursor

// Cursor consumes a timeline once, in order. Given contiguous windows it
// delivers every event exactly once; overlapping windows never cause a
// re-delivery because consumption only moves forward.
type Cursor struct {
	tl   *Timeline
	next int
}

// NewCursor starts consumption at offset 0.
func (t *Timeline) NewCursor() *Cursor { return &Cursor{tl: t} }

// NewCursorAt starts consumption at the given offset: events strictly
// before startMs are treated as already delivered. Used when resuming a
// block from an interruption snapshot.
func (t *Timeline) NewCursorAt(startMs uint64) *Cursor {
	next := sort.Search(len(t.events), func(i int) bool { return t.events[i].OffsetMs >= startMs })
	return &Cursor{tl: t, next: next}
}

// Collect returns the not-yet-delivered events with OffsetMs < toMs and
// marks them delivered. Successive calls with non-decreasing toMs form
// contiguous half-open windows; a coarse poll delivers late, never skips.
func (c *Cursor) Collect(toMs uint64) []Event {
	var out []Event
	for c.next < len(c.tl.events) && c.tl.events[c.next].OffsetMs < toMs {
		out = append(out, c.tl.events[c.next])
		c.next++
	}
	return out
}

// Remaining reports how many events have not been delivered yet.
func (c *Cursor) Remaining() int { return len(c.tl.events) - c.next }

// #endregion
