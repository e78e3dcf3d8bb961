package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/chalktalk/lesson-controller/internal/lesson"
	"github.com/chalktalk/lesson-controller/internal/session"
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region canned-source

// CannedSource fabricates deterministic blocks in-process. It stands in
// for the planning service in cmd/controller demos and in tests.
type CannedSource struct {
	// WordGapMs is the spacing between generated word marks.
	WordGapMs uint64
	seq       int
}

// NewCannedSource returns a source with 400 ms word spacing.
func NewCannedSource() *CannedSource {
	return &CannedSource{WordGapMs: 400}
}

// #endregion

// #region source-impl

// NextBlock fabricates a block for the requested kind and current topic.
func (s *CannedSource) NextBlock(_ context.Context, sctx session.Context, kind timeline.BlockKind) (timeline.TeachingBlock, error) {
	topicTitle := "the syllabus"
	if t, ok := sctx.CurrentTopic(); ok {
		topicTitle = t.Title
	}

	switch kind {
	case timeline.KindSyllabus:
		narration := "Here is what we will cover today"
		b := s.block(kind, narration, timeline.ModeLocked, true)
		for i, t := range sctx.Syllabus {
			off := uint64(i) * s.WordGapMs * 2
			if off > b.TotalDurationMs {
				off = b.TotalDurationMs
			}
			b.VisualEvents = append(b.VisualEvents, timeline.VisualEvent{
				OffsetMs: off,
				Surface:  timeline.SurfaceWhiteboard,
				Payload:  timeline.SyllabusReveal{ItemIndex: i, Title: t.Title},
			})
		}
		return b, nil
	case timeline.KindTheory:
		narration := fmt.Sprintf("Let us look at the idea behind %s step by step", topicTitle)
		b := s.block(kind, narration, timeline.ModeLocked, true)
		b.VisualEvents = append(b.VisualEvents, timeline.VisualEvent{
			OffsetMs: s.WordGapMs,
			Surface:  timeline.SurfaceWhiteboard,
			Payload:  timeline.StrokePath{PathData: "M0 0 L40 12", Width: 2},
		})
		return b, nil
	case timeline.KindDemo:
		narration := fmt.Sprintf("Watch how %s works in practice", topicTitle)
		b := s.block(kind, narration, timeline.ModeLocked, true)
		for i, tok := range []string{"func", " main", "()", " {"} {
			b.VisualEvents = append(b.VisualEvents, timeline.VisualEvent{
				OffsetMs: uint64(i+1) * s.WordGapMs,
				Surface:  timeline.SurfaceEditor,
				Payload:  timeline.CodeToken{Text: tok, Line: 1, Col: i * 5},
			})
		}
		return b, nil
	case timeline.KindTask:
		narration := fmt.Sprintf("Now try %s yourself and submit when ready", topicTitle)
		return s.block(kind, narration, timeline.ModeEditableAwaitingSubmission, false), nil
	default:
		return timeline.TeachingBlock{}, fmt.Errorf("canned source: unknown kind %q", kind)
	}
}

// InterruptionResponse fabricates a short reply block.
func (s *CannedSource) InterruptionResponse(_ context.Context, _ session.Context, utterance string) (timeline.TeachingBlock, error) {
	narration := "Good question let me address that"
	if utterance != "" {
		narration = fmt.Sprintf("You asked about %s let me address that", utterance)
	}
	return s.block(timeline.KindTheory, narration, timeline.ModeLocked, true), nil
}

// RemedialBlock fabricates an explanation for a failed submission.
func (s *CannedSource) RemedialBlock(_ context.Context, _ session.Context, result lesson.SubmissionResult) (timeline.TeachingBlock, error) {
	narration := "Not quite right let us walk through the mistake"
	if result.Indeterminate {
		narration = "Let us go over this once more together"
	}
	return s.block(timeline.KindTheory, narration, timeline.ModeLocked, true), nil
}

// #endregion

// #region block-builder

// block builds a block whose word marks are evenly spaced.
func (s *CannedSource) block(kind timeline.BlockKind, narration string, mode timeline.InteractionMode, auto bool) timeline.TeachingBlock {
	s.seq++
	words := strings.Fields(narration)
	marks := make([]timeline.SpeechMark, 0, len(words)+1)
	for i, w := range words {
		marks = append(marks, timeline.SpeechMark{
			OffsetMs: uint64(i) * s.WordGapMs,
			Kind:     timeline.MarkWord,
			Value:    w,
		})
	}
	dur := uint64(len(words)) * s.WordGapMs
	marks = append(marks, timeline.SpeechMark{OffsetMs: dur, Kind: timeline.MarkSentence, Value: narration})

	return timeline.TeachingBlock{
		ID:              fmt.Sprintf("%s-%d", kind, s.seq),
		Kind:            kind,
		NarrationText:   narration,
		SpeechMarks:     marks,
		TotalDurationMs: dur,
		InteractionMode: mode,
		AutoAdvance:     auto,
	}
}

// #endregion
