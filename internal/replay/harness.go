// Package replay drives the full controller deterministically on a
// virtual clock, entirely in-memory, so recorded sessions and scripted
// scenarios can be re-run and compared.
package replay

import (
	"fmt"
	"time"

	"github.com/chalktalk/lesson-controller/internal/content"
	"github.com/chalktalk/lesson-controller/internal/lesson"
	"github.com/chalktalk/lesson-controller/internal/listener"
	"github.com/chalktalk/lesson-controller/internal/loop"
	"github.com/chalktalk/lesson-controller/internal/render"
	"github.com/chalktalk/lesson-controller/internal/session"
)

// #region result-types

// StepResult captures the session state right after one scripted event.
type StepResult struct {
	EventIndex int
	EventKind  string
	AtMs       uint64
	Phase      session.Phase
	TopicIndex int
}

// Summary aggregates one replay run.
type Summary struct {
	Steps           []StepResult
	FinalPhase      session.Phase
	FinalTopicIndex int
	CompletedTopics int
	Commands        []render.Command
	Lifecycles      []render.Lifecycle
}

// #endregion result-types

// #region replay

// epoch anchors virtual time; its value never matters, only deltas.
var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Replay runs a fixture's script against a fresh controller with the
// canned content source and an in-memory render sink. The loop is
// stepped at the fixture tick; scripted events are delivered in order
// at their virtual times, before the tick that reaches them.
func Replay(f *Fixture) (*Summary, error) {
	src := content.NewCannedSource()
	src.WordGapMs = f.Config.WordGapMs
	rec := &render.Recorder{}

	cfg := loop.DefaultConfig()
	cfg.Lesson.GraceWindowMs = f.Config.GraceWindowMs

	sctx := session.NewContext(f.Session.SessionID, f.Session.Syllabus)
	ctrl := loop.New(cfg, src, rec, nil, sctx)

	vnow := epoch
	ctrl.SetNow(func() time.Time { return vnow })

	if err := ctrl.Begin(); err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}

	var steps []StepResult
	next := 0
	endMs := f.RunUntilMs
	for _, ev := range f.Script {
		if ev.AtMs > endMs {
			endMs = ev.AtMs
		}
	}
	endMs += f.Config.GraceWindowMs * 2

	for ms := uint64(0); ms <= endMs && !ctrl.Done(); ms += f.Config.TickMs {
		vnow = epoch.Add(time.Duration(ms) * time.Millisecond)

		for next < len(f.Script) && f.Script[next].AtMs <= ms {
			ev := f.Script[next]
			msg, err := toMsg(ev, vnow)
			if err != nil {
				return nil, err
			}
			if err := ctrl.Process(msg); err != nil {
				return nil, fmt.Errorf("event %d (%s): %w", next, ev.Kind, err)
			}
			after := ctrl.Context()
			steps = append(steps, StepResult{
				EventIndex: next,
				EventKind:  ev.Kind,
				AtMs:       ev.AtMs,
				Phase:      after.CurrentPhase,
				TopicIndex: after.CurrentTopicIndex,
			})
			next++
		}

		if err := ctrl.Step(); err != nil {
			return nil, fmt.Errorf("step at %dms: %w", ms, err)
		}
	}

	final := ctrl.Context()
	return &Summary{
		Steps:           steps,
		FinalPhase:      final.CurrentPhase,
		FinalTopicIndex: final.CurrentTopicIndex,
		CompletedTopics: len(final.CompletedTopics),
		Commands:        rec.Commands,
		Lifecycles:      rec.Lifecycles,
	}, nil
}

// toMsg converts a scripted event into a loop message.
func toMsg(ev FixtureEvent, at time.Time) (loop.Msg, error) {
	switch ev.Kind {
	case "speech_started":
		return loop.MsgSpeech{Event: listener.SpeechEvent{Type: listener.SpeechStarted, AtWallClock: at}}, nil
	case "speech_ended":
		return loop.MsgSpeech{Event: listener.SpeechEvent{Type: listener.SpeechEnded, AtWallClock: at, Utterance: ev.Utterance}}, nil
	case "submit":
		return loop.MsgSubmission{Result: lesson.SubmissionResult{Passed: ev.Passed, Indeterminate: ev.Indeterminate}}, nil
	case "resume_lesson":
		return loop.MsgResumeLesson{}, nil
	case "end_session":
		return loop.MsgEndSession{}, nil
	default:
		return nil, fmt.Errorf("unknown scripted event kind %q", ev.Kind)
	}
}

// #endregion replay

// #region compare

// Mismatch is one divergence between expected and observed state.
type Mismatch struct {
	EventIndex int
	Field      string
	Expected   string
	Observed   string
}

// Compare checks a run's step results against the fixture expectations.
func Compare(f *Fixture, sum *Summary) []Mismatch {
	byIndex := make(map[int]StepResult, len(sum.Steps))
	for _, s := range sum.Steps {
		byIndex[s.EventIndex] = s
	}

	var out []Mismatch
	for _, exp := range f.Expected {
		got, ok := byIndex[exp.EventIndex]
		if !ok {
			out = append(out, Mismatch{
				EventIndex: exp.EventIndex,
				Field:      "event",
				Expected:   "processed",
				Observed:   "not reached",
			})
			continue
		}
		if string(got.Phase) != exp.Phase {
			out = append(out, Mismatch{
				EventIndex: exp.EventIndex,
				Field:      "phase",
				Expected:   exp.Phase,
				Observed:   string(got.Phase),
			})
		}
		if got.TopicIndex != exp.TopicIndex {
			out = append(out, Mismatch{
				EventIndex: exp.EventIndex,
				Field:      "topic_index",
				Expected:   fmt.Sprintf("%d", exp.TopicIndex),
				Observed:   fmt.Sprintf("%d", got.TopicIndex),
			})
		}
	}
	return out
}

// #endregion compare
