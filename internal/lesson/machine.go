// Package lesson drives the Theory → Demo → Practice → Validation
// sequence per syllabus topic. Transitions are pure functions over an
// explicit session context, so the single-writer invariant is checkable
// and every transition is exhaustively switched.
package lesson

import (
	"errors"
	"fmt"

	"github.com/chalktalk/lesson-controller/internal/session"
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region errors

// ErrInvalidEvent reports an event that is not legal in the current
// phase. The caller stays in place; the machine never guesses.
var ErrInvalidEvent = errors.New("invalid lesson event")

// #endregion

// #region result

// Result is one applied transition: the updated context plus the
// effects the control loop must perform. Ctx is a complete value; the
// caller swaps it in atomically so no observer sees a half-update.
type Result struct {
	Ctx     session.Context
	Actions []Action
	// Outcome is set when the event resolved a Validation phase.
	Outcome Outcome
}

// #endregion

// #region apply

// Apply computes the transition for one event. The input context is
// never mutated; on error the returned context equals the input.
func Apply(sctx session.Context, ev Event) (Result, error) {
	switch e := ev.(type) {
	case EventBlockPlayed:
		return applyBlockPlayed(sctx, e)
	case EventGraceElapsed:
		return advance(sctx, e.BlockKind)
	case EventSubmission:
		return applySubmission(sctx, e)
	case EventInterruption:
		return Result{
			Ctx: sctx,
			Actions: []Action{
				ActionCancelGraceTimer{},
				ActionRequestInterruptionResponse{Utterance: e.Utterance},
			},
		}, nil
	case EventSessionEnded:
		out := sctx.Clone()
		out.LastSnapshot = nil
		return Result{Ctx: out, Actions: []Action{ActionCancelGraceTimer{}}}, nil
	default:
		return Result{Ctx: sctx}, fmt.Errorf("%w: unknown event %T", ErrInvalidEvent, ev)
	}
}

// #endregion

// #region block-played

func applyBlockPlayed(sctx session.Context, e EventBlockPlayed) (Result, error) {
	if e.AutoAdvance {
		// Advance happens after the silence window, not now. A speech
		// event inside the window cancels the timer and wins the race.
		return Result{
			Ctx:     sctx,
			Actions: []Action{ActionStartGraceTimer{BlockID: e.BlockID, BlockKind: e.BlockKind}},
		}, nil
	}
	if e.BlockKind == timeline.KindTask {
		// Practice has no fixed duration; the narration ending changes
		// nothing until an explicit submission arrives.
		return Result{Ctx: sctx}, nil
	}
	return advance(sctx, e.BlockKind)
}

// #endregion

// #region advance

// advance performs the phase transition a finished block implies.
func advance(sctx session.Context, kind timeline.BlockKind) (Result, error) {
	out := sctx.Clone()

	switch {
	case kind == timeline.KindSyllabus:
		// Session opener finished; phase is already Theory, fetch the
		// first topic's theory block.
		return Result{Ctx: out, Actions: []Action{ActionRequestBlock{BlockKind: timeline.KindTheory}}}, nil

	case kind == timeline.KindTheory && sctx.CurrentPhase == session.PhaseTheory:
		out.CurrentPhase = session.PhaseDemo
		return Result{Ctx: out, Actions: []Action{ActionRequestBlock{BlockKind: timeline.KindDemo}}}, nil

	case kind == timeline.KindDemo && sctx.CurrentPhase == session.PhaseDemo:
		out.CurrentPhase = session.PhasePractice
		return Result{Ctx: out, Actions: []Action{ActionRequestBlock{BlockKind: timeline.KindTask}}}, nil

	case kind == timeline.KindTheory && sctx.CurrentPhase == session.PhaseValidation:
		// Remedial explanation finished; re-enter Practice on the same
		// topic with a fresh task.
		out.CurrentPhase = session.PhasePractice
		return Result{Ctx: out, Actions: []Action{ActionRequestBlock{BlockKind: timeline.KindTask}}}, nil

	case kind == timeline.KindTask:
		return Result{Ctx: out}, nil

	default:
		return Result{Ctx: sctx}, fmt.Errorf("%w: %s block finished in phase %s", ErrInvalidEvent, kind, sctx.CurrentPhase)
	}
}

// #endregion

// #region submission

func applySubmission(sctx session.Context, e EventSubmission) (Result, error) {
	if sctx.CurrentPhase != session.PhasePractice {
		return Result{Ctx: sctx}, fmt.Errorf("%w: submission in phase %s", ErrInvalidEvent, sctx.CurrentPhase)
	}

	out := sctx.Clone()
	out.CurrentPhase = session.PhaseValidation

	switch {
	case e.Result.Indeterminate:
		// Never a silent Advance: an undecidable result retries with a
		// generic remedial message.
		return Result{
			Ctx:     out,
			Actions: []Action{ActionRequestRemedial{Result: e.Result, Generic: true}},
			Outcome: OutcomeRetry,
		}, nil

	case !e.Result.Passed:
		return Result{
			Ctx:     out,
			Actions: []Action{ActionRequestRemedial{Result: e.Result}},
			Outcome: OutcomeRetry,
		}, nil

	default:
		topic, ok := out.CurrentTopic()
		if ok {
			out.CompletedTopics[topic.ID] = true
		}
		out.CurrentTopicIndex++
		if out.CurrentTopicIndex >= len(out.Syllabus) {
			out.CurrentPhase = session.PhaseCompleted
			return Result{Ctx: out, Actions: []Action{ActionSessionCompleted{}}, Outcome: OutcomeAdvance}, nil
		}
		out.CurrentPhase = session.PhaseTheory
		return Result{
			Ctx:     out,
			Actions: []Action{ActionRequestBlock{BlockKind: timeline.KindTheory}},
			Outcome: OutcomeAdvance,
		}, nil
	}
}

// #endregion
