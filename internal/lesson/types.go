package lesson

import (
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region outcome

// Outcome is the result of a Validation phase.
type Outcome string

const (
	OutcomeAdvance Outcome = "advance"
	OutcomeRetry   Outcome = "retry"
)

// #endregion

// #region submission-result

// SubmissionResult is the external validator's judgement of submitted
// work. Indeterminate means the validator could not decide; the machine
// treats that as Retry with a generic remedial, never as Advance.
type SubmissionResult struct {
	Passed        bool   `json:"passed"`
	Indeterminate bool   `json:"indeterminate"`
	Feedback      string `json:"feedback,omitempty"`
}

// #endregion

// #region events

// Event is the closed set of inputs the state machine reacts to.
type Event interface {
	lessonEvent()
	Kind() string
}

// EventBlockPlayed reports that a block's timeline fully elapsed.
type EventBlockPlayed struct {
	BlockID     string
	BlockKind   timeline.BlockKind
	AutoAdvance bool
}

// EventGraceElapsed reports that the silence grace window after an
// auto-advance block passed without an interruption.
type EventGraceElapsed struct {
	BlockID   string
	BlockKind timeline.BlockKind
}

// EventSubmission reports an explicit learner submission with its
// validation result. Only legal in the Practice phase.
type EventSubmission struct {
	Result SubmissionResult
}

// EventInterruption reports that the learner started speaking and the
// playback was suspended.
type EventInterruption struct {
	Utterance string
}

// EventSessionEnded reports an explicit end-session request.
type EventSessionEnded struct{}

func (EventBlockPlayed) lessonEvent()  {}
func (EventGraceElapsed) lessonEvent() {}
func (EventSubmission) lessonEvent()   {}
func (EventInterruption) lessonEvent() {}
func (EventSessionEnded) lessonEvent() {}

func (EventBlockPlayed) Kind() string  { return "block_played" }
func (EventGraceElapsed) Kind() string { return "grace_elapsed" }
func (EventSubmission) Kind() string   { return "submission" }
func (EventInterruption) Kind() string { return "interruption" }
func (EventSessionEnded) Kind() string { return "session_ended" }

// #endregion

// #region actions

// Action is the closed set of effects a transition asks the control
// loop to perform. The machine itself never talks to collaborators.
type Action interface {
	lessonAction()
	Name() string
}

// ActionRequestBlock asks the content source for the next block of the
// given kind in the (already updated) context.
type ActionRequestBlock struct {
	BlockKind timeline.BlockKind
}

// ActionRequestRemedial asks the content source for a remedial block
// explaining the failed submission. Generic is set when the validator
// was indeterminate and no specific mistake is known.
type ActionRequestRemedial struct {
	Result  SubmissionResult
	Generic bool
}

// ActionRequestInterruptionResponse asks the content source for a
// contextual response to the learner's utterance.
type ActionRequestInterruptionResponse struct {
	Utterance string
}

// ActionStartGraceTimer arms the silence window after an auto-advance
// block; ActionCancelGraceTimer disarms a pending one.
type ActionStartGraceTimer struct {
	BlockID   string
	BlockKind timeline.BlockKind
}

// ActionCancelGraceTimer disarms any pending grace timer.
type ActionCancelGraceTimer struct{}

// ActionSessionCompleted reports that the syllabus is exhausted.
type ActionSessionCompleted struct{}

func (ActionRequestBlock) lessonAction()                {}
func (ActionRequestRemedial) lessonAction()             {}
func (ActionRequestInterruptionResponse) lessonAction() {}
func (ActionStartGraceTimer) lessonAction()             {}
func (ActionCancelGraceTimer) lessonAction()            {}
func (ActionSessionCompleted) lessonAction()            {}

func (ActionRequestBlock) Name() string                { return "request_block" }
func (ActionRequestRemedial) Name() string             { return "request_remedial" }
func (ActionRequestInterruptionResponse) Name() string { return "request_interruption_response" }
func (ActionStartGraceTimer) Name() string             { return "start_grace_timer" }
func (ActionCancelGraceTimer) Name() string            { return "cancel_grace_timer" }
func (ActionSessionCompleted) Name() string            { return "session_completed" }

// #endregion

// #region config

// Config holds the machine's tuning knobs.
type Config struct {
	// GraceWindowMs is the silence window after an auto-advance block
	// completes before the machine advances.
	GraceWindowMs uint64
}

// DefaultConfig returns the standard 5 second grace window.
func DefaultConfig() Config {
	return Config{GraceWindowMs: 5000}
}

// #endregion
