package loop

import (
	"time"

	"github.com/chalktalk/lesson-controller/internal/lesson"
	"github.com/chalktalk/lesson-controller/internal/listener"
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region messages

// Msg is the closed set of external inputs to the control loop. All
// collaborator signals arrive as messages on one channel and are
// processed one at a time, in arrival order.
type Msg interface {
	loopMsg()
	Kind() string
}

// MsgSpeech delivers a voice-activity event from the listener.
type MsgSpeech struct {
	Event listener.SpeechEvent
}

// MsgSubmission delivers an explicit learner submission with its
// validation result.
type MsgSubmission struct {
	Result lesson.SubmissionResult
}

// MsgResumeLesson delivers an explicit resume-lesson request after an
// interruption response has played.
type MsgResumeLesson struct{}

// MsgEndSession delivers an explicit end-session request.
type MsgEndSession struct{}

func (MsgSpeech) loopMsg()       {}
func (MsgSubmission) loopMsg()   {}
func (MsgResumeLesson) loopMsg() {}
func (MsgEndSession) loopMsg()   {}

func (MsgSpeech) Kind() string       { return "speech" }
func (MsgSubmission) Kind() string   { return "submission" }
func (MsgResumeLesson) Kind() string { return "resume_lesson" }
func (MsgEndSession) Kind() string   { return "end_session" }

// #endregion

// #region config

// Config holds the loop's timing knobs.
type Config struct {
	// PollInterval is the dispatch polling cadence. Event delivery is
	// correct at any granularity; this only bounds latency.
	PollInterval time.Duration
	// RequestTimeout bounds each content-planning call.
	RequestTimeout time.Duration
	// RetryInterval bounds how long a ContentUnavailable stall waits
	// before re-requesting without an external signal.
	RetryInterval time.Duration
	// Lesson carries the grace window.
	Lesson lesson.Config
}

// DefaultConfig returns production timings.
func DefaultConfig() Config {
	return Config{
		PollInterval:   50 * time.Millisecond,
		RequestTimeout: 30 * time.Second,
		RetryInterval:  2 * time.Second,
		Lesson:         lesson.DefaultConfig(),
	}
}

// #endregion

// #region internal-state

// graceArm is a pending silence-window auto-advance, checked against
// the injected clock each step so replay stays deterministic.
type graceArm struct {
	deadline  time.Time
	blockID   string
	blockKind timeline.BlockKind
}

// pendingRequest remembers a content request that failed with
// ErrContentUnavailable, to retry on the next signal or retry deadline.
type pendingRequest struct {
	kind       requestKind
	blockKind  timeline.BlockKind
	result     lesson.SubmissionResult
	utterance  string
	retryAfter time.Time
}

// requestKind selects which Source call a pendingRequest retries.
type requestKind string

const (
	requestBlock        requestKind = "block"
	requestRemedial     requestKind = "remedial"
	requestInterruption requestKind = "interruption_response"
)

// #endregion
