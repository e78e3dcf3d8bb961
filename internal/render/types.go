// Package render defines the command stream the controller emits toward
// the external renderer. The controller never draws; it only says what
// should appear when.
package render

import (
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region command

// Command instructs the renderer to act on one surface.
type Command struct {
	BlockID  string           `json:"block_id"`
	OffsetMs uint64           `json:"offset_ms"`
	Surface  timeline.Surface `json:"surface,omitempty"`
	// Exactly one of the following is set.
	Mark    *timeline.SpeechMark   `json:"mark,omitempty"`
	Payload timeline.VisualPayload `json:"payload,omitempty"`
	// PayloadKind tags Payload for consumers decoding the JSON form.
	PayloadKind string `json:"payload_kind,omitempty"`
}

// #endregion

// #region lifecycle

// LifecycleKind is a block run lifecycle notification.
type LifecycleKind string

const (
	BlockStarted   LifecycleKind = "block_started"
	BlockPaused    LifecycleKind = "block_paused"
	BlockResumed   LifecycleKind = "block_resumed"
	BlockCompleted LifecycleKind = "block_completed"
)

// Lifecycle notifies the renderer of a block run boundary.
type Lifecycle struct {
	Kind     LifecycleKind `json:"kind"`
	BlockID  string        `json:"block_id"`
	OffsetMs uint64        `json:"offset_ms"`
}

// #endregion

// #region sink

// Sink receives dispatch commands and lifecycle notifications. The
// dispatcher is the only producer; implementations must not block the
// control loop for long.
type Sink interface {
	Dispatch(cmd Command) error
	Notify(lc Lifecycle) error
}

// #endregion
