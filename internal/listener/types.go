// Package listener defines the voice-activity events the controller
// consumes. Detection itself happens in an external collaborator; the
// control loop is the sole subscriber.
package listener

import "time"

// #region speech-event-type

// SpeechEventType is the closed set of voice-activity signals.
type SpeechEventType string

const (
	SpeechStarted SpeechEventType = "speech_started"
	SpeechEnded   SpeechEventType = "speech_ended"
)

// #endregion

// #region speech-event

// SpeechEvent is one voice-activity signal with its wall-clock time.
type SpeechEvent struct {
	Type        SpeechEventType
	AtWallClock time.Time
	// Utterance carries the transcript once available; empty on
	// SpeechStarted, usually set on SpeechEnded.
	Utterance string
}

// #endregion
