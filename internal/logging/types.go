package logging

import "time"

// #region transition-entry
// TransitionEntry is a single row in the transition_log table.
type TransitionEntry struct {
	SessionID    string
	CheckpointID string
	TriggerType  string // "block_completed" | "submission" | "grace_elapsed" | "interruption" | "resume_lesson" | "session_ended"
	FromPhase    string
	ToPhase      string
	TopicIndex   int
	DetailJSON   string
	Reason       string
	CreatedAt    time.Time
}
// #endregion transition-entry

// #region event-record
// EventRecord captures the exact controller input that caused a
// transition. Serialized as JSON into transition_log.detail_json so a
// session can be replayed deterministically.
type EventRecord struct {
	Kind        string `json:"kind"`
	BlockID     string `json:"block_id,omitempty"`
	OffsetMs    uint64 `json:"offset_ms,omitempty"`
	Passed      *bool  `json:"passed,omitempty"`
	Utterance   string `json:"utterance,omitempty"`
	AtWallClock string `json:"at_wall_clock,omitempty"`
}
// #endregion event-record
