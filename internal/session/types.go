package session

import "time"

// #region phase

// Phase is the pedagogical phase within one syllabus topic.
type Phase string

const (
	PhaseTheory     Phase = "theory"
	PhaseDemo       Phase = "demo"
	PhasePractice   Phase = "practice"
	PhaseValidation Phase = "validation"
	// PhaseCompleted marks a session whose syllabus is exhausted.
	PhaseCompleted Phase = "completed"
)

// #endregion

// #region topic-ref

// TopicRef identifies one syllabus topic.
type TopicRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// #endregion

// #region playback-position

// PlaybackPosition addresses a point inside a block's timeline.
// WallClockAnchor is the wall time that corresponded to offset 0 of the
// current unpaused run, so a live offset is computable without an
// always-ticking value.
type PlaybackPosition struct {
	BlockID         string    `json:"block_id"`
	OffsetMs        uint64    `json:"offset_ms"`
	WallClockAnchor time.Time `json:"wall_clock_anchor"`
}

// #endregion

// #region interruption-snapshot

// InterruptionSnapshot captures everything needed to resume a block
// after a live interruption. Created exactly once per interruption,
// consumed exactly once on resume or discarded on abandon.
type InterruptionSnapshot struct {
	PausedPosition  PlaybackPosition `json:"paused_position"`
	PendingBlockIDs []string         `json:"pending_block_ids"`
	Reason          string           `json:"reason"`
	CapturedAt      time.Time        `json:"captured_at"`
}

// #endregion

// #region context

// Context is the per-session state the lesson state machine owns.
// Single-writer: only the control loop mutates it; observers get a
// Clone that is a stale snapshot valid until the next processed message.
type Context struct {
	SessionID         string                `json:"session_id"`
	Syllabus          []TopicRef            `json:"syllabus"`
	CurrentTopicIndex int                   `json:"current_topic_index"`
	CurrentPhase      Phase                 `json:"current_phase"`
	CompletedTopics   map[string]bool       `json:"completed_topics"` // topic ID → done
	LastSnapshot      *InterruptionSnapshot `json:"last_snapshot,omitempty"`
}

// NewContext returns a fresh context positioned at the first topic's
// Theory phase.
func NewContext(sessionID string, syllabus []TopicRef) Context {
	return Context{
		SessionID:       sessionID,
		Syllabus:        syllabus,
		CurrentPhase:    PhaseTheory,
		CompletedTopics: map[string]bool{},
	}
}

// Clone deep-copies the context so observers never alias the writer's
// maps and slices.
func (c Context) Clone() Context {
	out := c
	out.Syllabus = append([]TopicRef(nil), c.Syllabus...)
	out.CompletedTopics = make(map[string]bool, len(c.CompletedTopics))
	for k, v := range c.CompletedTopics {
		out.CompletedTopics[k] = v
	}
	if c.LastSnapshot != nil {
		snap := *c.LastSnapshot
		snap.PendingBlockIDs = append([]string(nil), c.LastSnapshot.PendingBlockIDs...)
		out.LastSnapshot = &snap
	}
	return out
}

// CurrentTopic returns the topic at the current index, or false if the
// syllabus is exhausted.
func (c Context) CurrentTopic() (TopicRef, bool) {
	if c.CurrentTopicIndex < 0 || c.CurrentTopicIndex >= len(c.Syllabus) {
		return TopicRef{}, false
	}
	return c.Syllabus[c.CurrentTopicIndex], true
}

// #endregion
