package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chalktalk/lesson-controller/internal/session"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a
// syllabus, a script of externally observed events at virtual times,
// and the expected state after each one.
type Fixture struct {
	Description string           `json:"description"`
	Session     FixtureSession   `json:"session"`
	Config      FixtureConfig    `json:"config"`
	Script      []FixtureEvent   `json:"script"`
	Expected    []ExpectedResult `json:"expected"`
	RunUntilMs  uint64           `json:"run_until_ms"`
}

// FixtureSession is the JSON-serializable session seed.
type FixtureSession struct {
	SessionID string             `json:"session_id"`
	Syllabus  []session.TopicRef `json:"syllabus"`
}

// FixtureConfig bundles the timing knobs for a replay run.
type FixtureConfig struct {
	GraceWindowMs uint64 `json:"grace_window_ms"`
	TickMs        uint64 `json:"tick_ms"`
	WordGapMs     uint64 `json:"word_gap_ms"`
}

// FixtureEvent is one scripted external input at a virtual time.
type FixtureEvent struct {
	AtMs uint64 `json:"at_ms"`
	Kind string `json:"kind"` // "speech_started" | "speech_ended" | "submit" | "resume_lesson" | "end_session"

	Utterance     string `json:"utterance,omitempty"`
	Passed        bool   `json:"passed,omitempty"`
	Indeterminate bool   `json:"indeterminate,omitempty"`
}

// ExpectedResult is the state expected right after one scripted event.
type ExpectedResult struct {
	EventIndex int    `json:"event_index"`
	Phase      string `json:"phase"`
	TopicIndex int    `json:"topic_index"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Config.TickMs == 0 {
		f.Config.TickMs = 100
	}
	if f.Config.GraceWindowMs == 0 {
		f.Config.GraceWindowMs = 5000
	}
	if f.Config.WordGapMs == 0 {
		f.Config.WordGapMs = 400
	}
	return &f, nil
}

// #endregion fixture-loader
