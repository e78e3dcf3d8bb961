package replay

import (
	"testing"

	"github.com/chalktalk/lesson-controller/internal/render"
	"github.com/chalktalk/lesson-controller/internal/session"
)

func twoTopicFixture() *Fixture {
	return &Fixture{
		Description: "two topics, both passed first try",
		Session: FixtureSession{
			SessionID: "replay-1",
			Syllabus: []session.TopicRef{
				{ID: "variables", Title: "variables"},
				{ID: "loops", Title: "for loops"},
			},
		},
		Config: FixtureConfig{GraceWindowMs: 5000, TickMs: 100, WordGapMs: 400},
		Script: []FixtureEvent{
			{AtMs: 30000, Kind: "submit", Passed: true},
			{AtMs: 55000, Kind: "submit", Passed: true},
		},
		Expected: []ExpectedResult{
			{EventIndex: 0, Phase: "theory", TopicIndex: 1},
			{EventIndex: 1, Phase: "completed", TopicIndex: 2},
		},
	}
}

func TestReplayTwoTopicSession(t *testing.T) {
	f := twoTopicFixture()
	sum, err := Replay(f)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	if sum.FinalPhase != session.PhaseCompleted {
		t.Fatalf("expected completed, got %s", sum.FinalPhase)
	}
	if sum.CompletedTopics != 2 {
		t.Fatalf("expected 2 completed topics, got %d", sum.CompletedTopics)
	}

	// Opener plus theory/demo/task per topic.
	started := 0
	for _, lc := range sum.Lifecycles {
		if lc.Kind == render.BlockStarted {
			started++
		}
	}
	if started != 7 {
		t.Fatalf("expected 7 blocks started, got %d", started)
	}

	if mismatches := Compare(f, sum); len(mismatches) != 0 {
		t.Fatalf("unexpected mismatches: %+v", mismatches)
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	f := twoTopicFixture()
	first, err := Replay(f)
	if err != nil {
		t.Fatalf("first replay failed: %v", err)
	}
	second, err := Replay(f)
	if err != nil {
		t.Fatalf("second replay failed: %v", err)
	}

	if len(first.Steps) != len(second.Steps) {
		t.Fatalf("step counts differ: %d vs %d", len(first.Steps), len(second.Steps))
	}
	for i := range first.Steps {
		if first.Steps[i].Phase != second.Steps[i].Phase || first.Steps[i].TopicIndex != second.Steps[i].TopicIndex {
			t.Fatalf("step %d differs: %+v vs %+v", i, first.Steps[i], second.Steps[i])
		}
	}
	if len(first.Commands) != len(second.Commands) {
		t.Fatalf("command counts differ: %d vs %d", len(first.Commands), len(second.Commands))
	}
	for i := range first.Commands {
		if first.Commands[i].OffsetMs != second.Commands[i].OffsetMs {
			t.Fatalf("command %d offset differs: %d vs %d", i, first.Commands[i].OffsetMs, second.Commands[i].OffsetMs)
		}
	}
}

func TestReplayUnknownScriptKindFails(t *testing.T) {
	f := twoTopicFixture()
	f.Script = []FixtureEvent{{AtMs: 100, Kind: "teleport"}}
	if _, err := Replay(f); err == nil {
		t.Fatal("expected error for unknown scripted event kind")
	}
}

func TestCompareFlagsMismatch(t *testing.T) {
	f := twoTopicFixture()
	sum, err := Replay(f)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	f.Expected[0].TopicIndex = 99
	mismatches := Compare(f, sum)
	if len(mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %d", len(mismatches))
	}
	if mismatches[0].Field != "topic_index" {
		t.Fatalf("expected topic_index mismatch, got %s", mismatches[0].Field)
	}
}

func TestCompareFlagsUnreachedEvent(t *testing.T) {
	f := twoTopicFixture()
	sum, err := Replay(f)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	f.Expected = append(f.Expected, ExpectedResult{EventIndex: 9, Phase: "theory"})
	mismatches := Compare(f, sum)
	if len(mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %d", len(mismatches))
	}
	if mismatches[0].Observed != "not reached" {
		t.Fatalf("expected not-reached mismatch, got %+v", mismatches[0])
	}
}
