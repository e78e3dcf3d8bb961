package dispatch

import (
	"testing"
	"time"

	"github.com/chalktalk/lesson-controller/internal/render"
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

var t0 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func at(ms uint64) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func makeBlock() timeline.TeachingBlock {
	return timeline.TeachingBlock{
		ID:   "demo-1",
		Kind: timeline.KindDemo,
		SpeechMarks: []timeline.SpeechMark{
			{OffsetMs: 0, Kind: timeline.MarkWord, Value: "watch"},
			{OffsetMs: 400, Kind: timeline.MarkWord, Value: "this"},
			{OffsetMs: 800, Kind: timeline.MarkSentence, Value: "watch this"},
		},
		VisualEvents: []timeline.VisualEvent{
			{OffsetMs: 200, Surface: timeline.SurfaceEditor, Payload: timeline.CodeToken{Text: "func", Line: 1}},
			{OffsetMs: 800, Surface: timeline.SurfaceEditor, Payload: timeline.CodeToken{Text: "main", Line: 1, Col: 5}},
		},
		TotalDurationMs: 800,
		InteractionMode: timeline.ModeLocked,
		AutoAdvance:     true,
	}
}

func TestStartEmitsBlockStarted(t *testing.T) {
	rec := &render.Recorder{}
	d, err := Start(makeBlock(), rec, t0)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(rec.Lifecycles) != 1 || rec.Lifecycles[0].Kind != render.BlockStarted {
		t.Fatalf("expected BlockStarted, got %+v", rec.Lifecycles)
	}
	if d.Done() {
		t.Fatal("fresh dispatcher should not be done")
	}
}

func TestPollDeliversExactlyOnceUnderCoarsePolling(t *testing.T) {
	rec := &render.Recorder{}
	d, err := Start(makeBlock(), rec, t0)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Wildly uneven poll times, including a duplicate instant.
	for _, ms := range []uint64{50, 50, 300, 310, 799} {
		if played, err := d.Poll(at(ms)); err != nil || played {
			t.Fatalf("poll at %dms: played=%v err=%v", ms, played, err)
		}
	}
	played, err := d.Poll(at(800))
	if err != nil {
		t.Fatalf("final poll failed: %v", err)
	}
	if !played {
		t.Fatal("expected block to complete at its duration")
	}

	if len(rec.Commands) != 5 {
		t.Fatalf("expected 5 commands, got %d", len(rec.Commands))
	}
	seen := map[uint64]int{}
	for _, cmd := range rec.Commands {
		seen[cmd.OffsetMs]++
	}
	for off, n := range seen {
		if off == 800 {
			if n != 2 {
				t.Fatalf("expected 2 events at terminal offset, got %d", n)
			}
			continue
		}
		if n != 1 {
			t.Fatalf("event at %dms delivered %d times", off, n)
		}
	}
}

func TestPollFlushesTerminalOffsetEvents(t *testing.T) {
	rec := &render.Recorder{}
	d, err := Start(makeBlock(), rec, t0)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Single poll long after the block ended: every event, including the
	// ones at exactly TotalDurationMs, arrives before BlockCompleted.
	played, err := d.Poll(at(60000))
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if !played {
		t.Fatal("expected completion")
	}
	if len(rec.Commands) != 5 {
		t.Fatalf("expected all 5 commands, got %d", len(rec.Commands))
	}
	last := rec.Lifecycles[len(rec.Lifecycles)-1]
	if last.Kind != render.BlockCompleted || last.OffsetMs != 800 {
		t.Fatalf("expected BlockCompleted at 800ms, got %+v", last)
	}

	// Further polls are inert.
	rec.Reset()
	if played, _ := d.Poll(at(70000)); !played {
		t.Fatal("done dispatcher should report played")
	}
	if len(rec.Commands) != 0 || len(rec.Lifecycles) != 0 {
		t.Fatal("done dispatcher should emit nothing")
	}
}

func TestPauseStopsDelivery(t *testing.T) {
	rec := &render.Recorder{}
	d, err := Start(makeBlock(), rec, t0)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	d.Poll(at(300))

	off, err := d.Pause(at(350))
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if off != 350 {
		t.Fatalf("expected pause offset 350, got %d", off)
	}

	rec.Reset()
	if played, _ := d.Poll(at(5000)); played {
		t.Fatal("paused dispatcher should not complete")
	}
	if len(rec.Commands) != 0 {
		t.Fatalf("paused dispatcher delivered %d commands", len(rec.Commands))
	}
}

func TestPauseBetweenPollsFlushesGapEvents(t *testing.T) {
	rec := &render.Recorder{}
	d, err := Start(makeBlock(), rec, t0)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Last poll at 300ms, pause at 450ms: the mark at 400ms sits in the
	// gap the ticker never reached.
	d.Poll(at(300))
	off, err := d.Pause(at(450))
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if off != 450 {
		t.Fatalf("expected pause offset 450, got %d", off)
	}
	if n := len(rec.Commands); n != 3 {
		t.Fatalf("expected the 400ms event flushed on pause, got %d commands", n)
	}
	if rec.Commands[2].OffsetMs != 400 {
		t.Fatalf("expected flushed event at 400ms, got %d", rec.Commands[2].OffsetMs)
	}

	// A restore at the paused offset then covers the rest exactly once.
	rec2 := &render.Recorder{}
	r, err := Restore(makeBlock(), rec2, off)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if err := r.Resume(at(10450)); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if played, err := r.Poll(at(10800)); err != nil || !played {
		t.Fatalf("poll: played=%v err=%v", played, err)
	}
	if len(rec2.Commands) != 2 {
		t.Fatalf("expected the 2 remaining events after resume, got %d", len(rec2.Commands))
	}
	if rec2.Commands[0].OffsetMs != 800 || rec2.Commands[1].OffsetMs != 800 {
		t.Fatalf("expected both terminal events at 800ms, got %+v", rec2.Commands)
	}
}

func TestRestoreSkipsDeliveredEvents(t *testing.T) {
	rec := &render.Recorder{}
	d, err := Restore(makeBlock(), rec, 350)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if err := d.Resume(at(31350)); err != nil {
		t.Fatalf("resume failed: %v", err)
	}

	played, err := d.Poll(at(31800))
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if !played {
		t.Fatal("expected completion")
	}
	// Events at 0, 200 were already delivered in the original run.
	if len(rec.Commands) != 3 {
		t.Fatalf("expected 3 commands after restore at 350ms, got %d", len(rec.Commands))
	}
	if rec.Commands[0].OffsetMs != 400 {
		t.Fatalf("expected first replayed event at 400ms, got %d", rec.Commands[0].OffsetMs)
	}
}

func TestStartRejectsMalformedBlock(t *testing.T) {
	b := makeBlock()
	b.SpeechMarks[2].OffsetMs = 99999
	if _, err := Start(b, &render.Recorder{}, t0); err == nil {
		t.Fatal("expected error for malformed block")
	}
}
