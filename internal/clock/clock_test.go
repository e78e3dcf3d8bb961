package clock

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func at(ms uint64) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func TestStartAndOffset(t *testing.T) {
	c := New(10000)
	if c.State() != StateIdle {
		t.Fatalf("expected idle, got %s", c.State())
	}
	if c.OffsetAt(at(500)) != 0 {
		t.Fatal("idle clock should report offset 0")
	}
	if err := c.Start(t0); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if got := c.OffsetAt(at(1234)); got != 1234 {
		t.Fatalf("expected offset 1234, got %d", got)
	}
}

func TestStartTwiceFails(t *testing.T) {
	c := New(10000)
	if err := c.Start(t0); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	err := c.Start(at(100))
	if err == nil {
		t.Fatal("expected error on double start")
	}
	var tErr *InvalidTransitionError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if tErr.From != StateRunning {
		t.Fatalf("expected From running, got %s", tErr.From)
	}
}

func TestPauseFreezesOffset(t *testing.T) {
	c := New(10000)
	c.Start(t0)
	if err := c.Pause(at(1200)); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if c.State() != StatePaused {
		t.Fatalf("expected paused, got %s", c.State())
	}
	// Offset no longer tracks wall time.
	if got := c.OffsetAt(at(60000)); got != 1200 {
		t.Fatalf("paused offset drifted to %d", got)
	}
}

func TestResumeHasZeroDiscontinuity(t *testing.T) {
	c := New(10000)
	c.Start(t0)
	c.Pause(at(1200))

	// Paused for 30 seconds of wall time.
	if err := c.Resume(at(31200)); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if got := c.OffsetAt(at(31200)); got != 1200 {
		t.Fatalf("expected offset 1200 at resume instant, got %d", got)
	}
	if got := c.OffsetAt(at(31700)); got != 1700 {
		t.Fatalf("expected offset 1700 half a second later, got %d", got)
	}
}

func TestOffsetClampsToDuration(t *testing.T) {
	c := New(2000)
	c.Start(t0)
	if got := c.OffsetAt(at(9999)); got != 2000 {
		t.Fatalf("expected offset clamped to 2000, got %d", got)
	}
}

func TestOffsetBeforeAnchorIsZero(t *testing.T) {
	c := New(2000)
	c.Start(at(1000))
	if got := c.OffsetAt(t0); got != 0 {
		t.Fatalf("expected 0 before the anchor, got %d", got)
	}
}

func TestSeekOnlyWhilePaused(t *testing.T) {
	c := New(10000)
	c.Start(t0)
	if err := c.Seek(500); err == nil {
		t.Fatal("seek while running should fail")
	}
	c.Pause(at(1200))
	if err := c.Seek(800); err != nil {
		t.Fatalf("seek while paused failed: %v", err)
	}
	if got := c.OffsetAt(at(5000)); got != 800 {
		t.Fatalf("expected offset 800 after seek, got %d", got)
	}
	// Seek past the end clamps.
	c.Seek(99999)
	if got := c.OffsetAt(at(5000)); got != 10000 {
		t.Fatalf("expected clamp to 10000, got %d", got)
	}
}

func TestCompleteRequiresFullDuration(t *testing.T) {
	c := New(2000)
	c.Start(t0)
	if err := c.Complete(at(1500)); err == nil {
		t.Fatal("complete before duration should fail")
	}
	if err := c.Complete(at(2000)); err != nil {
		t.Fatalf("complete at duration failed: %v", err)
	}
	if c.State() != StateCompleted {
		t.Fatalf("expected completed, got %s", c.State())
	}
	if got := c.OffsetAt(at(9000)); got != 2000 {
		t.Fatalf("completed offset should stay at 2000, got %d", got)
	}
}

func TestRestorePaused(t *testing.T) {
	c := RestorePaused(5000, 1200)
	if c.State() != StatePaused {
		t.Fatalf("expected paused, got %s", c.State())
	}
	if got := c.OffsetAt(t0); got != 1200 {
		t.Fatalf("expected restored offset 1200, got %d", got)
	}
	if err := c.Resume(t0); err != nil {
		t.Fatalf("resume after restore failed: %v", err)
	}
	if got := c.OffsetAt(at(300)); got != 1500 {
		t.Fatalf("expected offset 1500, got %d", got)
	}
}

func TestRestorePausedClampsOffset(t *testing.T) {
	c := RestorePaused(1000, 9999)
	if got := c.OffsetAt(t0); got != 1000 {
		t.Fatalf("expected clamp to 1000, got %d", got)
	}
}
