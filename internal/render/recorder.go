package render

import "log"

// #region recorder

// Recorder is an in-memory Sink. The replay harness and tests use it to
// assert on the exact dispatch trace.
type Recorder struct {
	Commands   []Command
	Lifecycles []Lifecycle
}

// Dispatch records the command.
func (r *Recorder) Dispatch(cmd Command) error {
	r.Commands = append(r.Commands, cmd)
	return nil
}

// Notify records the lifecycle notification.
func (r *Recorder) Notify(lc Lifecycle) error {
	r.Lifecycles = append(r.Lifecycles, lc)
	return nil
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.Commands = nil
	r.Lifecycles = nil
}

// #endregion

// #region log-sink

// LogSink prints the dispatch stream to the process log. Used by
// cmd/controller when no Redis bus is configured.
type LogSink struct{}

// Dispatch logs one command.
func (LogSink) Dispatch(cmd Command) error {
	if cmd.Mark != nil {
		log.Printf("[SYNC] %s @%dms mark %s %q", cmd.BlockID, cmd.OffsetMs, cmd.Mark.Kind, cmd.Mark.Value)
		return nil
	}
	log.Printf("[SYNC] %s @%dms %s on %s", cmd.BlockID, cmd.OffsetMs, cmd.PayloadKind, cmd.Surface)
	return nil
}

// Notify logs one lifecycle notification.
func (LogSink) Notify(lc Lifecycle) error {
	log.Printf("[SYNC] %s %s @%dms", lc.BlockID, lc.Kind, lc.OffsetMs)
	return nil
}

// #endregion
