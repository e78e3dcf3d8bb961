// Package loop runs the single-threaded control loop that owns the
// playback clock, sync dispatcher, interruption coordinator, and lesson
// state machine. Every external input is a message processed one at a
// time; the session context has exactly one writer.
package loop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chalktalk/lesson-controller/internal/content"
	"github.com/chalktalk/lesson-controller/internal/dispatch"
	"github.com/chalktalk/lesson-controller/internal/interrupt"
	"github.com/chalktalk/lesson-controller/internal/lesson"
	"github.com/chalktalk/lesson-controller/internal/listener"
	"github.com/chalktalk/lesson-controller/internal/logging"
	"github.com/chalktalk/lesson-controller/internal/render"
	"github.com/chalktalk/lesson-controller/internal/session"
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region controller-struct

// Controller wires the lesson pipeline together. All methods except the
// message constructors must be called from one goroutine; Run is that
// goroutine in production, the replay harness in tests.
type Controller struct {
	cfg    Config
	source content.Source
	sink   render.Sink
	store  *session.Store // nil disables checkpointing

	mu   sync.RWMutex
	sctx session.Context

	disp       *dispatch.Dispatcher
	coord      *interrupt.Coordinator
	queue      []timeline.TeachingBlock
	grace      *graceArm
	pendingAdv *graceArm // advance cancelled by speech inside the window
	stalled    *pendingRequest
	respBlocks map[string]bool
	speechOpen bool
	done       bool

	now  func() time.Time
	msgs chan Msg
}

// New builds a controller for one session. store may be nil.
func New(cfg Config, source content.Source, sink render.Sink, store *session.Store, sctx session.Context) *Controller {
	return &Controller{
		cfg:        cfg,
		source:     source,
		sink:       sink,
		store:      store,
		sctx:       sctx,
		coord:      interrupt.New(),
		respBlocks: map[string]bool{},
		now:        time.Now,
		msgs:       make(chan Msg, 64),
	}
}

// SetNow injects a clock for deterministic replay and tests.
func (c *Controller) SetNow(now func() time.Time) { c.now = now }

// #endregion

// #region context-access

// Context returns a stale snapshot of the session context, valid until
// the next processed message.
func (c *Controller) Context() session.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sctx.Clone()
}

func (c *Controller) setCtx(sctx session.Context) {
	sctx.LastSnapshot = c.coord.Last()
	c.mu.Lock()
	c.sctx = sctx
	c.mu.Unlock()
}

// Done reports whether the session has ended.
func (c *Controller) Done() bool { return c.done }

// #endregion

// #region message-intake

// Speech queues a voice-activity event.
func (c *Controller) Speech(ev listener.SpeechEvent) { c.msgs <- MsgSpeech{Event: ev} }

// Submit queues a learner submission with its validation result.
func (c *Controller) Submit(result lesson.SubmissionResult) { c.msgs <- MsgSubmission{Result: result} }

// ResumeLesson queues an explicit resume-lesson request.
func (c *Controller) ResumeLesson() { c.msgs <- MsgResumeLesson{} }

// End queues an explicit end-session request.
func (c *Controller) End() { c.msgs <- MsgEndSession{} }

// #endregion

// #region run

// Begin requests the session's opening syllabus block.
func (c *Controller) Begin() error {
	return c.request(pendingRequest{kind: requestBlock, blockKind: timeline.KindSyllabus})
}

// Run drives the loop until the session ends, ctx is cancelled, or a
// processing error escapes. Errors reaching this level are integration
// defects (invalid clock transitions, sink failures); recoverable
// conditions are absorbed further down, so Run stops rather than
// limping on. Messages queued before a tick are drained first,
// preserving arrival order over time-based polling.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for !c.done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-c.msgs:
			if err := c.Process(m); err != nil {
				return fmt.Errorf("process %s: %w", m.Kind(), err)
			}
		case <-ticker.C:
			for drained := false; !drained; {
				select {
				case m := <-c.msgs:
					if err := c.Process(m); err != nil {
						return fmt.Errorf("process %s: %w", m.Kind(), err)
					}
				default:
					drained = true
				}
			}
			if err := c.Step(); err != nil {
				return fmt.Errorf("step: %w", err)
			}
		}
	}
	return nil
}

// #endregion

// #region process

// Process handles one external message. A stalled content request is
// retried after any external signal.
func (c *Controller) Process(m Msg) error {
	if c.done {
		return nil
	}
	var err error
	switch msg := m.(type) {
	case MsgSpeech:
		if msg.Event.Type == listener.SpeechStarted {
			err = c.onSpeechStarted(msg.Event)
		} else {
			err = c.onSpeechEnded(msg.Event)
		}
	case MsgSubmission:
		err = c.onSubmission(msg.Result)
	case MsgResumeLesson:
		err = c.onResumeLesson()
	case MsgEndSession:
		err = c.onEndSession()
	default:
		err = nil
	}
	if rerr := c.retryStalled(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// #endregion

// #region step

// Step runs one poll cycle: retry deadline, dispatch window, grace
// window, then start the next queued block if playback is free.
func (c *Controller) Step() error {
	if c.done {
		return nil
	}
	now := c.now()

	if c.stalled != nil && !now.Before(c.stalled.retryAfter) {
		if err := c.retryStalled(); err != nil {
			return err
		}
	}

	if c.disp != nil && !c.disp.Done() {
		played, err := c.disp.Poll(now)
		if err != nil {
			return err
		}
		if played {
			if err := c.onBlockPlayed(c.disp.Block(), now); err != nil {
				return err
			}
		}
	}

	if c.grace != nil && !now.Before(c.grace.deadline) {
		arm := *c.grace
		c.grace = nil
		log.Printf("[LOOP] grace window elapsed after %s", arm.blockID)
		if err := c.applyEvent(lesson.EventGraceElapsed{BlockID: arm.blockID, BlockKind: arm.blockKind}, "grace_elapsed"); err != nil {
			return err
		}
	}

	return c.startNext(c.now())
}

// #endregion

// #region block-played

// onBlockPlayed routes a finished block. Interruption-response blocks
// sit outside the lesson sequence: with a snapshot outstanding the loop
// waits for an explicit resume; after a grace-window interruption the
// cancelled advance is re-armed for a fresh silence window.
func (c *Controller) onBlockPlayed(b timeline.TeachingBlock, now time.Time) error {
	if c.respBlocks[b.ID] {
		delete(c.respBlocks, b.ID)
		if c.coord.Active() {
			log.Printf("[LOOP] response %s finished, awaiting resume", b.ID)
			return nil
		}
		if c.pendingAdv != nil {
			c.grace = &graceArm{
				deadline:  now.Add(c.graceWindow()),
				blockID:   c.pendingAdv.blockID,
				blockKind: c.pendingAdv.blockKind,
			}
			c.pendingAdv = nil
		}
		return nil
	}
	return c.applyEvent(lesson.EventBlockPlayed{
		BlockID:     b.ID,
		BlockKind:   b.Kind,
		AutoAdvance: b.AutoAdvance,
	}, "block_completed")
}

// #endregion

// #region speech

func (c *Controller) onSpeechStarted(ev listener.SpeechEvent) error {
	c.speechOpen = true
	now := c.eventTime(ev.AtWallClock)

	if c.grace != nil {
		// Speech inside the silence window wins the race: the pending
		// auto-advance is cancelled, not delayed.
		c.pendingAdv = c.grace
		c.grace = nil
		log.Printf("[LOOP] speech during grace window, auto-advance cancelled")
	}

	if c.disp != nil && !c.disp.Done() {
		snap, err := c.coord.Interrupt(c.disp, c.queue, "user_speech", now)
		if err != nil {
			return err
		}
		c.queue = nil
		c.disp = nil
		c.setCtx(c.Context())
		log.Printf("[LOOP] interrupted %s at %dms", snap.PausedPosition.BlockID, snap.PausedPosition.OffsetMs)
	}
	return nil
}

func (c *Controller) onSpeechEnded(ev listener.SpeechEvent) error {
	if !c.speechOpen {
		return nil
	}
	c.speechOpen = false
	return c.applyEvent(lesson.EventInterruption{Utterance: ev.Utterance}, "interruption")
}

// #endregion

// #region submission

func (c *Controller) onSubmission(result lesson.SubmissionResult) error {
	err := c.applyEvent(lesson.EventSubmission{Result: result}, "submission")
	if errors.Is(err, lesson.ErrInvalidEvent) {
		// Stay in place; a stray submission never forces a transition.
		log.Printf("[LESSON] %v", err)
		return nil
	}
	return err
}

// #endregion

// #region resume

func (c *Controller) onResumeLesson() error {
	if !c.coord.Active() {
		log.Printf("[LOOP] resume requested with no snapshot")
		return nil
	}
	if c.disp != nil && !c.disp.Done() {
		log.Printf("[LOOP] resume requested while %s still playing", c.disp.BlockID())
		return nil
	}
	d, err := c.coord.Resume(c.sink, c.now())
	if err != nil {
		return err
	}
	c.disp = d
	c.setCtx(c.Context())
	c.logTransition("resume_lesson", c.sctx.CurrentPhase, c.sctx.CurrentPhase, "resumed "+d.BlockID(), "")
	return nil
}

// #endregion

// #region end-session

func (c *Controller) onEndSession() error {
	c.coord.Abandon()
	c.grace = nil
	c.pendingAdv = nil
	c.queue = nil
	c.stalled = nil
	if err := c.applyEvent(lesson.EventSessionEnded{}, "session_ended"); err != nil {
		return err
	}
	c.checkpoint("session_ended", "explicit end")
	c.done = true
	return nil
}

// #endregion

// #region apply-event

// applyEvent runs one machine transition and performs its actions. The
// context swap is atomic: observers see either the old or new value.
func (c *Controller) applyEvent(ev lesson.Event, trigger string) error {
	before := c.Context()
	res, err := lesson.Apply(before, ev)
	if err != nil {
		return err
	}
	fromPhase := before.CurrentPhase
	c.setCtx(res.Ctx)
	if res.Ctx.CurrentPhase != fromPhase || res.Ctx.CurrentTopicIndex != before.CurrentTopicIndex {
		c.logTransition(trigger, fromPhase, res.Ctx.CurrentPhase, string(res.Outcome), eventDetail(ev))
	}
	if res.Outcome == lesson.OutcomeAdvance {
		c.checkpoint(trigger, "topic completed")
	}
	return c.runActions(res.Actions)
}

func (c *Controller) runActions(actions []lesson.Action) error {
	now := c.now()
	for _, a := range actions {
		switch act := a.(type) {
		case lesson.ActionRequestBlock:
			if err := c.request(pendingRequest{kind: requestBlock, blockKind: act.BlockKind}); err != nil {
				return err
			}
		case lesson.ActionRequestRemedial:
			if err := c.request(pendingRequest{kind: requestRemedial, result: act.Result}); err != nil {
				return err
			}
		case lesson.ActionRequestInterruptionResponse:
			if err := c.request(pendingRequest{kind: requestInterruption, utterance: act.Utterance}); err != nil {
				return err
			}
		case lesson.ActionStartGraceTimer:
			c.grace = &graceArm{
				deadline:  now.Add(c.graceWindow()),
				blockID:   act.BlockID,
				blockKind: act.BlockKind,
			}
		case lesson.ActionCancelGraceTimer:
			c.grace = nil
		case lesson.ActionSessionCompleted:
			log.Printf("[LOOP] syllabus exhausted, session complete")
			c.checkpoint("session_completed", "syllabus exhausted")
			c.done = true
		}
	}
	return nil
}

// #endregion

// #region content-requests

// request calls the content source and queues the returned block. A
// transient failure stalls the pending request; a malformed block is
// logged and re-requested once before stalling.
func (c *Controller) request(pr pendingRequest) error {
	for attempt := 0; attempt < 2; attempt++ {
		block, err := c.call(pr)
		if err != nil {
			if errors.Is(err, content.ErrContentUnavailable) {
				pr.retryAfter = c.now().Add(c.cfg.RetryInterval)
				c.stalled = &pr
				log.Printf("[LOOP] content unavailable, phase stalled: %v", err)
				return nil
			}
			return err
		}
		if _, err := timeline.New(block); err != nil {
			log.Printf("[LOOP] malformed block %s, requesting replacement: %v", block.ID, err)
			continue
		}
		if pr.kind == requestInterruption {
			c.respBlocks[block.ID] = true
		}
		c.stalled = nil
		c.queue = append(c.queue, block)
		return c.startNext(c.now())
	}
	pr.retryAfter = c.now().Add(c.cfg.RetryInterval)
	c.stalled = &pr
	log.Printf("[LOOP] repeated malformed blocks, phase stalled")
	return nil
}

func (c *Controller) call(pr pendingRequest) (timeline.TeachingBlock, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()
	sctx := c.Context()
	switch pr.kind {
	case requestRemedial:
		return c.source.RemedialBlock(ctx, sctx, pr.result)
	case requestInterruption:
		return c.source.InterruptionResponse(ctx, sctx, pr.utterance)
	default:
		return c.source.NextBlock(ctx, sctx, pr.blockKind)
	}
}

func (c *Controller) retryStalled() error {
	if c.stalled == nil {
		return nil
	}
	pr := *c.stalled
	c.stalled = nil
	return c.request(pr)
}

// #endregion

// #region start-next

// startNext begins the head of the block queue when playback is free.
func (c *Controller) startNext(now time.Time) error {
	if len(c.queue) == 0 {
		return nil
	}
	if c.disp != nil && !c.disp.Done() {
		return nil
	}
	block := c.queue[0]
	c.queue = c.queue[1:]
	d, err := dispatch.Start(block, c.sink, now)
	if err != nil {
		return err
	}
	c.disp = d
	log.Printf("[LOOP] started %s (%s, %dms)", block.ID, block.Kind, block.TotalDurationMs)
	return nil
}

// #endregion

// #region persistence

func (c *Controller) graceWindow() time.Duration {
	return time.Duration(c.cfg.Lesson.GraceWindowMs) * time.Millisecond
}

// eventTime prefers the collaborator's wall-clock stamp when present.
func (c *Controller) eventTime(at time.Time) time.Time {
	if at.IsZero() {
		return c.now()
	}
	return at
}

func (c *Controller) checkpoint(trigger, reason string) {
	if c.store == nil {
		return
	}
	sctx := c.Context()
	cp, err := c.store.SaveCheckpoint(sctx)
	if err != nil {
		log.Printf("[LOOP] checkpoint failed: %v", err)
		return
	}
	if err := logging.LogTransition(c.store.DB(), logging.TransitionEntry{
		SessionID:    sctx.SessionID,
		CheckpointID: cp.CheckpointID,
		TriggerType:  trigger,
		FromPhase:    string(sctx.CurrentPhase),
		ToPhase:      string(sctx.CurrentPhase),
		TopicIndex:   sctx.CurrentTopicIndex,
		Reason:       reason,
	}); err != nil {
		log.Printf("[LOOP] transition log failed: %v", err)
	}
}

func (c *Controller) logTransition(trigger string, from, to session.Phase, reason, detail string) {
	sctx := c.Context()
	log.Printf("[LESSON] %s: %s → %s (topic %d)", trigger, from, to, sctx.CurrentTopicIndex)
	if c.store == nil {
		return
	}
	if err := logging.LogTransition(c.store.DB(), logging.TransitionEntry{
		SessionID:   sctx.SessionID,
		TriggerType: trigger,
		FromPhase:   string(from),
		ToPhase:     string(to),
		TopicIndex:  sctx.CurrentTopicIndex,
		DetailJSON:  detail,
		Reason:      reason,
	}); err != nil {
		log.Printf("[LOOP] transition log failed: %v", err)
	}
}

// eventDetail serializes the triggering event for transition_log so a
// session's inputs can be reconstructed later.
func eventDetail(ev lesson.Event) string {
	rec := logging.EventRecord{Kind: ev.Kind()}
	switch e := ev.(type) {
	case lesson.EventBlockPlayed:
		rec.BlockID = e.BlockID
	case lesson.EventGraceElapsed:
		rec.BlockID = e.BlockID
	case lesson.EventSubmission:
		passed := e.Result.Passed
		rec.Passed = &passed
	case lesson.EventInterruption:
		rec.Utterance = e.Utterance
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	return string(raw)
}

// #endregion
