package content

import (
	"context"
	"errors"

	"github.com/chalktalk/lesson-controller/internal/lesson"
	"github.com/chalktalk/lesson-controller/internal/session"
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region errors

// ErrContentUnavailable marks a transient planning-service failure. The
// controller stalls the current phase and retries on the next external
// signal; it never skips a phase.
var ErrContentUnavailable = errors.New("content unavailable")

// #endregion

// #region source-interface

// Source abstracts the external content-planning collaborator. Blocks
// arrive with narration timing marks already attached; the controller
// performs no synthesis.
type Source interface {
	// NextBlock produces the block for the phase the context is in.
	NextBlock(ctx context.Context, sctx session.Context, kind timeline.BlockKind) (timeline.TeachingBlock, error)
	// InterruptionResponse produces a contextual reply to a learner
	// utterance that suspended playback.
	InterruptionResponse(ctx context.Context, sctx session.Context, utterance string) (timeline.TeachingBlock, error)
	// RemedialBlock produces an explanation of a failed submission.
	RemedialBlock(ctx context.Context, sctx session.Context, result lesson.SubmissionResult) (timeline.TeachingBlock, error)
}

// #endregion
