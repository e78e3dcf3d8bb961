package timeline

// #region block-kind

// BlockKind classifies a teaching block by its instructional role.
type BlockKind string

const (
	KindSyllabus BlockKind = "syllabus"
	KindTheory   BlockKind = "theory"
	KindDemo     BlockKind = "demo"
	KindTask     BlockKind = "task"
)

// #endregion

// #region mark-kind

// MarkKind distinguishes word-level from sentence-level speech marks.
type MarkKind string

const (
	MarkWord     MarkKind = "word"
	MarkSentence MarkKind = "sentence"
)

// #endregion

// #region surface

// Surface identifies the render sub-surface a visual event targets.
type Surface string

const (
	SurfaceWhiteboard Surface = "whiteboard"
	SurfaceEditor     Surface = "editor"
)

// #endregion

// #region interaction-mode

// InteractionMode controls whether the learner can edit during a block.
type InteractionMode string

const (
	ModeLocked                     InteractionMode = "locked"
	ModeEditableAwaitingSubmission InteractionMode = "editable_awaiting_submission"
)

// #endregion

// #region speech-mark

// SpeechMark is one timing mark attached to the narration audio.
type SpeechMark struct {
	OffsetMs uint64
	Kind     MarkKind
	Value    string
}

// #endregion

// #region visual-payload

// VisualPayload is the closed set of things a visual event can reveal.
// The sealed method keeps the variant set exhaustive at compile time.
type VisualPayload interface {
	visualPayload()
	PayloadKind() string
}

// StrokePath is a handwriting stroke segment for the whiteboard.
type StrokePath struct {
	PathData string  // SVG-style path commands
	Width    float32 // stroke width in board units
}

// CodeToken is one character-typed token for the editor surface.
type CodeToken struct {
	Text string
	Line int
	Col  int
}

// SyllabusReveal uncovers one syllabus entry on the whiteboard.
type SyllabusReveal struct {
	ItemIndex int
	Title     string
}

func (StrokePath) visualPayload()     {}
func (CodeToken) visualPayload()      {}
func (SyllabusReveal) visualPayload() {}

func (StrokePath) PayloadKind() string     { return "stroke_path" }
func (CodeToken) PayloadKind() string      { return "code_token" }
func (SyllabusReveal) PayloadKind() string { return "syllabus_reveal" }

// #endregion

// #region visual-event

// VisualEvent is one timestamped reveal instruction for the renderer.
type VisualEvent struct {
	OffsetMs uint64
	Surface  Surface
	Payload  VisualPayload
}

// #endregion

// #region teaching-block

// TeachingBlock is one sequenced unit of instruction. Its timeline is
// immutable once constructed; interruption responses always build a new
// block rather than mutating an existing one.
type TeachingBlock struct {
	ID              string
	Kind            BlockKind
	NarrationText   string
	SpeechMarks     []SpeechMark
	VisualEvents    []VisualEvent
	TotalDurationMs uint64
	InteractionMode InteractionMode
	AutoAdvance     bool
}

// #endregion
