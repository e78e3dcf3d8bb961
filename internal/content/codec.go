package content

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"

	"github.com/chalktalk/lesson-controller/internal/session"
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region grpc-codec

// codecName is the gRPC content-subtype the planner service speaks.
const codecName = "json"

// jsonCodec is a gRPC codec for plain JSON payloads, so the client
// needs no generated bindings and the planner service can be written in
// any language.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// #endregion

// #region wire-types

// blockRequest is the wire form of a NextBlock call.
type blockRequest struct {
	SessionContext session.Context `json:"session_context"`
	BlockKind      string          `json:"block_kind"`
}

// interruptionRequest is the wire form of an InterruptionResponse call.
type interruptionRequest struct {
	SessionContext session.Context `json:"session_context"`
	Utterance      string          `json:"utterance"`
}

// remedialRequest is the wire form of a RemedialBlock call.
type remedialRequest struct {
	SessionContext session.Context `json:"session_context"`
	Passed         bool            `json:"passed"`
	Indeterminate  bool            `json:"indeterminate"`
	Feedback       string          `json:"feedback,omitempty"`
}

// blockResponse is the wire form of a returned teaching block.
type blockResponse struct {
	ID              string          `json:"id"`
	Kind            string          `json:"kind"`
	NarrationText   string          `json:"narration_text"`
	SpeechMarks     []speechMarkDTO `json:"speech_marks"`
	VisualEvents    []visualDTO     `json:"visual_events"`
	TotalDurationMs uint64          `json:"total_duration_ms"`
	InteractionMode string          `json:"interaction_mode"`
	AutoAdvance     bool            `json:"auto_advance"`
}

type speechMarkDTO struct {
	OffsetMs uint64 `json:"offset_ms"`
	Kind     string `json:"kind"`
	Value    string `json:"value"`
}

type visualDTO struct {
	OffsetMs uint64             `json:"offset_ms"`
	Surface  string             `json:"surface"`
	Kind     string             `json:"kind"` // "stroke_path" | "code_token" | "syllabus_reveal"
	Stroke   *strokeDTO         `json:"stroke,omitempty"`
	Code     *codeTokenDTO      `json:"code,omitempty"`
	Syllabus *syllabusRevealDTO `json:"syllabus,omitempty"`
}

type strokeDTO struct {
	PathData string  `json:"path_data"`
	Width    float32 `json:"width"`
}

type codeTokenDTO struct {
	Text string `json:"text"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

type syllabusRevealDTO struct {
	ItemIndex int    `json:"item_index"`
	Title     string `json:"title"`
}

// #endregion

// #region wire-conversion

// toBlock converts a wire block into the domain type, decoding the
// tagged payload union.
func (r *blockResponse) toBlock() (timeline.TeachingBlock, error) {
	b := timeline.TeachingBlock{
		ID:              r.ID,
		Kind:            timeline.BlockKind(r.Kind),
		NarrationText:   r.NarrationText,
		TotalDurationMs: r.TotalDurationMs,
		InteractionMode: timeline.InteractionMode(r.InteractionMode),
		AutoAdvance:     r.AutoAdvance,
	}
	for _, m := range r.SpeechMarks {
		b.SpeechMarks = append(b.SpeechMarks, timeline.SpeechMark{
			OffsetMs: m.OffsetMs,
			Kind:     timeline.MarkKind(m.Kind),
			Value:    m.Value,
		})
	}
	for i, v := range r.VisualEvents {
		ev := timeline.VisualEvent{
			OffsetMs: v.OffsetMs,
			Surface:  timeline.Surface(v.Surface),
		}
		switch v.Kind {
		case "stroke_path":
			if v.Stroke == nil {
				return timeline.TeachingBlock{}, fmt.Errorf("visual event %d: stroke payload missing", i)
			}
			ev.Payload = timeline.StrokePath{PathData: v.Stroke.PathData, Width: v.Stroke.Width}
		case "code_token":
			if v.Code == nil {
				return timeline.TeachingBlock{}, fmt.Errorf("visual event %d: code payload missing", i)
			}
			ev.Payload = timeline.CodeToken{Text: v.Code.Text, Line: v.Code.Line, Col: v.Code.Col}
		case "syllabus_reveal":
			if v.Syllabus == nil {
				return timeline.TeachingBlock{}, fmt.Errorf("visual event %d: syllabus payload missing", i)
			}
			ev.Payload = timeline.SyllabusReveal{ItemIndex: v.Syllabus.ItemIndex, Title: v.Syllabus.Title}
		default:
			return timeline.TeachingBlock{}, fmt.Errorf("visual event %d: unknown payload kind %q", i, v.Kind)
		}
		b.VisualEvents = append(b.VisualEvents, ev)
	}
	return b, nil
}

// #endregion
