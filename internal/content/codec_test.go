package content

import (
	"encoding/json"
	"testing"

	"github.com/chalktalk/lesson-controller/internal/timeline"
)

const sampleBlockJSON = `{
	"id": "theory-7",
	"kind": "theory",
	"narration_text": "let us begin",
	"speech_marks": [
		{"offset_ms": 0, "kind": "word", "value": "let"},
		{"offset_ms": 400, "kind": "word", "value": "us"},
		{"offset_ms": 800, "kind": "word", "value": "begin"},
		{"offset_ms": 1200, "kind": "sentence", "value": "let us begin"}
	],
	"visual_events": [
		{"offset_ms": 200, "surface": "whiteboard", "kind": "stroke_path",
		 "stroke": {"path_data": "M0 0 L40 12", "width": 2}},
		{"offset_ms": 600, "surface": "editor", "kind": "code_token",
		 "code": {"text": "x :=", "line": 1, "col": 0}},
		{"offset_ms": 900, "surface": "whiteboard", "kind": "syllabus_reveal",
		 "syllabus": {"item_index": 0, "title": "variables"}}
	],
	"total_duration_ms": 1200,
	"interaction_mode": "locked",
	"auto_advance": true
}`

func TestBlockResponseDecodesPayloadUnion(t *testing.T) {
	var resp blockResponse
	if err := json.Unmarshal([]byte(sampleBlockJSON), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	b, err := resp.toBlock()
	if err != nil {
		t.Fatalf("toBlock failed: %v", err)
	}

	if b.ID != "theory-7" || b.Kind != timeline.KindTheory {
		t.Fatalf("header mismatch: %s %s", b.ID, b.Kind)
	}
	if len(b.SpeechMarks) != 4 || b.SpeechMarks[3].Kind != timeline.MarkSentence {
		t.Fatalf("speech marks mismatch: %+v", b.SpeechMarks)
	}
	if len(b.VisualEvents) != 3 {
		t.Fatalf("expected 3 visual events, got %d", len(b.VisualEvents))
	}

	stroke, ok := b.VisualEvents[0].Payload.(timeline.StrokePath)
	if !ok || stroke.PathData != "M0 0 L40 12" {
		t.Fatalf("stroke payload mismatch: %+v", b.VisualEvents[0].Payload)
	}
	code, ok := b.VisualEvents[1].Payload.(timeline.CodeToken)
	if !ok || code.Text != "x :=" {
		t.Fatalf("code payload mismatch: %+v", b.VisualEvents[1].Payload)
	}
	reveal, ok := b.VisualEvents[2].Payload.(timeline.SyllabusReveal)
	if !ok || reveal.Title != "variables" {
		t.Fatalf("syllabus payload mismatch: %+v", b.VisualEvents[2].Payload)
	}

	// The decoded block passes timeline validation.
	if _, err := timeline.New(b); err != nil {
		t.Fatalf("decoded block is malformed: %v", err)
	}
}

func TestBlockResponseRejectsMissingPayload(t *testing.T) {
	resp := blockResponse{
		ID:   "bad-1",
		Kind: "theory",
		VisualEvents: []visualDTO{
			{OffsetMs: 0, Surface: "whiteboard", Kind: "stroke_path"},
		},
	}
	if _, err := resp.toBlock(); err == nil {
		t.Fatal("expected error for missing stroke payload")
	}
}

func TestBlockResponseRejectsUnknownPayloadKind(t *testing.T) {
	resp := blockResponse{
		ID:   "bad-2",
		Kind: "theory",
		VisualEvents: []visualDTO{
			{OffsetMs: 0, Surface: "whiteboard", Kind: "hologram"},
		},
	}
	if _, err := resp.toBlock(); err == nil {
		t.Fatal("expected error for unknown payload kind")
	}
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	req := blockRequest{BlockKind: "theory"}
	data, err := c.Marshal(req)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var got blockRequest
	if err := c.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.BlockKind != "theory" {
		t.Fatalf("round trip mismatch: %q", got.BlockKind)
	}
	if c.Name() != "json" {
		t.Fatalf("unexpected codec name %q", c.Name())
	}
}
