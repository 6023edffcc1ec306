package schema

import (
	"errors"
	"testing"
)

func postSchema() Schema {
	return Schema{
		Version: 1,
		Fields: []Field{
			{Name: "title", Kind: String, Required: true},
			{Name: "page_count", Kind: Int, Required: true},
			{Name: "tags", Kind: List, Elem: String},
			{Name: "pages", Kind: List, Elem: Object, Fields: []Field{
				{Name: "heading", Kind: String, Required: true},
				{Name: "body", Kind: String, Required: true},
			}},
			{Name: "tone", Kind: Object, Fields: []Field{
				{Name: "voice", Kind: String, Required: true},
				{Name: "playful", Kind: Bool},
			}},
		},
	}
}

func TestValidateAcceptsWellFormedPayload(t *testing.T) {
	payload := map[string]any{
		"title":      "bath-time basics",
		"page_count": float64(3),
		"tags":       []any{"baby", "care"},
		"pages": []any{
			map[string]any{"heading": "why", "body": "because"},
		},
		"tone":  map[string]any{"voice": "warm", "playful": true},
		"extra": "undeclared keys are allowed",
	}
	if err := postSchema().Validate(payload); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateReportsAllViolations(t *testing.T) {
	payload := map[string]any{
		"page_count": "three",
		"tags":       []any{"ok", float64(1)},
		"pages":      []any{map[string]any{"heading": "h"}},
		"tone":       map[string]any{"playful": "yes"},
	}
	err := postSchema().Validate(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	// missing title, non-integer page_count, non-string tag, missing
	// pages[0].body, missing tone.voice, non-bool tone.playful
	if len(verr.Violations) != 6 {
		t.Fatalf("expected 6 violations, got %d: %v", len(verr.Violations), verr.Violations)
	}
}

func TestValidateRejectsFractionalInt(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "n", Kind: Int, Required: true}}}
	if err := s.Validate(map[string]any{"n": float64(2.5)}); err == nil {
		t.Fatal("expected fractional value to fail Int validation")
	}
	if err := s.Validate(map[string]any{"n": float64(2)}); err != nil {
		t.Fatalf("integral float64 should pass: %v", err)
	}
}

func TestSynthesizeIsSchemaValid(t *testing.T) {
	s := postSchema()
	payload := s.Synthesize("bath-time basics")
	if err := s.Validate(payload); err != nil {
		t.Fatalf("synthesized payload must validate: %v", err)
	}
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	s := postSchema()
	a := s.Synthesize("topic-a")
	b := s.Synthesize("topic-a")
	if a["title"] != b["title"] || a["page_count"] != b["page_count"] {
		t.Fatalf("synthesis not deterministic: %v vs %v", a, b)
	}
	if a["title"] != "topic-a" {
		t.Fatalf("string default should carry topic, got %v", a["title"])
	}
}

func TestSynthesizeUsesDefaults(t *testing.T) {
	s := Schema{Fields: []Field{
		{Name: "voice", Kind: String, Default: "warm and direct"},
		{Name: "pages", Kind: List, Elem: String, Default: []any{"cover"}},
	}}
	payload := s.Synthesize("t")
	if payload["voice"] != "warm and direct" {
		t.Fatalf("default not used: %v", payload["voice"])
	}
	if err := s.Validate(payload); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
