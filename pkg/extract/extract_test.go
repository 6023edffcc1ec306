package extract

import (
	"errors"
	"testing"
)

func TestExtractFencedJSONWithTrailingProse(t *testing.T) {
	raw := "```json\n{\"a\":1}\n```\nSome trailing prose"
	payload, err := Extract(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if payload["a"] != float64(1) {
		t.Fatalf("expected a=1, got %v", payload["a"])
	}
}

func TestExtractPlainJSON(t *testing.T) {
	payload, err := Extract(`  {"title": "bath-time basics", "pages": [1, 2]}  `)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if payload["title"] != "bath-time basics" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestExtractRecoversObjectFromProse(t *testing.T) {
	raw := `Sure! Here is the design you asked for:

{"titles": ["one", "two"], "note": "braces {inside strings} stay put"}

Let me know if you need adjustments.`
	payload, err := Extract(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if payload["note"] != "braces {inside strings} stay put" {
		t.Fatalf("string braces mishandled: %v", payload["note"])
	}
}

func TestExtractNestedObjectViaDepthScan(t *testing.T) {
	raw := `prefix {"outer": {"inner": {"deep": true}}, "n": 2} suffix {"ignored": 1}`
	payload, err := Extract(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	outer, ok := payload["outer"].(map[string]any)
	if !ok {
		t.Fatalf("nested object lost: %v", payload)
	}
	if _, ok := outer["inner"]; !ok {
		t.Fatalf("inner object lost: %v", outer)
	}
	if _, ok := payload["ignored"]; ok {
		t.Fatal("scan should stop at the first balanced object")
	}
}

func TestExtractFenceWithoutLanguageTag(t *testing.T) {
	payload, err := Extract("```\n{\"x\": true}\n```")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if payload["x"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestExtractMalformedInputs(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t "},
		{"prose only", "I could not produce structured output, sorry."},
		{"truncated object", `{"title": "cut off`},
		{"unbalanced", `{"a": {"b": 1}`},
		{"array not object", `[1, 2, 3]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := Extract(tc.raw)
			if err == nil {
				t.Fatalf("expected failure, got payload %v", payload)
			}
			var f *Failure
			if !errors.As(err, &f) {
				t.Fatalf("expected *Failure, got %T", err)
			}
			if f.Raw != tc.raw {
				t.Fatal("failure must carry the raw text")
			}
		})
	}
}
