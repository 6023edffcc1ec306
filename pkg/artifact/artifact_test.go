package artifact

import (
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	a, err := New("design", 1, "bath-time basics", ProvenanceSuccess, map[string]any{
		"titles": []any{"five bath-time basics", "getting bath time right"},
		"pages":  float64(4),
		"body":   map[string]any{"hook": "ever wondered?", "sections": []any{"a", "b"}},
	})
	if err != nil {
		t.Fatalf("new artifact: %v", err)
	}

	data, err := a.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	b, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !b.CreatedAt.Equal(a.CreatedAt) {
		t.Fatalf("created_at changed: %v != %v", b.CreatedAt, a.CreatedAt)
	}
	if b.Hash != a.Hash || b.Stage != a.Stage || b.Topic != a.Topic || b.Provenance != a.Provenance {
		t.Fatalf("metadata changed: %+v != %+v", b, a)
	}
	if !reflect.DeepEqual(b.Payload, a.Payload) {
		t.Fatalf("payload changed:\n%v\n%v", b.Payload, a.Payload)
	}
}

func TestNormalizePayloadTypes(t *testing.T) {
	// Construction normalizes to JSON types, so ints come back as float64
	// and typed slices as []any.
	a, err := New("persona", 1, "t", ProvenanceFallback, map[string]any{
		"count": 3,
		"tags":  []string{"x", "y"},
	})
	if err != nil {
		t.Fatalf("new artifact: %v", err)
	}
	if _, ok := a.Payload["count"].(float64); !ok {
		t.Fatalf("count not normalized to float64: %T", a.Payload["count"])
	}
	if _, ok := a.Payload["tags"].([]any); !ok {
		t.Fatalf("tags not normalized to []any: %T", a.Payload["tags"])
	}
}

func TestHashStableAcrossKeyOrder(t *testing.T) {
	a, err := New("s", 1, "t", ProvenanceSuccess, map[string]any{"a": 1, "b": 2, "c": 3})
	if err != nil {
		t.Fatalf("new artifact: %v", err)
	}
	b, err := New("s", 1, "t", ProvenanceSuccess, map[string]any{"c": 3, "b": 2, "a": 1})
	if err != nil {
		t.Fatalf("new artifact: %v", err)
	}
	if a.Hash != b.Hash {
		t.Fatalf("hash depends on key order: %s != %s", a.Hash, b.Hash)
	}
}

func TestUnmarshalRejectsMissingStage(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"topic":"t"}`)); err == nil {
		t.Fatal("expected error for artifact without stage name")
	}
	if _, err := Unmarshal([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
