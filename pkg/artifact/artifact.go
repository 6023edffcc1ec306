package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Provenance records how an artifact's payload was produced.
type Provenance string

const (
	// ProvenanceSuccess marks a payload extracted from a real generation response.
	ProvenanceSuccess Provenance = "success"
	// ProvenanceFallback marks a payload built by deterministic fallback synthesis.
	ProvenanceFallback Provenance = "fallback"
)

// Artifact is the structured, schema-valid output of one pipeline stage.
// The payload satisfies the stage's declared schema regardless of
// provenance; downstream stages distinguish the two only by the
// Provenance field.
type Artifact struct {
	Stage         string         `json:"stage"`
	SchemaVersion int            `json:"schema_version"`
	Topic         string         `json:"topic"`
	Provenance    Provenance     `json:"provenance"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
	Hash          string         `json:"hash"`
}

// New creates an Artifact with a normalized payload and computed hash.
// The payload is round-tripped through JSON so that serialization is
// lossless: an artifact read back from the cache compares equal to the
// one that was written.
func New(stage string, schemaVersion int, topic string, prov Provenance, payload map[string]any) (*Artifact, error) {
	normalized, err := normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("artifact payload for stage %s: %w", stage, err)
	}
	a := &Artifact{
		Stage:         stage,
		SchemaVersion: schemaVersion,
		Topic:         topic,
		Provenance:    prov,
		Payload:       normalized,
		CreatedAt:     time.Now().UTC(),
	}
	a.Hash = a.computeHash()
	return a, nil
}

// FromFallback reports whether the payload was synthesized rather than generated.
func (a *Artifact) FromFallback() bool {
	return a.Provenance == ProvenanceFallback
}

// Marshal serializes the artifact for cache storage.
func (a *Artifact) Marshal() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// Unmarshal deserializes an artifact previously produced by Marshal.
func Unmarshal(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Stage == "" {
		return nil, fmt.Errorf("decode artifact: missing stage name")
	}
	return &a, nil
}

func (a *Artifact) computeHash() string {
	h := sha256.New()
	h.Write([]byte(a.Stage))
	h.Write([]byte(a.Topic))
	h.Write([]byte(a.Provenance))
	h.Write(canonicalJSON(a.Payload))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// normalize round-trips a payload through JSON so nested values use the
// canonical JSON types (float64 numbers, []any lists, map[string]any objects).
func normalize(payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// canonicalJSON encodes a value with sorted object keys so the hash is
// independent of map iteration order.
func canonicalJSON(v any) []byte {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			buf = append(buf, canonicalJSON(t[k])...)
		}
		return append(buf, '}')
	case []any:
		buf := []byte{'['}
		for i, e := range t {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, canonicalJSON(e)...)
		}
		return append(buf, ']')
	default:
		b, _ := json.Marshal(t)
		return b
	}
}
