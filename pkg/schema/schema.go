// Package schema declares the output shape of a pipeline stage and
// validates payloads against it. It also synthesizes deterministic
// schema-valid default payloads, which is what guarantees the pipeline
// can always produce an artifact for a stage even when generation or
// extraction fails.
package schema

import (
	"fmt"
	"math"
	"strings"
)

// Kind identifies a field's value type within a payload.
type Kind string

const (
	String Kind = "string"
	Int    Kind = "int"
	Number Kind = "number"
	Bool   Kind = "bool"
	List   Kind = "list"
	Object Kind = "object"
)

// Field describes one named entry in a payload.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Default is used by Synthesize when set. It must itself satisfy the
	// field's kind.
	Default any
	// Elem is the element kind for List fields. Lists of objects use
	// Elem=Object together with Fields for the element shape.
	Elem Kind
	// Fields is the nested shape for Object fields (or list elements).
	Fields []Field
}

// Schema is a stage's declared output shape.
type Schema struct {
	Version int
	Fields  []Field
}

// ValidationError reports every violation found in a payload.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Violations, "; "))
}

// Validate checks a payload against the schema. Keys not declared in the
// schema are permitted; declared keys must match their kind, and required
// keys must be present and non-null.
func (s Schema) Validate(payload map[string]any) error {
	var violations []string
	validateFields("", s.Fields, payload, &violations)
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func validateFields(prefix string, fields []Field, payload map[string]any, violations *[]string) {
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		v, ok := payload[f.Name]
		if !ok || v == nil {
			if f.Required {
				*violations = append(*violations, fmt.Sprintf("%s: required field missing", path))
			}
			continue
		}
		validateValue(path, f.Kind, f, v, violations)
	}
}

func validateValue(path string, kind Kind, f Field, v any, violations *[]string) {
	switch kind {
	case String:
		if _, ok := v.(string); !ok {
			*violations = append(*violations, fmt.Sprintf("%s: expected string, got %T", path, v))
		}
	case Int:
		// JSON-normalized payloads carry numbers as float64.
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			*violations = append(*violations, fmt.Sprintf("%s: expected integer, got %T(%v)", path, v, v))
		}
	case Number:
		if _, ok := v.(float64); !ok {
			*violations = append(*violations, fmt.Sprintf("%s: expected number, got %T", path, v))
		}
	case Bool:
		if _, ok := v.(bool); !ok {
			*violations = append(*violations, fmt.Sprintf("%s: expected bool, got %T", path, v))
		}
	case List:
		items, ok := v.([]any)
		if !ok {
			*violations = append(*violations, fmt.Sprintf("%s: expected list, got %T", path, v))
			return
		}
		if f.Elem == "" {
			return
		}
		for i, item := range items {
			validateValue(fmt.Sprintf("%s[%d]", path, i), f.Elem, Field{Kind: f.Elem, Fields: f.Fields}, item, violations)
		}
	case Object:
		obj, ok := v.(map[string]any)
		if !ok {
			*violations = append(*violations, fmt.Sprintf("%s: expected object, got %T", path, v))
			return
		}
		validateFields(path, f.Fields, obj, violations)
	default:
		*violations = append(*violations, fmt.Sprintf("%s: unknown kind %q", path, kind))
	}
}

// Synthesize builds a deterministic payload that satisfies the schema,
// using field defaults where declared and zero values elsewhere. String
// fields without a default carry the topic so synthesized content stays
// traceable to the run that produced it. Synthesis is total: it succeeds
// for every well-formed schema and never consults a generator.
func (s Schema) Synthesize(topic string) map[string]any {
	return synthesizeFields(s.Fields, topic)
}

func synthesizeFields(fields []Field, topic string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.Name] = synthesizeValue(f, topic)
	}
	return out
}

func synthesizeValue(f Field, topic string) any {
	if f.Default != nil {
		return f.Default
	}
	switch f.Kind {
	case String:
		return topic
	case Int, Number:
		return float64(0)
	case Bool:
		return false
	case List:
		return []any{}
	case Object:
		return synthesizeFields(f.Fields, topic)
	default:
		return nil
	}
}
