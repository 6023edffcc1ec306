// Package extract turns raw model output into a structured payload.
// Model responses routinely wrap JSON in fenced code blocks or surround
// it with prose, so extraction runs a three-tier strategy: strip fences
// and parse strictly, then recover the first balanced JSON object by
// depth scanning, then report a typed failure. Malformed input is an
// expected condition here, never a panic.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Failure reports that no structured payload could be recovered from a
// raw response. It carries the raw text so the caller can log or archive it.
type Failure struct {
	Raw    string
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("extraction failed: %s", f.Reason)
}

// Extract parses raw model output into a JSON object payload.
// On failure it returns a *Failure; it never panics and never returns a
// partially decoded payload.
func Extract(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &Failure{Raw: raw, Reason: "empty response"}
	}

	// Tier 1: strict parse after stripping any fenced-code wrapping.
	candidate := stripFences(trimmed)
	if payload, ok := strictParse(candidate); ok {
		return payload, nil
	}

	// Tier 2: balanced-depth scan for the first complete JSON object.
	if sub, ok := balancedObject(trimmed); ok {
		if payload, ok := strictParse(sub); ok {
			return payload, nil
		}
	}

	return nil, &Failure{Raw: raw, Reason: "no parseable JSON object found"}
}

func strictParse(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// stripFences removes a markdown code fence surrounding the payload,
// along with any prose before the opening fence or after the closing one.
// Text without fences is returned unchanged.
func stripFences(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	rest := text[open+3:]
	// Drop an optional language tag on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isLanguageTag(firstLine) {
			rest = rest[nl+1:]
		}
	}
	if close := strings.Index(rest, "```"); close >= 0 {
		rest = rest[:close]
	}
	return strings.TrimSpace(rest)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(s) <= 16
}

// balancedObject returns the substring from the first '{' to its matching
// '}', tracking nesting depth and skipping braces inside JSON strings.
func balancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
