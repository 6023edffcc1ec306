package pipeline

import (
	"strings"
	"testing"
)

func TestDefaultSummary(t *testing.T) {
	s := DefaultSummary(map[string]any{
		"title":  "bath-time basics",
		"pages":  float64(4),
		"draft":  true,
		"tags":   []any{"baby", "care", "water"},
		"tone":   map[string]any{"voice": "warm", "playful": true},
		"scores": []any{float64(1), float64(2)},
	})

	for _, want := range []string{
		"title: bath-time basics",
		"pages: 4",
		"draft: true",
		"tags: 3 items",
		"  - baby",
		"tone: {2 fields}",
		"scores: 2 items",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}

	// Keys render in sorted order so summaries are stable.
	if strings.Index(s, "draft:") > strings.Index(s, "pages:") {
		t.Fatalf("summary keys not sorted:\n%s", s)
	}
}

func TestDefaultSummaryTruncatesLongLists(t *testing.T) {
	items := make([]any, 20)
	for i := range items {
		items[i] = "item"
	}
	s := DefaultSummary(map[string]any{"list": items})
	if got := strings.Count(s, "  - item"); got != 5 {
		t.Fatalf("expected 5 previewed items, got %d:\n%s", got, s)
	}
}
