package publish

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/redcube-studio/postforge/pkg/artifact"
)

func TestDraftFrom(t *testing.T) {
	design, err := artifact.New("design", 1, "cold brew", artifact.ProvenanceSuccess, map[string]any{
		"titles":   []any{"Cold brew, decoded", "Second choice"},
		"caption":  "Everything in one post.",
		"hashtags": []any{"#coffee", "#coldbrew"},
		"images":   []any{},
	})
	if err != nil {
		t.Fatalf("build artifact: %v", err)
	}

	d, err := DraftFrom(design, []string{"/out/page_01.png"})
	if err != nil {
		t.Fatalf("DraftFrom: %v", err)
	}
	if d.Title != "Cold brew, decoded" {
		t.Fatalf("title = %q", d.Title)
	}
	if d.Body != "Everything in one post." {
		t.Fatalf("body = %q", d.Body)
	}
	if len(d.Tags) != 2 || d.Tags[0] != "#coffee" {
		t.Fatalf("tags = %v", d.Tags)
	}

	if _, err := DraftFrom(design, nil); err == nil {
		t.Fatal("expected error with no images")
	}
	if _, err := DraftFrom(nil, []string{"x"}); err == nil {
		t.Fatal("expected error with nil design")
	}
}

func TestDraftFromFallsBackToTopic(t *testing.T) {
	design, err := artifact.New("design", 1, "cold brew", artifact.ProvenanceFallback, map[string]any{
		"titles": []any{},
	})
	if err != nil {
		t.Fatalf("build artifact: %v", err)
	}
	d, err := DraftFrom(design, []string{"p.png"})
	if err != nil {
		t.Fatalf("DraftFrom: %v", err)
	}
	if d.Title != "cold brew" {
		t.Fatalf("title = %q, want topic", d.Title)
	}
}

func TestDryRunPublisher(t *testing.T) {
	src := filepath.Join(t.TempDir(), "page_01.png")
	if err := os.WriteFile(src, []byte("not really a png"), 0o644); err != nil {
		t.Fatalf("write source image: %v", err)
	}

	dir := t.TempDir()
	p := NewDryRunPublisher(dir)
	if p.Name() != "dry-run" {
		t.Fatalf("name = %q", p.Name())
	}

	draft := Draft{Title: "T", Body: "B", Tags: []string{"#t"}, Images: []string{src}}
	if err := p.Publish(context.Background(), draft); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "draft.json"))
	if err != nil {
		t.Fatalf("read draft.json: %v", err)
	}
	var got Draft
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode draft.json: %v", err)
	}
	if got.Title != "T" || len(got.Images) != 1 || got.Images[0] != "page_01.png" {
		t.Fatalf("draft = %+v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "page_01.png")); err != nil {
		t.Fatalf("copied image missing: %v", err)
	}
}

func TestDryRunPublisherMissingImage(t *testing.T) {
	p := NewDryRunPublisher(t.TempDir())
	err := p.Publish(context.Background(), Draft{Title: "T", Images: []string{"/nonexistent/p.png"}})
	if err == nil {
		t.Fatal("expected error for missing source image")
	}
}
