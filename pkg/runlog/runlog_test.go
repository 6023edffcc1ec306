package runlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/pipeline"
)

func TestWriterRecord(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, "run-123")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	good, err := artifact.New("persona", 1, "tea", artifact.ProvenanceSuccess, map[string]any{"identity": "x"})
	if err != nil {
		t.Fatalf("build artifact: %v", err)
	}
	degraded, err := artifact.New("strategy", 1, "tea", artifact.ProvenanceFallback, map[string]any{"core_message": "y"})
	if err != nil {
		t.Fatalf("build artifact: %v", err)
	}

	started := time.Now().UTC().Add(-2 * time.Second)
	state := &pipeline.RunState{
		Topic:  "tea",
		Status: pipeline.StatusPartialFailure,
		Order:  []string{"persona", "strategy"},
		Artifacts: map[string]*artifact.Artifact{
			"persona":  good,
			"strategy": degraded,
		},
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}

	if err := writer.Record("run-123", state); err != nil {
		t.Fatalf("record: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(writer.RunDir(), "run.json"))
	if err != nil {
		t.Fatalf("missing run.json: %v", err)
	}
	var run RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		t.Fatalf("decode run.json: %v", err)
	}
	if run.Status != "partial-failure" || len(run.Fallbacks) != 1 || run.Fallbacks[0] != "strategy" {
		t.Fatalf("run record = %+v", run)
	}
	if run.DurationMillis != 2000 {
		t.Fatalf("duration = %d", run.DurationMillis)
	}

	data, err = os.ReadFile(filepath.Join(writer.RunDir(), "stages", "strategy.json"))
	if err != nil {
		t.Fatalf("missing stage file: %v", err)
	}
	var stage StageRecord
	if err := json.Unmarshal(data, &stage); err != nil {
		t.Fatalf("decode stage file: %v", err)
	}
	if stage.Provenance != "fallback" || stage.Hash != degraded.Hash {
		t.Fatalf("stage record = %+v", stage)
	}
}

func TestNewWriterValidation(t *testing.T) {
	if _, err := NewWriter("", "id"); err == nil {
		t.Fatal("expected error for empty base dir")
	}
	if _, err := NewWriter(t.TempDir(), ""); err == nil {
		t.Fatal("expected error for empty run ID")
	}
}

func TestNewRunID(t *testing.T) {
	now := time.Date(2026, 3, 9, 14, 30, 5, 0, time.UTC)
	got := NewRunID("Morning Tea Rituals!", now)
	if got != "20260309-143005-morning-tea-rituals" {
		t.Fatalf("run ID = %q", got)
	}
	if NewRunID("标题", now) != "20260309-143005-run" {
		t.Fatalf("non-latin topic should slug to run, got %q", NewRunID("标题", now))
	}
}
