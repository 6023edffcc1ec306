// Package runlog persists a run's full record to disk: run.json with
// run-level metadata plus one stages/<name>.json per artifact. The log
// is what an operator reviews before publishing a post, and what keeps
// a degraded run auditable after the fact.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/pipeline"
)

// RunRecord captures run-level metadata.
type RunRecord struct {
	ID             string    `json:"id"`
	Topic          string    `json:"topic"`
	Status         string    `json:"status"`
	Stages         []string  `json:"stages"`
	Fallbacks      []string  `json:"fallbacks,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	DurationMillis int64     `json:"duration_ms"`
}

// StageRecord captures one stage's artifact.
type StageRecord struct {
	Name          string         `json:"name"`
	Provenance    string         `json:"provenance"`
	SchemaVersion int            `json:"schema_version"`
	Hash          string         `json:"hash"`
	CreatedAt     time.Time      `json:"created_at"`
	Payload       map[string]any `json:"payload"`
}

// Writer writes run records to disk.
type Writer struct {
	baseDir string
	runDir  string
}

// NewWriter creates a run log writer rooted at baseDir/runID.
func NewWriter(baseDir, runID string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(filepath.Join(runDir, "stages"), 0755); err != nil {
		return nil, err
	}
	return &Writer{baseDir: baseDir, runDir: runDir}, nil
}

// RunDir returns the run directory path.
func (w *Writer) RunDir() string {
	return w.runDir
}

// Record writes the complete run: run.json plus every stage artifact.
func (w *Writer) Record(id string, state *pipeline.RunState) error {
	if state == nil {
		return fmt.Errorf("run state is required")
	}
	rec := RunRecord{
		ID:             id,
		Topic:          state.Topic,
		Status:         string(state.Status),
		Stages:         state.Order,
		Fallbacks:      state.FallbackStages(),
		StartedAt:      state.StartedAt,
		FinishedAt:     state.FinishedAt,
		DurationMillis: state.FinishedAt.Sub(state.StartedAt).Milliseconds(),
	}
	if err := w.WriteRun(rec); err != nil {
		return err
	}
	for _, name := range state.Order {
		a, ok := state.Artifact(name)
		if !ok {
			continue
		}
		if err := w.WriteStage(a); err != nil {
			return err
		}
	}
	return nil
}

// WriteRun writes run metadata to run.json.
func (w *Writer) WriteRun(record RunRecord) error {
	return writeJSON(filepath.Join(w.runDir, "run.json"), record)
}

// WriteStage writes one artifact to stages/<stage>.json.
func (w *Writer) WriteStage(a *artifact.Artifact) error {
	if a == nil {
		return fmt.Errorf("artifact is required")
	}
	rec := StageRecord{
		Name:          a.Stage,
		Provenance:    string(a.Provenance),
		SchemaVersion: a.SchemaVersion,
		Hash:          a.Hash,
		CreatedAt:     a.CreatedAt,
		Payload:       a.Payload,
	}
	path := filepath.Join(w.runDir, "stages", fmt.Sprintf("%s.json", rec.Name))
	return writeJSON(path, rec)
}

// NewRunID builds a unique, filesystem-safe run identifier from the
// topic and the wall clock.
func NewRunID(topic string, now time.Time) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, topic)
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		slug = "run"
	}
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102-150405"), slug)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
