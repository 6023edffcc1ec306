package pipeline

import (
	"time"

	"github.com/redcube-studio/postforge/pkg/artifact"
)

// Status is the run's overall state. There is no failed terminal for
// ordinary stage trouble: every stage guarantees an artifact, so a run
// that starts always reaches success or partial failure unless a
// programming defect (invalid fallback, cache write failure) aborts it.
type Status string

const (
	StatusRunning        Status = "running"
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial-failure"
)

// RunState aggregates one pipeline run. It is owned exclusively by the
// runner invocation that created it and is safe to read once Execute
// returns.
type RunState struct {
	Topic      string
	Status     Status
	Order      []string
	Artifacts  map[string]*artifact.Artifact
	StartedAt  time.Time
	FinishedAt time.Time
}

// Artifact returns the recorded artifact for a stage, if the stage has
// completed.
func (s *RunState) Artifact(stage string) (*artifact.Artifact, bool) {
	a, ok := s.Artifacts[stage]
	return a, ok
}

// Final returns the last completed stage's artifact. The renderer
// consumes this after a full run.
func (s *RunState) Final() (*artifact.Artifact, bool) {
	if len(s.Order) == 0 {
		return nil, false
	}
	return s.Artifact(s.Order[len(s.Order)-1])
}

// FallbackStages lists the stages that resolved via fallback synthesis,
// in execution order. Callers inspect this before deciding to publish.
func (s *RunState) FallbackStages() []string {
	var out []string
	for _, name := range s.Order {
		if a, ok := s.Artifacts[name]; ok && a.FromFallback() {
			out = append(out, name)
		}
	}
	return out
}

func (s *RunState) record(stage string, a *artifact.Artifact) {
	s.Artifacts[stage] = a
	if a.FromFallback() {
		s.Status = StatusPartialFailure
	}
}

func (s *RunState) finish() {
	s.FinishedAt = time.Now().UTC()
	if s.Status == StatusRunning {
		s.Status = StatusSuccess
	}
}
