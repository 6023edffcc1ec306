// Package stages defines the fixed post-generation pipeline: seven
// prompt-driven stages that turn a topic string into a rendered-ready
// multi-page HTML post. Stage order is a declared total order; each
// stage consumes digests of earlier artifacts and produces one typed
// artifact of its own.
package stages

import (
	"fmt"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/pipeline"
)

// Stage names, in execution order.
const (
	Persona   = "persona"
	Strategy  = "strategy"
	FactCheck = "factcheck"
	Insight   = "insight"
	Narrative = "narrative"
	Design    = "design"
	Encode    = "encode"
)

// Build assembles the post pipeline. The returned pipeline ends at the
// encode stage; turning its HTML artifact into page images is the
// renderer's job, not a generation stage.
func Build() (*pipeline.Pipeline, error) {
	return pipeline.New([]pipeline.StageDescriptor{
		personaStage(),
		strategyStage(),
		factCheckStage(),
		insightStage(),
		narrativeStage(),
		designStage(),
		encodeStage(),
	})
}

// depPayload returns an upstream payload from the fallback-synthesis
// dependency set, or nil when the stage ran without it.
func depPayload(deps map[string]*artifact.Artifact, name string) map[string]any {
	if a, ok := deps[name]; ok {
		return a.Payload
	}
	return nil
}

// stringField reads a string payload field with a default.
func stringField(payload map[string]any, key, fallback string) string {
	if payload != nil {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// intField reads an integer payload field with a default.
func intField(payload map[string]any, key string, fallback int) int {
	if payload != nil {
		if n, ok := payload[key].(float64); ok && n > 0 {
			return int(n)
		}
	}
	return fallback
}

// listField reads a list payload field.
func listField(payload map[string]any, key string) []any {
	if payload != nil {
		if l, ok := payload[key].([]any); ok {
			return l
		}
	}
	return nil
}

// pageTitle builds the deterministic page heading used by fallback
// content across stages, so degraded artifacts stay coherent with each
// other.
func pageTitle(topic string, n int) string {
	return fmt.Sprintf("%s, part %d", topic, n)
}
