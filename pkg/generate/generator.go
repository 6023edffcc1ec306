// Package generate abstracts the LLM providers used by pipeline stages.
// The pipeline treats a Generator as a black box returning free-form
// text; structure is recovered downstream by the extractor.
package generate

import "context"

// Generator sends a prompt to a model and returns the raw response text.
type Generator interface {
	Generate(ctx context.Context, model string, prompt string) (string, error)

	// Name returns the provider identifier.
	Name() string

	// Models returns the provider's supported models, preferred first.
	Models() []string
}

// DefaultModel returns the provider's first-choice model, or the given
// override when non-empty.
func DefaultModel(g Generator, override string) string {
	if override != "" {
		return override
	}
	if models := g.Models(); len(models) > 0 {
		return models[0]
	}
	return ""
}
