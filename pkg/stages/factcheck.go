package stages

import (
	"fmt"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/pipeline"
	"github.com/redcube-studio/postforge/pkg/schema"
)

// factCheckStage audits the strategy for claims that need verification
// before they reach the published post.
func factCheckStage() pipeline.StageDescriptor {
	return pipeline.StageDescriptor{
		Name:     FactCheck,
		Requires: []string{Persona, Strategy},
		Schema: schema.Schema{
			Version: 1,
			Fields: []schema.Field{
				{Name: "claims", Kind: schema.List, Elem: schema.Object, Required: true, Fields: []schema.Field{
					{Name: "claim", Kind: schema.String, Required: true},
					{Name: "verdict", Kind: schema.String, Required: true},
					{Name: "note", Kind: schema.String},
				}},
				{Name: "confidence", Kind: schema.String, Required: true},
				{Name: "cautions", Kind: schema.List, Elem: schema.String, Required: true},
			},
		},
		Prompt: `You are a careful fact checker reviewing a social post strategy
before writing begins.

Topic: {{.Topic}}

Strategy:
{{.Deps.strategy}}

List the factual claims the strategy implies, give a verdict for each
(supported / uncertain / avoid), an overall confidence level, and any
cautions the writer should respect.

Respond with only a JSON object:
{
  "claims": [{"claim": "...", "verdict": "supported|uncertain|avoid", "note": "..."}],
  "confidence": "high|medium|low",
  "cautions": ["..."]
}`,
		Synthesize: factCheckFallback,
	}
}

func factCheckFallback(topic string, _ map[string]*artifact.Artifact) map[string]any {
	return map[string]any{
		"claims": []any{
			map[string]any{
				"claim":   fmt.Sprintf("general guidance about %s", topic),
				"verdict": "uncertain",
				"note":    "generated without verification; keep wording non-absolute",
			},
		},
		"confidence": "low",
		"cautions": []any{
			"avoid absolute statements",
			"avoid statistics without a source",
		},
	}
}
