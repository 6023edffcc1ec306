package stages

import (
	"fmt"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/pipeline"
	"github.com/redcube-studio/postforge/pkg/schema"
)

// insightStage distills the strategy and fact-check into the handful of
// points the post will actually make.
func insightStage() pipeline.StageDescriptor {
	return pipeline.StageDescriptor{
		Name:     Insight,
		Requires: []string{Strategy, FactCheck},
		Schema: schema.Schema{
			Version: 1,
			Fields: []schema.Field{
				{Name: "key_insights", Kind: schema.List, Elem: schema.String, Required: true},
				{Name: "hooks", Kind: schema.List, Elem: schema.String, Required: true},
				{Name: "takeaway", Kind: schema.String, Required: true},
			},
		},
		Prompt: `You distill content strategy into the few points worth a reader's
attention.

Topic: {{.Topic}}

Strategy:
{{.Deps.strategy}}

Fact-check notes:
{{.Deps.factcheck}}

Extract 3-5 key insights the post should teach (respecting the
fact-check cautions), 2-3 opening hooks, and the single takeaway a
reader should remember.

Respond with only a JSON object:
{
  "key_insights": ["..."],
  "hooks": ["..."],
  "takeaway": "..."
}`,
		Synthesize: insightFallback,
	}
}

func insightFallback(topic string, _ map[string]*artifact.Artifact) map[string]any {
	return map[string]any{
		"key_insights": []any{
			fmt.Sprintf("start with the %s basics before the details", topic),
			"small consistent steps beat occasional big efforts",
			"write down what works so you can repeat it",
		},
		"hooks": []any{
			fmt.Sprintf("most advice about %s skips the part that matters", topic),
			fmt.Sprintf("the 3 things to know about %s", topic),
		},
		"takeaway": fmt.Sprintf("you can get %s right with a few simple habits", topic),
	}
}
