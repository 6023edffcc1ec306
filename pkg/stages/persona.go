package stages

import (
	"fmt"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/pipeline"
	"github.com/redcube-studio/postforge/pkg/schema"
)

// personaStage defines the content persona: who is speaking, in what
// voice, and what the writing should and should not do. Every later
// stage inherits this through its digest.
func personaStage() pipeline.StageDescriptor {
	return pipeline.StageDescriptor{
		Name: Persona,
		Schema: schema.Schema{
			Version: 1,
			Fields: []schema.Field{
				{Name: "identity", Kind: schema.String, Required: true},
				{Name: "voice", Kind: schema.String, Required: true},
				{Name: "tone", Kind: schema.String, Required: true},
				{Name: "catchphrase", Kind: schema.String},
				{Name: "style_do", Kind: schema.List, Elem: schema.String, Required: true},
				{Name: "style_avoid", Kind: schema.List, Elem: schema.String, Required: true},
			},
		},
		Prompt: `You are a brand strategist building a content persona for short
multi-image social posts.

Topic: {{.Topic}}

Design one distinctive, consistent persona for this topic: an identity
(who is writing), a voice (how sentences sound), an overall tone, an
optional catchphrase, and concrete style rules.

Respond with only a JSON object:
{
  "identity": "...",
  "voice": "...",
  "tone": "...",
  "catchphrase": "...",
  "style_do": ["...", "..."],
  "style_avoid": ["...", "..."]
}`,
		Synthesize: personaFallback,
		Summarize: func(p map[string]any) string {
			return fmt.Sprintf("identity: %s\nvoice: %s\ntone: %s",
				stringField(p, "identity", "generalist"),
				stringField(p, "voice", "plain"),
				stringField(p, "tone", "neutral"))
		},
	}
}

func personaFallback(topic string, _ map[string]*artifact.Artifact) map[string]any {
	return map[string]any{
		"identity":    fmt.Sprintf("a practical guide to %s", topic),
		"voice":       "plain, friendly, second person",
		"tone":        "calm and encouraging",
		"catchphrase": "",
		"style_do":    []any{"short sentences", "concrete examples", "one idea per page"},
		"style_avoid": []any{"jargon", "hype", "unverifiable claims"},
	}
}
