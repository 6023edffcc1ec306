package stages

import (
	"fmt"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/pipeline"
	"github.com/redcube-studio/postforge/pkg/schema"
)

// strategyStage produces the research report and creative blueprint:
// who the post is for, what it argues, and how it hooks.
func strategyStage() pipeline.StageDescriptor {
	return pipeline.StageDescriptor{
		Name:     Strategy,
		Requires: []string{Persona},
		Schema: schema.Schema{
			Version: 1,
			Fields: []schema.Field{
				{Name: "audience", Kind: schema.Object, Required: true, Fields: []schema.Field{
					{Name: "primary", Kind: schema.String, Required: true},
					{Name: "pain_points", Kind: schema.List, Elem: schema.String, Required: true},
				}},
				{Name: "core_message", Kind: schema.String, Required: true},
				{Name: "value_proposition", Kind: schema.String, Required: true},
				{Name: "unique_angle", Kind: schema.String, Required: true},
				{Name: "call_to_action", Kind: schema.String, Required: true},
				{Name: "content_angles", Kind: schema.List, Elem: schema.String, Required: true},
			},
		},
		Prompt: `You are a content strategist planning a short multi-image social post.

Topic: {{.Topic}}

Persona:
{{.Deps.persona}}

Produce the strategy: the primary audience and their pain points, the
single core message, the value proposition, the unique angle versus
typical posts on this topic, a call to action, and 3-5 candidate
content angles.

Respond with only a JSON object:
{
  "audience": {"primary": "...", "pain_points": ["..."]},
  "core_message": "...",
  "value_proposition": "...",
  "unique_angle": "...",
  "call_to_action": "...",
  "content_angles": ["..."]
}`,
		Synthesize: strategyFallback,
		Summarize: func(p map[string]any) string {
			aud := "general readers"
			if obj, ok := p["audience"].(map[string]any); ok {
				aud = stringField(obj, "primary", aud)
			}
			return fmt.Sprintf("audience: %s\ncore message: %s\nangle: %s\ncall to action: %s",
				aud,
				stringField(p, "core_message", ""),
				stringField(p, "unique_angle", ""),
				stringField(p, "call_to_action", ""))
		},
	}
}

func strategyFallback(topic string, _ map[string]*artifact.Artifact) map[string]any {
	return map[string]any{
		"audience": map[string]any{
			"primary":     fmt.Sprintf("people getting started with %s", topic),
			"pain_points": []any{"too much conflicting advice", "no time to research"},
		},
		"core_message":      fmt.Sprintf("the essentials of %s, without the noise", topic),
		"value_proposition": "everything you need on one screen per idea",
		"unique_angle":      "practical steps over opinions",
		"call_to_action":    "save this post for later",
		"content_angles": []any{
			fmt.Sprintf("%s: the basics", topic),
			fmt.Sprintf("common %s mistakes", topic),
			fmt.Sprintf("a simple %s checklist", topic),
		},
	}
}
