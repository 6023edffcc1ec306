package stages

import (
	"fmt"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/pipeline"
	"github.com/redcube-studio/postforge/pkg/schema"
)

// defaultPageCount is the page plan used when fallback synthesis has no
// upstream signal to work from: a cover, three content pages, a recap.
const defaultPageCount = 5

// narrativeStage plans the page-by-page arc: what each image in the
// post says and why it sits where it does.
func narrativeStage() pipeline.StageDescriptor {
	return pipeline.StageDescriptor{
		Name:     Narrative,
		Requires: []string{Persona, Insight},
		Schema: schema.Schema{
			Version: 1,
			Fields: []schema.Field{
				{Name: "arc", Kind: schema.String, Required: true},
				{Name: "page_count", Kind: schema.Int, Required: true},
				{Name: "pages", Kind: schema.List, Elem: schema.Object, Required: true, Fields: []schema.Field{
					{Name: "position", Kind: schema.Int, Required: true},
					{Name: "purpose", Kind: schema.String, Required: true},
					{Name: "outline", Kind: schema.String, Required: true},
				}},
			},
		},
		Prompt: `You are planning the narrative arc of a multi-image social post.
Each image is one "page" a reader swipes through.

Topic: {{.Topic}}

Persona:
{{.Deps.persona}}

Insights to cover:
{{.Deps.insight}}

Plan 4-7 pages: the overall arc in one sentence, then for each page its
position, purpose (cover / teach / example / recap / call-to-action),
and a one-line outline of its content.

Respond with only a JSON object:
{
  "arc": "...",
  "page_count": 5,
  "pages": [{"position": 1, "purpose": "cover", "outline": "..."}]
}`,
		Synthesize: narrativeFallback,
		Summarize: func(p map[string]any) string {
			out := fmt.Sprintf("arc: %s\npages: %d", stringField(p, "arc", ""), intField(p, "page_count", 0))
			for _, item := range listField(p, "pages") {
				page, ok := item.(map[string]any)
				if !ok {
					continue
				}
				out += fmt.Sprintf("\n  %d. [%s] %s",
					intField(page, "position", 0),
					stringField(page, "purpose", ""),
					stringField(page, "outline", ""))
			}
			return out
		},
	}
}

func narrativeFallback(topic string, deps map[string]*artifact.Artifact) map[string]any {
	insights := listField(depPayload(deps, Insight), "key_insights")

	pages := []any{map[string]any{
		"position": float64(1),
		"purpose":  "cover",
		"outline":  pageTitle(topic, 1),
	}}
	n := 2
	for _, item := range insights {
		s, ok := item.(string)
		if !ok || n > defaultPageCount-1 {
			break
		}
		pages = append(pages, map[string]any{
			"position": float64(n),
			"purpose":  "teach",
			"outline":  s,
		})
		n++
	}
	for n < defaultPageCount {
		pages = append(pages, map[string]any{
			"position": float64(n),
			"purpose":  "teach",
			"outline":  pageTitle(topic, n),
		})
		n++
	}
	pages = append(pages, map[string]any{
		"position": float64(defaultPageCount),
		"purpose":  "recap",
		"outline":  fmt.Sprintf("recap and save: %s", topic),
	})

	return map[string]any{
		"arc":        fmt.Sprintf("from first contact with %s to a checklist the reader keeps", topic),
		"page_count": float64(len(pages)),
		"pages":      pages,
	}
}
