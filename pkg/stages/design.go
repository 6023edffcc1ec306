package stages

import (
	"fmt"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/pipeline"
	"github.com/redcube-studio/postforge/pkg/schema"
)

// designStage turns the narrative plan into a concrete design spec:
// candidate titles, the caption body, and one content block per image.
func designStage() pipeline.StageDescriptor {
	return pipeline.StageDescriptor{
		Name:     Design,
		Requires: []string{Strategy, Narrative},
		Schema: schema.Schema{
			Version: 1,
			Fields: []schema.Field{
				{Name: "titles", Kind: schema.List, Elem: schema.String, Required: true},
				{Name: "caption", Kind: schema.String, Required: true},
				{Name: "hashtags", Kind: schema.List, Elem: schema.String},
				{Name: "images", Kind: schema.List, Elem: schema.Object, Required: true, Fields: []schema.Field{
					{Name: "image_number", Kind: schema.Int, Required: true},
					{Name: "title", Kind: schema.String, Required: true},
					{Name: "main_content", Kind: schema.String, Required: true},
					{Name: "layout", Kind: schema.String, Required: true},
				}},
				{Name: "design_principles", Kind: schema.Object, Required: true, Fields: []schema.Field{
					{Name: "palette", Kind: schema.List, Elem: schema.String, Required: true},
					{Name: "font_hierarchy", Kind: schema.String, Required: true},
					{Name: "spacing", Kind: schema.String, Required: true},
				}},
			},
		},
		Prompt: `You are a visual content designer producing the design spec for a
multi-image social post.

Topic: {{.Topic}}

Strategy:
{{.Deps.strategy}}

Page plan:
{{.Deps.narrative}}

Produce 3 candidate post titles, the caption text, optional hashtags,
one image block per planned page (number, on-image title, main content
text, layout: hero / list / split / quote), and shared design
principles (a 3-color palette as hex strings, font hierarchy, spacing).

Respond with only a JSON object:
{
  "titles": ["..."],
  "caption": "...",
  "hashtags": ["..."],
  "images": [{"image_number": 1, "title": "...", "main_content": "...", "layout": "hero"}],
  "design_principles": {"palette": ["#..."], "font_hierarchy": "...", "spacing": "..."}
}`,
		Synthesize: designFallback,
		Summarize: func(p map[string]any) string {
			title := ""
			if titles := listField(p, "titles"); len(titles) > 0 {
				title, _ = titles[0].(string)
			}
			return fmt.Sprintf("title: %s\nimages: %d\ncaption: %s",
				title, len(listField(p, "images")), stringField(p, "caption", ""))
		},
	}
}

func designFallback(topic string, deps map[string]*artifact.Artifact) map[string]any {
	narrative := depPayload(deps, Narrative)
	plan := listField(narrative, "pages")

	var images []any
	for i, item := range plan {
		page, _ := item.(map[string]any)
		layout := "list"
		switch stringField(page, "purpose", "") {
		case "cover":
			layout = "hero"
		case "recap":
			layout = "quote"
		}
		images = append(images, map[string]any{
			"image_number": float64(i + 1),
			"title":        pageTitle(topic, i+1),
			"main_content": stringField(page, "outline", pageTitle(topic, i+1)),
			"layout":       layout,
		})
	}
	if len(images) == 0 {
		for i := 1; i <= defaultPageCount; i++ {
			images = append(images, map[string]any{
				"image_number": float64(i),
				"title":        pageTitle(topic, i),
				"main_content": pageTitle(topic, i),
				"layout":       "list",
			})
		}
	}

	return map[string]any{
		"titles": []any{
			fmt.Sprintf("%s, made simple", topic),
			fmt.Sprintf("what nobody tells you about %s", topic),
			fmt.Sprintf("a calm guide to %s", topic),
		},
		"caption":  fmt.Sprintf("A practical, no-noise guide to %s. Save it for later.", topic),
		"hashtags": []any{},
		"images":   images,
		"design_principles": map[string]any{
			"palette":        []any{"#FF6B9D", "#FFF4F7", "#2D2D2D"},
			"font_hierarchy": "bold title, regular body, small footnote",
			"spacing":        "generous margins, one idea per page",
		},
	}
}
