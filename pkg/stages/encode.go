package stages

import (
	"fmt"
	"html"
	"strings"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/pipeline"
	"github.com/redcube-studio/postforge/pkg/schema"
)

// PageSelector is the CSS class marking one renderable page element in
// the encoded HTML. The renderer screenshots each match.
const PageSelector = ".post-page"

// encodeStage is the final generation stage: it turns the design spec
// into a single self-contained HTML document with one page element per
// image.
func encodeStage() pipeline.StageDescriptor {
	return pipeline.StageDescriptor{
		Name:     Encode,
		Requires: []string{Design},
		Schema: schema.Schema{
			Version: 1,
			Fields: []schema.Field{
				{Name: "html", Kind: schema.String, Required: true},
				{Name: "page_count", Kind: schema.Int, Required: true},
				{Name: "page_selector", Kind: schema.String, Required: true, Default: PageSelector},
			},
		},
		Prompt: `You are a front-end developer encoding a post design spec as one
self-contained HTML document.

Topic: {{.Topic}}

Design spec:
{{.Deps.design}}

Write a complete HTML document with inline CSS only. Each image of the
post is one <section class="post-page"> sized 800x1200px, using the
spec's palette and layout per image block. No external assets, no
scripts.

Respond with only a JSON object:
{
  "html": "<!DOCTYPE html>...",
  "page_count": 5,
  "page_selector": ".post-page"
}`,
		Synthesize: encodeFallback,
		Summarize: func(p map[string]any) string {
			return fmt.Sprintf("pages: %d\nhtml bytes: %d",
				intField(p, "page_count", 0), len(stringField(p, "html", "")))
		},
	}
}

// encodeFallback renders a plain templated document from the design
// artifact so the pipeline always ends with renderable HTML.
func encodeFallback(topic string, deps map[string]*artifact.Artifact) map[string]any {
	design := depPayload(deps, Design)
	images := listField(design, "images")
	if len(images) == 0 {
		images = listField(designFallback(topic, deps), "images")
	}

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { margin: 0; font-family: -apple-system, "Helvetica Neue", sans-serif; }
  .post-page { width: 800px; height: 1200px; box-sizing: border-box;
    padding: 80px 60px; background: #FFF4F7; color: #2D2D2D;
    display: flex; flex-direction: column; justify-content: center; }
  .post-page h1 { font-size: 56px; color: #FF6B9D; margin: 0 0 40px; }
  .post-page p { font-size: 32px; line-height: 1.5; margin: 0; }
</style>
</head>
<body>
`)
	for _, item := range images {
		img, _ := item.(map[string]any)
		title := html.EscapeString(stringField(img, "title", topic))
		content := html.EscapeString(stringField(img, "main_content", topic))
		fmt.Fprintf(&b, "<section class=\"post-page\">\n<h1>%s</h1>\n<p>%s</p>\n</section>\n", title, content)
	}
	b.WriteString("</body>\n</html>\n")

	return map[string]any{
		"html":          b.String(),
		"page_count":    float64(len(images)),
		"page_selector": PageSelector,
	}
}
