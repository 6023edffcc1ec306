package stages

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/cache"
	"github.com/redcube-studio/postforge/pkg/generate"
	"github.com/redcube-studio/postforge/pkg/pipeline"
)

func TestBuildOrder(t *testing.T) {
	p, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{Persona, Strategy, FactCheck, Insight, Narrative, Design, Encode}
	got := p.StageNames()
	if len(got) != len(want) {
		t.Fatalf("stage count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stage %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// Every stage's fallback must satisfy its own schema, both with the
// full set of upstream fallback artifacts and with no dependencies at
// all. A hole here turns a degraded run into an aborted one.
func TestFallbacksSatisfySchemas(t *testing.T) {
	p, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	const topic = "sourdough starters"
	upstream := make(map[string]*artifact.Artifact)
	for _, desc := range p.Stages() {
		deps := make(map[string]*artifact.Artifact, len(desc.Requires))
		for _, name := range desc.Requires {
			deps[name] = upstream[name]
		}

		payload := desc.Synthesize(topic, deps)
		if err := desc.Schema.Validate(payload); err != nil {
			t.Errorf("stage %s: fallback with deps off-schema: %v", desc.Name, err)
		}

		bare := desc.Synthesize(topic, map[string]*artifact.Artifact{})
		if err := desc.Schema.Validate(bare); err != nil {
			t.Errorf("stage %s: fallback without deps off-schema: %v", desc.Name, err)
		}

		a, err := artifact.New(desc.Name, desc.Schema.Version, topic, artifact.ProvenanceFallback, payload)
		if err != nil {
			t.Fatalf("stage %s: wrap fallback: %v", desc.Name, err)
		}
		upstream[desc.Name] = a
	}
}

func TestEncodeFallbackMatchesPageCount(t *testing.T) {
	const topic = "десерты"
	design := designFallback(topic, nil)
	a, err := artifact.New(Design, 1, topic, artifact.ProvenanceFallback, design)
	if err != nil {
		t.Fatalf("wrap design: %v", err)
	}

	payload := encodeFallback(topic, map[string]*artifact.Artifact{Design: a})
	html, _ := payload["html"].(string)
	pages := strings.Count(html, `<section class="post-page">`)
	if pages == 0 {
		t.Fatal("fallback html has no page sections")
	}
	if got := payload["page_count"].(float64); int(got) != pages {
		t.Fatalf("page_count = %v, html has %d sections", got, pages)
	}
	if payload["page_selector"] != PageSelector {
		t.Fatalf("page_selector = %v", payload["page_selector"])
	}
}

// A dead provider must still yield a complete, renderable run.
func TestRunAllFallback(t *testing.T) {
	p, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	gen := generate.NewMock()
	gen.Err = errors.New("provider down")

	r, err := pipeline.NewRunner(p, pipeline.Options{
		Cache:     cache.NewMemoryCache(),
		Generator: gen,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	state, err := r.Execute(context.Background(), "indoor herb gardens", false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.Status != pipeline.StatusPartialFailure {
		t.Fatalf("status = %s, want %s", state.Status, pipeline.StatusPartialFailure)
	}
	if got := len(state.FallbackStages()); got != 7 {
		t.Fatalf("fallback stages = %d, want 7", got)
	}
	final, ok := state.Final()
	if !ok {
		t.Fatal("no final artifact")
	}
	html, _ := final.Payload["html"].(string)
	if !strings.Contains(html, `class="post-page"`) {
		t.Fatal("encode fallback html lacks page elements")
	}
}

func TestRunScriptedSuccess(t *testing.T) {
	p, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	gen := generate.NewMock()
	gen.Responses = map[string]string{
		"brand strategist": `{"identity": "a kitchen scientist", "voice": "curious, precise",
			"tone": "warm", "catchphrase": "measure twice, bake once",
			"style_do": ["use grams"], "style_avoid": ["vague amounts"]}`,
		"content strategist planning": `{"audience": {"primary": "home bakers", "pain_points": ["dense loaves"]},
			"core_message": "temperature control beats timing",
			"value_proposition": "repeatable loaves without guesswork",
			"unique_angle": "treat the kitchen like a lab",
			"call_to_action": "save this for your next bake",
			"content_angles": ["myth-busting", "checklist"]}`,
		"careful fact checker": `{"claims": [{"claim": "hydration affects crumb", "verdict": "supported", "note": ""}],
			"confidence": "high", "cautions": ["no exact timings"]}`,
		"distill content strategy": `{"key_insights": ["dough temperature drives fermentation speed"],
			"hooks": ["your oven is lying to you"],
			"takeaway": "control temperature, not the clock"}`,
		"narrative arc": `{"arc": "from frustration to a repeatable method",
			"page_count": 2,
			"pages": [{"position": 1, "purpose": "cover", "outline": "the promise"},
				{"position": 2, "purpose": "recap", "outline": "the method card"}]}`,
		"visual content designer": `{"titles": ["Bake like a lab"], "caption": "Repeatable bread.",
			"hashtags": ["#bread"],
			"images": [{"image_number": 1, "title": "Bake like a lab", "main_content": "the promise", "layout": "hero"},
				{"image_number": 2, "title": "Method card", "main_content": "the method card", "layout": "quote"}],
			"design_principles": {"palette": ["#111111", "#EEEEEE", "#CC3344"], "font_hierarchy": "big/medium/small", "spacing": "airy"}}`,
		"front-end developer": `{"html": "<!DOCTYPE html><html><body><section class=\"post-page\">one</section><section class=\"post-page\">two</section></body></html>",
			"page_count": 2, "page_selector": ".post-page"}`,
	}

	r, err := pipeline.NewRunner(p, pipeline.Options{
		Cache:     cache.NewMemoryCache(),
		Generator: gen,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	state, err := r.Execute(context.Background(), "sourdough", false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.Status != pipeline.StatusSuccess {
		t.Fatalf("status = %s, fallbacks = %v", state.Status, state.FallbackStages())
	}
	if gen.Calls() != 7 {
		t.Fatalf("generator calls = %d, want 7", gen.Calls())
	}

	// Downstream prompts must carry upstream digests, not raw payloads.
	var sawDigest bool
	for _, prompt := range gen.Prompts() {
		if strings.Contains(prompt, "audience: home bakers") {
			sawDigest = true
		}
	}
	if !sawDigest {
		t.Fatal("no prompt carried the strategy digest")
	}

	enc, ok := state.Artifact(Encode)
	if !ok {
		t.Fatal("encode artifact missing")
	}
	if enc.Provenance != artifact.ProvenanceSuccess {
		t.Fatalf("encode provenance = %s", enc.Provenance)
	}
	if got := enc.Payload["page_count"].(float64); got != 2 {
		t.Fatalf("page_count = %v, want 2", got)
	}
}
