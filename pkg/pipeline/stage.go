package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/schema"
)

// Summarizer projects a payload into the human-readable digest passed to
// downstream stage prompts in place of the raw nested payload.
type Summarizer func(payload map[string]any) string

// SynthesizeFunc builds a deterministic fallback payload for a stage from
// the topic and whatever upstream artifacts are already available. It
// must not invoke generation.
type SynthesizeFunc func(topic string, deps map[string]*artifact.Artifact) map[string]any

// StageDescriptor declares one unit of the pipeline: its name, the
// upstream artifacts it consumes, its prompt, its output schema, and its
// error budget. Descriptors are immutable after pipeline construction.
type StageDescriptor struct {
	Name     string
	Requires []string

	// Prompt is a text/template over {{.Topic}} and {{.Deps.<stage>}}
	// (upstream stage summaries).
	Prompt string

	Schema schema.Schema

	// Model overrides the generator's default model for this stage.
	Model string

	// MaxRetries bounds retries of transient generation errors before
	// falling back. Zero or negative means use the runner default.
	MaxRetries int

	// Timeout bounds one generation call. Zero means the runner default.
	Timeout time.Duration

	// Synthesize, when set, replaces the schema-default fallback payload.
	// Its output must still validate against Schema.
	Synthesize SynthesizeFunc

	// Summarize, when set, replaces the default payload digest.
	Summarize Summarizer
}

// Pipeline is the fixed, strictly ordered stage chain. Order is the
// declared total order, not inferred from the dependency set; a
// dependency may only name an earlier stage.
type Pipeline struct {
	stages []StageDescriptor
	index  map[string]int
}

// New validates the stage list and builds a Pipeline. Dependency errors
// are construction errors, caught here rather than at run time.
func New(stages []StageDescriptor) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline must declare at least one stage")
	}

	index := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if _, dup := index[s.Name]; dup {
			return nil, fmt.Errorf("duplicate stage name %q", s.Name)
		}
		if s.Prompt == "" {
			return nil, fmt.Errorf("stage %q has no prompt", s.Name)
		}
		if len(s.Schema.Fields) == 0 {
			return nil, fmt.Errorf("stage %q declares no output schema", s.Name)
		}
		for _, dep := range s.Requires {
			pos, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("stage %q depends on unknown or later stage %q", s.Name, dep)
			}
			if pos >= i {
				return nil, fmt.Errorf("stage %q depends on later stage %q", s.Name, dep)
			}
		}
		index[s.Name] = i
	}

	return &Pipeline{stages: stages, index: index}, nil
}

// Stages returns the declared stage order.
func (p *Pipeline) Stages() []StageDescriptor {
	out := make([]StageDescriptor, len(p.stages))
	copy(out, p.stages)
	return out
}

// StageNames returns the stage names in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Stage looks up a descriptor by name.
func (p *Pipeline) Stage(name string) (StageDescriptor, bool) {
	i, ok := p.index[name]
	if !ok {
		return StageDescriptor{}, false
	}
	return p.stages[i], true
}

// summary returns the stage's digest of a payload, falling back to a
// generic rendering of the top-level fields.
func (s StageDescriptor) summary(payload map[string]any) string {
	if s.Summarize != nil {
		return s.Summarize(payload)
	}
	return DefaultSummary(payload)
}

// DefaultSummary renders the top-level payload fields as "key: value"
// lines. Nested structures are reduced to counts so downstream prompts
// get a digest, not a JSON dump.
func DefaultSummary(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		switch v := payload[k].(type) {
		case string:
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		case float64:
			fmt.Fprintf(&b, "%s: %g\n", k, v)
		case bool:
			fmt.Fprintf(&b, "%s: %t\n", k, v)
		case []any:
			fmt.Fprintf(&b, "%s: %d items\n", k, len(v))
			for i, item := range v {
				if i >= 5 {
					break
				}
				if s, ok := item.(string); ok {
					fmt.Fprintf(&b, "  - %s\n", s)
				}
			}
		case map[string]any:
			fmt.Fprintf(&b, "%s: {%d fields}\n", k, len(v))
		default:
			fmt.Fprintf(&b, "%s: %v\n", k, v)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
