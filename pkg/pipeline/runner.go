package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/cache"
	"github.com/redcube-studio/postforge/pkg/extract"
	"github.com/redcube-studio/postforge/pkg/generate"
)

// Options configures a Runner. Cache and Generator are required.
type Options struct {
	Cache     cache.Cache
	Generator generate.Generator
	Logger    *slog.Logger

	// Model overrides the generator's default model for stages that do
	// not declare their own.
	Model string

	// Timeout bounds each generation call. Default 60s.
	Timeout time.Duration

	// MaxRetries is the default transient-error retry budget per stage.
	// Default 2.
	MaxRetries int

	// Backoff is the base delay between retries, doubled per attempt.
	// Default 500ms.
	Backoff time.Duration

	// FallbackTTL bounds how long a cached fallback artifact is served
	// before the stage regenerates. Zero keeps fallback entries as long
	// as successful ones.
	FallbackTTL time.Duration
}

// Runner drives one pipeline: sequential stage execution, cache
// consultation, retry policy, and fallback synthesis. A Runner is safe
// for concurrent Execute calls on distinct topics; per-key locking keeps
// a cache miss from triggering duplicate generations for the same key.
type Runner struct {
	pipeline *Pipeline
	opts     Options
	log      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRunner validates options and builds a Runner.
func NewRunner(p *Pipeline, opts Options) (*Runner, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		pipeline: p,
		opts:     opts,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// Execute runs every stage in declared order for the topic. It returns a
// RunState containing one artifact per stage. Stages that degraded to
// fallback flag the run as partial failure but never stop it; only a
// defective fallback or a failed cache write aborts.
func (r *Runner) Execute(ctx context.Context, topic string, force bool) (*RunState, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("topic is required")
	}

	state := &RunState{
		Topic:     topic,
		Status:    StatusRunning,
		Order:     r.pipeline.StageNames(),
		Artifacts: make(map[string]*artifact.Artifact, len(r.pipeline.stages)),
		StartedAt: time.Now().UTC(),
	}

	r.log.Info("run started", "topic", topic, "stages", len(r.pipeline.stages), "force", force)

	for _, desc := range r.pipeline.stages {
		deps := make(map[string]*artifact.Artifact, len(desc.Requires))
		for _, name := range desc.Requires {
			a, ok := state.Artifacts[name]
			if !ok {
				// Construction validation makes this unreachable.
				return nil, fmt.Errorf("stage %s: dependency %s has not run", desc.Name, name)
			}
			deps[name] = a
		}

		a, err := r.runStage(ctx, desc, topic, deps, force)
		if err != nil {
			return nil, err
		}
		state.record(desc.Name, a)
		r.log.Info("stage complete", "topic", topic, "stage", desc.Name, "provenance", a.Provenance)
	}

	state.finish()
	r.log.Info("run finished", "topic", topic, "status", state.Status, "fallbacks", state.FallbackStages())
	return state, nil
}

// runStage implements the stage contract: cache check, generation with
// bounded timeout and retry, extraction, fallback synthesis, metadata
// wrapping, unconditional cache write.
func (r *Runner) runStage(ctx context.Context, desc StageDescriptor, topic string, deps map[string]*artifact.Artifact, force bool) (*artifact.Artifact, error) {
	lock := r.keyLock(topic, desc.Name)
	lock.Lock()
	defer lock.Unlock()

	if !force {
		if a, ok := r.cachedArtifact(topic, desc.Name); ok {
			r.log.Debug("cache hit", "topic", topic, "stage", desc.Name)
			return a, nil
		}
	}

	prompt, err := r.renderPrompt(desc, topic, deps)
	if err != nil {
		return nil, fmt.Errorf("render prompt for stage %s: %w", desc.Name, err)
	}

	payload, prov := r.generatePayload(ctx, desc, topic, prompt)

	if prov == artifact.ProvenanceFallback {
		payload = r.synthesize(desc, topic, deps)
		if err := desc.Schema.Validate(payload); err != nil {
			return nil, &FallbackInvalidError{Stage: desc.Name, Err: err}
		}
	}

	a, err := artifact.New(desc.Name, desc.Schema.Version, topic, prov, payload)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", desc.Name, err)
	}

	// Fallback artifacts are cached too: a degraded run must not re-pay
	// the generation cost on every retry unless regeneration is forced.
	if err := r.opts.Cache.Put(topic, desc.Name, a); err != nil {
		return nil, &CacheWriteError{Stage: desc.Name, Err: err}
	}
	return a, nil
}

// generatePayload invokes generation with timeout and bounded retries,
// then extracts and schema-validates the response. Any failure along the
// way resolves to fallback provenance; the fallback path is the
// unconditional last resort, never an error.
func (r *Runner) generatePayload(ctx context.Context, desc StageDescriptor, topic, prompt string) (map[string]any, artifact.Provenance) {
	retries := desc.MaxRetries
	if retries <= 0 {
		retries = r.opts.MaxRetries
	}
	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = r.opts.Timeout
	}
	model := desc.Model
	if model == "" {
		model = generate.DefaultModel(r.opts.Generator, r.opts.Model)
	}

	var raw string
	var genErr error
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		raw, genErr = r.opts.Generator.Generate(callCtx, model, prompt)
		cancel()
		if genErr == nil {
			break
		}
		if attempt >= retries || !generate.IsTransient(genErr) {
			r.log.Warn("generation failed, falling back", "topic", topic, "stage", desc.Name, "attempts", attempt+1, "err", genErr)
			return nil, artifact.ProvenanceFallback
		}
		delay := r.opts.Backoff << attempt
		r.log.Debug("transient generation error, retrying", "stage", desc.Name, "attempt", attempt+1, "delay", delay, "err", genErr)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, artifact.ProvenanceFallback
		}
	}

	payload, err := extract.Extract(raw)
	if err != nil {
		// Malformed output is not retried: the same prompt tends to
		// produce the same malformation.
		r.log.Warn("extraction failed, falling back", "topic", topic, "stage", desc.Name, "err", err)
		return nil, artifact.ProvenanceFallback
	}
	if err := desc.Schema.Validate(payload); err != nil {
		r.log.Warn("extracted payload off-schema, falling back", "topic", topic, "stage", desc.Name, "err", err)
		return nil, artifact.ProvenanceFallback
	}
	return payload, artifact.ProvenanceSuccess
}

func (r *Runner) synthesize(desc StageDescriptor, topic string, deps map[string]*artifact.Artifact) map[string]any {
	if desc.Synthesize != nil {
		return desc.Synthesize(topic, deps)
	}
	return desc.Schema.Synthesize(topic)
}

// cachedArtifact reads the cache, treating read errors as misses (they
// are logged, not swallowed silently) and expiring fallback entries past
// the configured TTL so a degraded stage gets another chance.
func (r *Runner) cachedArtifact(topic, stage string) (*artifact.Artifact, bool) {
	a, ok, err := r.opts.Cache.Get(topic, stage)
	if err != nil {
		r.log.Warn("cache read failed, regenerating", "topic", topic, "stage", stage, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if a.FromFallback() && r.opts.FallbackTTL > 0 && time.Since(a.CreatedAt) > r.opts.FallbackTTL {
		r.log.Info("cached fallback expired, regenerating", "topic", topic, "stage", stage)
		return nil, false
	}
	return a, true
}

// Summary returns the stage's digest of its cached artifact without
// running the pipeline. Returns ErrNotFound when nothing is cached.
func (r *Runner) Summary(topic, stage string) (string, error) {
	desc, ok := r.pipeline.Stage(stage)
	if !ok {
		return "", fmt.Errorf("unknown stage %q", stage)
	}
	a, ok, err := r.opts.Cache.Get(topic, stage)
	if err != nil {
		return "", fmt.Errorf("read cache for %s/%s: %w", topic, stage, err)
	}
	if !ok {
		return "", fmt.Errorf("%s/%s: %w", topic, stage, ErrNotFound)
	}
	return desc.summary(a.Payload), nil
}

func (r *Runner) keyLock(topic, stage string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := topic + "\x00" + stage
	l, ok := r.locks[k]
	if !ok {
		l = &sync.Mutex{}
		r.locks[k] = l
	}
	return l
}

// promptData is the template context for stage prompts.
type promptData struct {
	Topic string
	Deps  map[string]string
}

// renderPrompt executes the stage's prompt template over the topic and
// the dependency digests. Each dependency is summarized by its own
// stage's Summarize so the prompt receives a readable digest, not the
// raw nested payload.
func (r *Runner) renderPrompt(desc StageDescriptor, topic string, deps map[string]*artifact.Artifact) (string, error) {
	summaries := make(map[string]string, len(deps))
	for name, a := range deps {
		if dep, ok := r.pipeline.Stage(name); ok {
			summaries[name] = dep.summary(a.Payload)
		} else {
			summaries[name] = DefaultSummary(a.Payload)
		}
	}

	tmpl, err := template.New(desc.Name).Parse(desc.Prompt)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, promptData{Topic: topic, Deps: summaries}); err != nil {
		return "", err
	}
	return b.String(), nil
}
