package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/redcube-studio/postforge/pkg/artifact"
	"github.com/redcube-studio/postforge/pkg/cache"
	"github.com/redcube-studio/postforge/pkg/config"
	"github.com/redcube-studio/postforge/pkg/generate"
	"github.com/redcube-studio/postforge/pkg/pipeline"
	"github.com/redcube-studio/postforge/pkg/publish"
	"github.com/redcube-studio/postforge/pkg/render"
	"github.com/redcube-studio/postforge/pkg/runlog"
	"github.com/redcube-studio/postforge/pkg/stages"
)

var (
	providerFlag string
	modelFlag    string
	verboseFlag  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "postforge",
		Short: "Templated multi-image post generator",
		Long: `Postforge turns a topic into a complete multi-image social post
	through a fixed sequence of generation stages, caches every stage
	artifact, renders the result to page images, and optionally delivers
	it to the creator console.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verboseFlag {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "override generation provider (anthropic, openai, google, deepseek, mock)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "override model")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(invalidateCmd())
	rootCmd.AddCommand(stagesCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(providersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var forceFlag bool
	var skipRender bool
	var pdfFlag bool
	var publishFlag bool
	var outFlag string

	cmd := &cobra.Command{
		Use:   "run [topic]",
		Short: "Generate a complete post for a topic",
		Long: `Runs every generation stage in order for the topic, reusing cached
	artifacts where present, then renders the encoded post to page images
	and writes a run log.

	Stages that fail resolve to deterministic fallback content and mark
	the run as a partial failure; inspect the run log before publishing
	a degraded post.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			runner, store, err := buildRunner(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			state, err := runner.Execute(context.Background(), topic, forceFlag)
			if err != nil {
				return err
			}

			outDir := outFlag
			if outDir == "" {
				outDir = cfg.Render.OutputDir
			}
			runID := runlog.NewRunID(topic, time.Now())
			writer, err := runlog.NewWriter(outDir, runID)
			if err != nil {
				return fmt.Errorf("failed to create run log: %w", err)
			}
			if err := writer.Record(runID, state); err != nil {
				return fmt.Errorf("failed to write run log: %w", err)
			}

			if fallbacks := state.FallbackStages(); len(fallbacks) > 0 {
				fmt.Fprintf(os.Stderr, "Partial failure: fallback content for %s\n", strings.Join(fallbacks, ", "))
			}

			var images []string
			if !skipRender {
				final, ok := state.Final()
				if !ok {
					return fmt.Errorf("run produced no final artifact")
				}
				images, err = renderImages(cfg, final, writer.RunDir())
				if err != nil {
					return err
				}
			}

			if pdfFlag {
				design, ok := state.Artifact(stages.Design)
				if !ok {
					return fmt.Errorf("run produced no design artifact")
				}
				data, err := render.NewPDFRenderer().Render(design)
				if err != nil {
					return err
				}
				pdfPath := filepath.Join(writer.RunDir(), "post.pdf")
				if err := os.WriteFile(pdfPath, data, 0644); err != nil {
					return fmt.Errorf("failed to write pdf: %w", err)
				}
				fmt.Fprintf(os.Stderr, "PDF proof: %s\n", pdfPath)
			}

			if publishFlag {
				design, ok := state.Artifact(stages.Design)
				if !ok {
					return fmt.Errorf("run produced no design artifact")
				}
				if err := publishDraft(cfg, design, images, writer.RunDir()); err != nil {
					return err
				}
			}

			fmt.Fprintf(os.Stderr, "Run complete (%s). Output: %s\n", state.Status, writer.RunDir())
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "regenerate every stage, ignoring cached artifacts")
	cmd.Flags().BoolVar(&skipRender, "skip-render", false, "skip page image rendering")
	cmd.Flags().BoolVar(&pdfFlag, "pdf", false, "also write a PDF proof of the design")
	cmd.Flags().BoolVar(&publishFlag, "publish", false, "deliver the rendered post after a successful run")
	cmd.Flags().StringVar(&outFlag, "out", "", "run log base directory (defaults to configured output dir)")

	return cmd
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary [topic] [stage]",
		Short: "Show a cached stage artifact's digest",
		Long:  "Prints the stage's digest of its cached artifact without running the pipeline.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			runner, store, err := buildRunner(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := runner.Summary(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(summary)
			return nil
		},
	}
}

func invalidateCmd() *cobra.Command {
	var stageFlag string

	cmd := &cobra.Command{
		Use:   "invalidate [topic]",
		Short: "Drop cached artifacts for a topic",
		Long:  "Removes cached artifacts so the next run regenerates them. With --stage, drops a single stage.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			store, err := buildCache(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if stageFlag != "" {
				if err := store.Invalidate(topic, stageFlag); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Invalidated %s/%s\n", topic, stageFlag)
				return nil
			}

			p, err := stages.Build()
			if err != nil {
				return err
			}
			if bulk, ok := store.(interface{ InvalidateTopic(string) error }); ok {
				if err := bulk.InvalidateTopic(topic); err != nil {
					return err
				}
			} else {
				for _, name := range p.StageNames() {
					if err := store.Invalidate(topic, name); err != nil {
						return err
					}
				}
			}
			fmt.Fprintf(os.Stderr, "Invalidated all stages for %s\n", topic)
			return nil
		},
	}

	cmd.Flags().StringVar(&stageFlag, "stage", "", "invalidate only this stage")
	return cmd
}

func stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the generation stages in execution order",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := stages.Build()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tSTAGE\tDEPENDS ON")
			for i, desc := range p.Stages() {
				deps := "-"
				if len(desc.Requires) > 0 {
					deps = strings.Join(desc.Requires, ", ")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, desc.Name, deps)
			}
			return w.Flush()
		},
	}
}

func renderCmd() *cobra.Command {
	var outFlag string

	cmd := &cobra.Command{
		Use:   "render [topic]",
		Short: "Render page images from the cached encode artifact",
		Long:  "Renders the topic's cached encode artifact to page images without running the pipeline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			store, err := buildCache(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			a, ok, err := store.Get(topic, stages.Encode)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no cached encode artifact for %q; run the pipeline first", topic)
			}

			outDir := outFlag
			if outDir == "" {
				outDir = cfg.Render.OutputDir
			}
			images, err := renderImages(cfg, a, outDir)
			if err != nil {
				return err
			}
			for _, path := range images {
				fmt.Println(path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outFlag, "out", "", "image output directory (defaults to configured output dir)")
	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List generation providers and their key status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tSTATUS\tSELECTED")
			for _, name := range []string{"anthropic", "openai", "google", "deepseek", "mock"} {
				status := "no key"
				if cfg.HasProvider(name) {
					status = "ready"
				}
				selected := ""
				if name == cfg.Provider {
					selected = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, status, selected)
			}
			return w.Flush()
		},
	}
}

func buildRunner(cfg *config.Config) (*pipeline.Runner, cache.Cache, error) {
	p, err := stages.Build()
	if err != nil {
		return nil, nil, err
	}
	store, err := buildCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	gen, err := buildGenerator(cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	runner, err := pipeline.NewRunner(p, pipeline.Options{
		Cache:       store,
		Generator:   gen,
		Model:       resolveModel(cfg),
		Timeout:     cfg.Generate.Timeout,
		MaxRetries:  cfg.Generate.MaxRetries,
		FallbackTTL: cfg.Cache.FallbackTTL,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return runner, store, nil
}

func buildCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "file", "":
		return cache.NewFileCache(cfg.Cache.Dir)
	case "sqlite":
		if err := os.MkdirAll(cfg.Cache.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		return cache.NewSQLiteCache(filepath.Join(cfg.Cache.Dir, "artifacts.db"))
	case "memory":
		return cache.NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func buildGenerator(cfg *config.Config) (generate.Generator, error) {
	provider := providerFlag
	if provider == "" {
		provider = cfg.Provider
	}

	switch provider {
	case "anthropic":
		return generate.NewAnthropicGenerator(cfg.AnthropicAPIKey)
	case "openai":
		return generate.NewOpenAIGenerator(cfg.OpenAIAPIKey)
	case "google":
		return generate.NewGoogleGenerator(cfg.GoogleAPIKey)
	case "deepseek":
		return generate.NewCompatGenerator("deepseek", cfg.DeepSeekAPIKey,
			"https://api.deepseek.com", []string{"deepseek-chat", "deepseek-reasoner"})
	case "mock":
		return generate.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func resolveModel(cfg *config.Config) string {
	if modelFlag != "" {
		return modelFlag
	}
	return cfg.Model
}

func renderImages(cfg *config.Config, a *artifact.Artifact, outDir string) ([]string, error) {
	renderer, err := render.NewImageRenderer(render.ImageOptions{
		OutputDir: outDir,
		Width:     cfg.Render.Width,
		Height:    cfg.Render.Height,
		Scale:     cfg.Render.Scale,
	})
	if err != nil {
		return nil, err
	}
	defer renderer.Close()

	result, err := renderer.Render(context.Background(), a)
	if err != nil {
		return nil, err
	}
	if len(result.Failed) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d pages failed to render\n", len(result.Failed))
	}

	paths := make([]string, 0, len(result.Images))
	for _, img := range result.Images {
		paths = append(paths, img.Path)
	}
	fmt.Fprintf(os.Stderr, "Rendered %d pages to %s\n", len(paths), outDir)
	return paths, nil
}

func publishDraft(cfg *config.Config, design *artifact.Artifact, images []string, runDir string) error {
	draft, err := publish.DraftFrom(design, images)
	if err != nil {
		return err
	}

	var pub publish.Publisher
	switch cfg.Publish.Mode {
	case "dry-run", "":
		pub = publish.NewDryRunPublisher(filepath.Join(runDir, "draft"))
	case "browser":
		bp, err := publish.NewBrowserPublisher(publish.BrowserOptions{
			CreatorURL: cfg.Publish.CreatorURL,
			PublishURL: cfg.Publish.PublishURL,
			Headless:   cfg.Publish.Headless,
		})
		if err != nil {
			return err
		}
		defer bp.Close()
		pub = bp
	default:
		return fmt.Errorf("unknown publish mode %q", cfg.Publish.Mode)
	}

	if err := pub.Publish(context.Background(), draft); err != nil {
		return fmt.Errorf("publish via %s: %w", pub.Name(), err)
	}
	fmt.Fprintf(os.Stderr, "Published via %s\n", pub.Name())
	return nil
}
