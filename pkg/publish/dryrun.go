package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// DryRunPublisher writes the draft to a local bundle instead of a live
// platform: draft.json plus copies of the page images. It is the default
// publisher, and what tests exercise.
type DryRunPublisher struct {
	Dir    string
	Logger *slog.Logger
}

func NewDryRunPublisher(dir string) *DryRunPublisher {
	return &DryRunPublisher{Dir: dir}
}

func (p *DryRunPublisher) Name() string { return "dry-run" }

func (p *DryRunPublisher) Publish(_ context.Context, d Draft) error {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("publish: create bundle dir: %w", err)
	}

	bundle := d
	bundle.Images = make([]string, 0, len(d.Images))
	for _, src := range d.Images {
		dst := filepath.Join(p.Dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("publish: copy %s: %w", src, err)
		}
		bundle.Images = append(bundle.Images, filepath.Base(src))
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("publish: encode draft: %w", err)
	}
	path := filepath.Join(p.Dir, "draft.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("publish: write draft: %w", err)
	}

	log.Info("publish: dry-run bundle written", "dir", p.Dir, "images", len(bundle.Images))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
