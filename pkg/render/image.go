package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/redcube-studio/postforge/pkg/artifact"
)

// ImageOptions configures the headless-browser renderer.
type ImageOptions struct {
	// OutputDir receives post.html plus one page_NN.png per page element.
	OutputDir string

	// ControlURL is the WebSocket URL of an external Chrome instance.
	// Empty launches a local headless Chrome.
	ControlURL string

	// Viewport size in CSS pixels. Default 800x1200.
	Width  int
	Height int

	// Scale is the device scale factor. Default 2 for crisp exports.
	Scale float64

	// Timeout bounds navigation and each screenshot. Default 30s.
	Timeout time.Duration

	// Prefix names output files, "page" by default.
	Prefix string

	Logger *slog.Logger
}

func (o *ImageOptions) defaults() {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 1200
	}
	if o.Scale <= 0 {
		o.Scale = 2
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Prefix == "" {
		o.Prefix = "page"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// ImageRenderer screenshots each page element of an encoded post into a
// PNG file. One browser per renderer; Close releases it.
type ImageRenderer struct {
	opts    ImageOptions
	browser *rod.Browser
	lnch    *launcher.Launcher
	log     *slog.Logger
}

// NewImageRenderer launches (or connects to) Chrome.
func NewImageRenderer(opts ImageOptions) (*ImageRenderer, error) {
	opts.defaults()
	r := &ImageRenderer{opts: opts, log: opts.Logger}

	wsURL := opts.ControlURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-gpu").
			Set("disable-dev-shm-usage").
			Set("force-device-scale-factor", fmt.Sprintf("%g", opts.Scale))
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("render: launch chrome: %w", err)
		}
		r.lnch = l
		wsURL = u
		r.log.Info("render: launched local chrome", "url", wsURL)
	} else {
		r.log.Info("render: connecting to remote chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if r.lnch != nil {
			r.lnch.Cleanup()
		}
		return nil, fmt.Errorf("render: connect chrome: %w", err)
	}
	r.browser = b
	return r, nil
}

// Render loads the encode artifact's HTML and screenshots every element
// matching its page selector, page_01.png onward. When the selector
// matches nothing it falls back to a single full-viewport capture so a
// malformed document still yields something reviewable.
func (r *ImageRenderer) Render(ctx context.Context, a *artifact.Artifact) (*Result, error) {
	doc, err := DocumentFrom(a)
	if err != nil {
		return nil, err
	}

	htmlPath, err := writeTempHTML(r.opts.OutputDir, doc.HTML)
	if err != nil {
		return nil, err
	}
	defer os.Remove(htmlPath)

	navCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("render: open page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             r.opts.Width,
		Height:            r.opts.Height,
		DeviceScaleFactor: r.opts.Scale,
	}); err != nil {
		return nil, fmt.Errorf("render: set viewport: %w", err)
	}

	fileURL := "file://" + filepath.ToSlash(htmlPath)
	if err := page.Context(navCtx).Navigate(fileURL); err != nil {
		return nil, fmt.Errorf("render: navigate %s: %w", fileURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		r.log.Warn("render: wait load timed out", "err", err)
	}

	elements, err := page.Context(navCtx).Elements(doc.Selector)
	if err != nil {
		return nil, fmt.Errorf("render: query %q: %w", doc.Selector, err)
	}

	if len(elements) == 0 {
		r.log.Warn("render: selector matched nothing, capturing viewport", "selector", doc.Selector)
		return r.captureViewport(navCtx, page)
	}

	r.log.Info("render: capturing pages", "topic", a.Topic, "pages", len(elements))
	result := &Result{}
	for i, el := range elements {
		path := r.pagePath(i + 1)
		shotCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		data, err := el.Context(shotCtx).Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
		cancel()
		if err == nil {
			err = os.WriteFile(path, data, 0o644)
		}
		if err != nil {
			r.log.Warn("render: page capture failed", "page", i+1, "err", err)
			result.Failed = append(result.Failed, i+1)
			continue
		}
		result.Images = append(result.Images, PageImage{Page: i + 1, Path: path})
	}
	if len(result.Images) == 0 {
		return result, fmt.Errorf("render: all %d pages failed", len(elements))
	}
	return result, nil
}

func (r *ImageRenderer) captureViewport(ctx context.Context, page *rod.Page) (*Result, error) {
	data, err := page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("render: viewport capture: %w", err)
	}
	path := r.pagePath(1)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("render: write %s: %w", path, err)
	}
	return &Result{Images: []PageImage{{Page: 1, Path: path}}}, nil
}

func (r *ImageRenderer) pagePath(n int) string {
	name := fmt.Sprintf("%s_%02d.png", strings.TrimSpace(r.opts.Prefix), n)
	return filepath.Join(r.opts.OutputDir, name)
}

// Close shuts the browser down and cleans up a locally launched Chrome.
func (r *ImageRenderer) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
	return err
}
