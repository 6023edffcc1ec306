package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// ErrNotLoggedIn is returned when the creator console shows no signed-in
// session. Logging in is interactive and stays the operator's job.
var ErrNotLoggedIn = errors.New("publish: not logged in to creator console")

// Selectors lists candidate CSS selectors per control. Creator consoles
// change markup without notice, so every control is located by trying
// candidates in order until one resolves.
type Selectors struct {
	LoggedIn    []string
	FileInput   []string
	TitleInput  []string
	BodyInput   []string
	SubmitBtn   []string
	PublishedOK []string
}

// DefaultSelectors matches the xiaohongshu creator console.
func DefaultSelectors() Selectors {
	return Selectors{
		LoggedIn: []string{
			".creator-header", ".publish-btn", `[data-testid="publish-btn"]`,
		},
		FileInput: []string{
			"input[type=file]", "input[accept*=image]", ".upload-input",
			".dnd-upload input[type=file]", ".upload-wrapper input[type=file]",
		},
		TitleInput: []string{
			".title-input", ".note-title-input", `[data-testid="title-input"]`,
			".publish-title input", ".title-area input",
		},
		BodyInput: []string{
			".desc-input", ".note-desc-input", ".content-input",
			`[data-testid="description-input"]`, ".publish-content textarea",
			".content-area textarea",
		},
		SubmitBtn: []string{
			".publish-btn", ".submit-btn", `[data-testid="publish-btn"]`,
			"button[type='submit']",
		},
		PublishedOK: []string{
			".success-message", ".publish-success", `[data-testid="success"]`,
		},
	}
}

// BrowserOptions configures the browser publisher.
type BrowserOptions struct {
	// CreatorURL is the console landing page used for the login check.
	CreatorURL string
	// PublishURL is the image-post composer.
	PublishURL string

	// ControlURL connects to an external Chrome; empty launches locally.
	// Publishing defaults to headful so the operator can watch and, if
	// needed, complete a login challenge.
	ControlURL string
	Headless   bool

	Selectors Selectors

	// ElementTimeout bounds each candidate-selector probe. Default 3s.
	ElementTimeout time.Duration
	// StepTimeout bounds each whole step (upload, fill, submit). Default 30s.
	StepTimeout time.Duration

	Logger *slog.Logger
}

func (o *BrowserOptions) defaults() {
	if o.CreatorURL == "" {
		o.CreatorURL = "https://creator.xiaohongshu.com"
	}
	if o.PublishURL == "" {
		o.PublishURL = "https://creator.xiaohongshu.com/publish/publish"
	}
	if len(o.Selectors.FileInput) == 0 {
		o.Selectors = DefaultSelectors()
	}
	if o.ElementTimeout <= 0 {
		o.ElementTimeout = 3 * time.Second
	}
	if o.StepTimeout <= 0 {
		o.StepTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// BrowserPublisher drives the creator console through a stealth browser
// session: login check, image upload, title and caption, submit.
type BrowserPublisher struct {
	opts    BrowserOptions
	browser *rod.Browser
	lnch    *launcher.Launcher
	log     *slog.Logger
}

func NewBrowserPublisher(opts BrowserOptions) (*BrowserPublisher, error) {
	opts.defaults()
	p := &BrowserPublisher{opts: opts, log: opts.Logger}

	wsURL := opts.ControlURL
	if wsURL == "" {
		l := launcher.New().
			Headless(opts.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("publish: launch chrome: %w", err)
		}
		p.lnch = l
		wsURL = u
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if p.lnch != nil {
			p.lnch.Cleanup()
		}
		return nil, fmt.Errorf("publish: connect chrome: %w", err)
	}
	p.browser = b
	return p, nil
}

func (p *BrowserPublisher) Name() string { return "browser" }

// Publish runs the full delivery flow. It fails fast on a missing login
// session; everything after that retries through selector candidates.
func (p *BrowserPublisher) Publish(ctx context.Context, d Draft) error {
	page, err := stealth.Page(p.browser)
	if err != nil {
		return fmt.Errorf("publish: open page: %w", err)
	}
	defer page.Close()

	if err := p.checkLogin(ctx, page); err != nil {
		return err
	}
	if err := p.uploadImages(ctx, page, d.Images); err != nil {
		return err
	}
	if err := p.fillContent(ctx, page, d); err != nil {
		return err
	}
	return p.submit(ctx, page)
}

func (p *BrowserPublisher) checkLogin(ctx context.Context, page *rod.Page) error {
	stepCtx, cancel := context.WithTimeout(ctx, p.opts.StepTimeout)
	defer cancel()

	if err := page.Context(stepCtx).Navigate(p.opts.CreatorURL); err != nil {
		return fmt.Errorf("publish: open creator console: %w", err)
	}
	if err := page.Context(stepCtx).WaitLoad(); err != nil {
		p.log.Warn("publish: console load wait timed out", "err", err)
	}
	if _, ok := p.firstElement(stepCtx, page, p.opts.Selectors.LoggedIn); !ok {
		return ErrNotLoggedIn
	}
	p.log.Info("publish: login session confirmed")
	return nil
}

func (p *BrowserPublisher) uploadImages(ctx context.Context, page *rod.Page, images []string) error {
	stepCtx, cancel := context.WithTimeout(ctx, p.opts.StepTimeout)
	defer cancel()

	if err := page.Context(stepCtx).Navigate(p.opts.PublishURL); err != nil {
		return fmt.Errorf("publish: open composer: %w", err)
	}
	if err := page.Context(stepCtx).WaitLoad(); err != nil {
		p.log.Warn("publish: composer load wait timed out", "err", err)
	}

	input, ok := p.firstElement(stepCtx, page, p.opts.Selectors.FileInput)
	if !ok {
		return fmt.Errorf("publish: no file input matched %s", strings.Join(p.opts.Selectors.FileInput, ", "))
	}
	if err := input.SetFiles(images); err != nil {
		return fmt.Errorf("publish: attach images: %w", err)
	}
	p.log.Info("publish: images attached", "count", len(images))
	return nil
}

func (p *BrowserPublisher) fillContent(ctx context.Context, page *rod.Page, d Draft) error {
	stepCtx, cancel := context.WithTimeout(ctx, p.opts.StepTimeout)
	defer cancel()

	title, ok := p.firstElement(stepCtx, page, p.opts.Selectors.TitleInput)
	if !ok {
		return fmt.Errorf("publish: no title input found")
	}
	if err := title.Input(d.Title); err != nil {
		return fmt.Errorf("publish: type title: %w", err)
	}

	body, ok := p.firstElement(stepCtx, page, p.opts.Selectors.BodyInput)
	if !ok {
		return fmt.Errorf("publish: no caption input found")
	}
	text := d.Body
	if len(d.Tags) > 0 {
		text += "\n" + strings.Join(d.Tags, " ")
	}
	if err := body.Input(text); err != nil {
		return fmt.Errorf("publish: type caption: %w", err)
	}
	return nil
}

func (p *BrowserPublisher) submit(ctx context.Context, page *rod.Page) error {
	stepCtx, cancel := context.WithTimeout(ctx, p.opts.StepTimeout)
	defer cancel()

	btn, ok := p.firstElement(stepCtx, page, p.opts.Selectors.SubmitBtn)
	if !ok {
		return fmt.Errorf("publish: no submit button found")
	}
	if err := btn.Click("left", 1); err != nil {
		return fmt.Errorf("publish: click submit: %w", err)
	}

	if _, ok := p.firstElement(stepCtx, page, p.opts.Selectors.PublishedOK); !ok {
		// The console sometimes redirects before the toast renders, so
		// a missing confirmation is reported, not fatal.
		p.log.Warn("publish: submitted but no confirmation indicator appeared")
		return nil
	}
	p.log.Info("publish: post published")
	return nil
}

// firstElement probes candidates in order, each with its own short
// timeout, and returns the first that resolves.
func (p *BrowserPublisher) firstElement(ctx context.Context, page *rod.Page, candidates []string) (*rod.Element, bool) {
	for _, sel := range candidates {
		probeCtx, cancel := context.WithTimeout(ctx, p.opts.ElementTimeout)
		el, err := page.Context(probeCtx).Element(sel)
		cancel()
		if err == nil && el != nil {
			p.log.Debug("publish: selector matched", "selector", sel)
			return el, true
		}
	}
	return nil, false
}

// Close shuts down the browser session.
func (p *BrowserPublisher) Close() error {
	var err error
	if p.browser != nil {
		err = p.browser.Close()
		p.browser = nil
	}
	if p.lnch != nil {
		p.lnch.Cleanup()
		p.lnch = nil
	}
	return err
}
