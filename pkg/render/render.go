// Package render turns the pipeline's final artifacts into publishable
// files: one PNG per page element of the encoded HTML, and optionally a
// PDF digest of the design spec. Rendering sits outside the stage
// pipeline; it consumes artifacts, it never produces them.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/redcube-studio/postforge/pkg/artifact"
)

// PageImage is one rendered page.
type PageImage struct {
	Page int    `json:"page"`
	Path string `json:"path"`
}

// Result reports what a render produced. Pages render independently;
// a failed page is reported in Failed without aborting the rest.
type Result struct {
	Images []PageImage `json:"images"`
	Failed []int       `json:"failed,omitempty"`
}

// Document is the renderable slice of an encode artifact.
type Document struct {
	HTML     string
	Selector string
}

// DocumentFrom extracts the HTML document and page selector from an
// encode artifact.
func DocumentFrom(a *artifact.Artifact) (Document, error) {
	if a == nil {
		return Document{}, fmt.Errorf("render: nil artifact")
	}
	html, _ := a.Payload["html"].(string)
	if html == "" {
		return Document{}, fmt.Errorf("render: artifact %s has no html payload", a.Stage)
	}
	selector, _ := a.Payload["page_selector"].(string)
	if selector == "" {
		selector = ".post-page"
	}
	return Document{HTML: html, Selector: selector}, nil
}

// writeTempHTML writes the document next to the output images so the
// browser loads it over file:// with a stable relative base.
func writeTempHTML(dir, html string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("render: create output dir: %w", err)
	}
	path := filepath.Join(dir, "post.html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("render: write html: %w", err)
	}
	return path, nil
}
