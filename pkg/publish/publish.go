// Package publish carries a rendered post across the boundary to its
// destination platform. Everything upstream is deterministic and typed;
// this package is where the process meets a live website, so it is built
// around candidate selectors and explicit failure reporting rather than
// guarantees.
package publish

import (
	"context"
	"fmt"

	"github.com/redcube-studio/postforge/pkg/artifact"
)

// Draft is a ready-to-publish post: chosen title, caption body, tags,
// and the rendered page images in order.
type Draft struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Tags   []string `json:"tags,omitempty"`
	Images []string `json:"images"`
}

// Publisher delivers a draft to a destination.
type Publisher interface {
	Publish(ctx context.Context, d Draft) error
	Name() string
}

// DraftFrom assembles a Draft from the design artifact and the rendered
// image paths. The first candidate title wins; tags come from the
// design's hashtags.
func DraftFrom(design *artifact.Artifact, images []string) (Draft, error) {
	if design == nil {
		return Draft{}, fmt.Errorf("publish: nil design artifact")
	}
	if len(images) == 0 {
		return Draft{}, fmt.Errorf("publish: no rendered images")
	}

	d := Draft{Images: images}
	if titles, ok := design.Payload["titles"].([]any); ok && len(titles) > 0 {
		d.Title, _ = titles[0].(string)
	}
	if d.Title == "" {
		d.Title = design.Topic
	}
	d.Body, _ = design.Payload["caption"].(string)
	if tags, ok := design.Payload["hashtags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok && s != "" {
				d.Tags = append(d.Tags, s)
			}
		}
	}
	return d, nil
}
