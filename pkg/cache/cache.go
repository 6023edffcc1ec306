// Package cache persists stage artifacts keyed by (topic, stage name).
// The pipeline consults it before every generation call, so for a given
// key at most one generation is paid per cache lifetime unless the
// caller forces regeneration.
package cache

import (
	"strings"

	"github.com/redcube-studio/postforge/pkg/artifact"
)

// Cache stores one artifact per (topic, stage) key. Writes replace the
// entry wholesale; entries are never patched in place.
type Cache interface {
	// Get returns the cached artifact and whether it was present.
	// Storage-level read problems are returned as errors so callers can
	// decide to treat them as misses.
	Get(topic, stage string) (*artifact.Artifact, bool, error)

	// Put stores an artifact under the key, overwriting any previous
	// entry. Last write wins.
	Put(topic, stage string, a *artifact.Artifact) error

	// Invalidate removes the entry, forcing regeneration on next use.
	// Removing an absent entry is not an error.
	Invalidate(topic, stage string) error

	Close() error
}

// cleanKey makes a topic or stage name safe for use as a file or path
// component. Mirrors the output directory naming used elsewhere.
func cleanKey(s string) string {
	replacer := strings.NewReplacer(
		"<", "_", ">", "_", ":", "_", `"`, "_",
		"/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
		" ", "-",
	)
	return strings.Trim(replacer.Replace(s), ". ")
}
