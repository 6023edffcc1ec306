package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/redcube-studio/postforge/pkg/artifact"
)

// FileCache stores artifacts as {root}/{topic}/{stage}.json.
type FileCache struct {
	root string
}

// NewFileCache creates the cache root directory if needed.
func NewFileCache(root string) (*FileCache, error) {
	if root == "" {
		return nil, fmt.Errorf("cache root is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &FileCache{root: root}, nil
}

func (c *FileCache) path(topic, stage string) string {
	return filepath.Join(c.root, cleanKey(topic), cleanKey(stage)+".json")
}

func (c *FileCache) Get(topic, stage string) (*artifact.Artifact, bool, error) {
	data, err := os.ReadFile(c.path(topic, stage))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry %s/%s: %w", topic, stage, err)
	}
	a, err := artifact.Unmarshal(data)
	if err != nil {
		// A corrupt entry behaves like a miss but the caller should know.
		return nil, false, fmt.Errorf("corrupt cache entry %s/%s: %w", topic, stage, err)
	}
	return a, true, nil
}

func (c *FileCache) Put(topic, stage string, a *artifact.Artifact) error {
	data, err := a.Marshal()
	if err != nil {
		return fmt.Errorf("encode cache entry %s/%s: %w", topic, stage, err)
	}
	path := c.path(topic, stage)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create topic directory: %w", err)
	}
	// Write-then-rename so readers never observe a partial entry.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache entry %s/%s: %w", topic, stage, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit cache entry %s/%s: %w", topic, stage, err)
	}
	return nil
}

func (c *FileCache) Invalidate(topic, stage string) error {
	err := os.Remove(c.path(topic, stage))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// InvalidateTopic removes every cached stage for a topic.
func (c *FileCache) InvalidateTopic(topic string) error {
	err := os.RemoveAll(filepath.Join(c.root, cleanKey(topic)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *FileCache) Close() error { return nil }
