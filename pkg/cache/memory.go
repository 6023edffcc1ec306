package cache

import (
	"sync"

	"github.com/redcube-studio/postforge/pkg/artifact"
)

// MemoryCache is an in-process Cache for tests and single-shot runs.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*artifact.Artifact
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*artifact.Artifact)}
}

func key(topic, stage string) string {
	return cleanKey(topic) + "/" + cleanKey(stage)
}

func (c *MemoryCache) Get(topic, stage string) (*artifact.Artifact, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[key(topic, stage)]
	return a, ok, nil
}

func (c *MemoryCache) Put(topic, stage string, a *artifact.Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(topic, stage)] = a
	return nil
}

func (c *MemoryCache) Invalidate(topic, stage string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key(topic, stage))
	return nil
}

func (c *MemoryCache) Close() error { return nil }

// Len reports the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
