package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"segno/internal/config"
)

// Cache is a per-session scratch directory under the staging root holding the
// downloaded PDF and rendered page images. Release removes it and is safe to
// call more than once.
type Cache struct {
	dir string

	mu       sync.Mutex
	released bool
}

// NewCache creates the scratch directory for a session.
func NewCache(cfg *config.Config, sessionID string) (*Cache, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	dir := filepath.Join(cfg.Paths.StagingDir, "render", sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create render cache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// SourcePath returns where the downloaded original PDF lives in the cache.
func (c *Cache) SourcePath() string {
	return filepath.Join(c.dir, "original.pdf")
}

// Release deletes the scratch directory. Idempotent.
func (c *Cache) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	c.released = true
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("remove render cache: %w", err)
	}
	return nil
}
