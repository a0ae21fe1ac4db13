package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"segno/internal/config"
)

// ObjectInfo describes a stored blob.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Gateway is the interface the pipeline uses to read uploads and write parts.
type Gateway interface {
	// Download opens the object at key for reading. The caller closes the
	// returned reader.
	Download(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Upload writes the object at key, replacing any existing content, and
	// returns an opaque version tag.
	Upload(ctx context.Context, key string, contentType string, r io.Reader) (string, error)

	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the gateway selected by the configuration.
func New(ctx context.Context, cfg *config.Config) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", "local":
		return NewLocal(cfg.Storage.LocalDir)
	case "gcs":
		return NewGCS(ctx, cfg.Storage.GCSBucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
