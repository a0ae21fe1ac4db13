package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	bucket *gcs.BucketHandle
	name   string
}

// NewGCS connects to the configured bucket using ambient credentials.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{bucket: client.Bucket(bucket), name: bucket}, nil
}

// Download opens the object at key for reading.
func (g *GCS) Download(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	reader, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("object %q not found in bucket %s", key, g.name)
		}
		return nil, ObjectInfo{}, fmt.Errorf("open gcs object %q: %w", key, err)
	}
	info := ObjectInfo{
		Key:         key,
		Size:        reader.Attrs.Size,
		ContentType: reader.Attrs.ContentType,
	}
	if info.ContentType == "" {
		info.ContentType = contentTypeForKey(key)
	}
	return reader, info, nil
}

// Upload writes the object only when it does not already exist, so a retried
// job that re-uploads the same part is a no-op rather than a failure.
func (g *GCS) Upload(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	writer := g.bucket.Object(key).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			return g.existingGeneration(ctx, key)
		}
		return "", fmt.Errorf("write gcs object %q: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			return g.existingGeneration(ctx, key)
		}
		return "", fmt.Errorf("finalize gcs object %q: %w", key, err)
	}
	return fmt.Sprintf("%d", writer.Attrs().Generation), nil
}

// Exists reports whether the object is present.
func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat gcs object %q: %w", key, err)
	}
	return true, nil
}

func (g *GCS) existingGeneration(ctx context.Context, key string) (string, error) {
	attrs, err := g.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return "", fmt.Errorf("stat existing gcs object %q: %w", key, err)
	}
	return fmt.Sprintf("%d", attrs.Generation), nil
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 412
}
