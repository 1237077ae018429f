// Package watermark persists the incremental-load watermark as a single
// GCS object holding one timestamp string.
package watermark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/retail-etl/internal/etl"
)

// GCSStore reads and writes the watermark object. A missing object means no
// run has completed yet; Read then returns an empty watermark, which makes
// the next extract take everything.
type GCSStore struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSStore creates a store over the given bucket and object name.
func NewGCSStore(ctx context.Context, bucket, object string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: creating storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, object: object}, nil
}

// Close closes the storage client.
func (s *GCSStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Read returns the current watermark, or "" if none has been written.
func (s *GCSStore) Read(ctx context.Context) (string, error) {
	rc, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("Read: opening %s/%s: %w", s.bucket, s.object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("Read: reading %s/%s: %w", s.bucket, s.object, err)
	}

	return strings.TrimSpace(string(data)), nil
}

// Write replaces the watermark object with the new value.
func (s *GCSStore) Write(ctx context.Context, value string) error {
	w := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	if _, err := io.WriteString(w, value); err != nil {
		_ = w.Close()
		return fmt.Errorf("Write: writing %s/%s: %w", s.bucket, s.object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Write: finalizing %s/%s: %w", s.bucket, s.object, err)
	}
	return nil
}

var _ etl.WatermarkStore = (*GCSStore)(nil)
