// Package gcs mirrors article records to a Google Cloud Storage bucket as
// an archival target. The local filesystem stays the source of truth; GCS
// never replaces the record the matcher reads.
package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// Store writes article records to a configured GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
}

// New wraps an existing client. Used directly in tests; production code
// goes through Connect.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Connect builds a client with Application Default Credentials and verifies
// the bucket up front so misconfiguration fails at startup, not mid-crawl.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("get GCS bucket %q attributes: %w", cfg.Bucket, err)
	}
	return New(client, cfg)
}

// Save uploads the record to the bucket.
func (s *Store) Save(ctx context.Context, objectName string, data []byte) error {
	wc := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write GCS object %s: %w", objectName, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close GCS writer for object %s: %w", objectName, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close GCS client: %w", err)
	}
	return nil
}
