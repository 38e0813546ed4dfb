// Package storage defines the interface for persisting article records.
// The abstraction keeps the traversal engine independent of the concrete
// backend (local filesystem, Google Cloud Storage, or memory for tests).
package storage

import (
	"context"
	"path"
)

// Provider is the common interface for an article record store.
type Provider interface {
	// Save writes data under the given object name, overwriting any
	// previous content.
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider discards every write. Useful for dry runs where articles
// are fetched and indexed but records are not persisted.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}

// WithPrefix returns a Provider that stores every object under the given
// prefix. Shared backends (one GCS bucket holding several sections) use it
// to keep section namespaces apart.
func WithPrefix(inner Provider, prefix string) Provider {
	if prefix == "" {
		return inner
	}
	return prefixProvider{inner: inner, prefix: prefix}
}

type prefixProvider struct {
	inner  Provider
	prefix string
}

func (p prefixProvider) Save(ctx context.Context, objectName string, data []byte) error {
	return p.inner.Save(ctx, path.Join(p.prefix, objectName), data)
}
