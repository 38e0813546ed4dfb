// Package publisher defines the event publishing contract for crawl runs.
// This abstraction keeps the application independent of a specific message
// bus implementation (e.g., GCP Pub/Sub, RabbitMQ, Kafka).
package publisher

import (
	"context"

	"github.com/rriarchive/harvester/internal/article"
)

// ArticleIndexed is the payload published after a record first enters the
// section index. Downstream consumers use it to react to new articles
// without polling the index file.
type ArticleIndexed struct {
	RunID   string             `json:"run_id"`
	Section string             `json:"section"`
	Entry   article.IndexEntry `json:"entry"`
}

// Publisher defines the common interface for an event publisher.
type Publisher interface {
	// Publish marshals the payload and sends it to the configured topic.
	// It returns the server-assigned message ID.
	Publish(ctx context.Context, topic string, payload any) (string, error)

	// Close cleans up any client connections and resources.
	Close() error
}

// NoOp is a publisher that performs no operations. It is used when no
// message bus is configured.
type NoOp struct{}

// Publish for NoOp does nothing and returns a dummy ID.
func (NoOp) Publish(_ context.Context, _ string, _ any) (string, error) {
	return "noop", nil
}

// Close for NoOp does nothing.
func (NoOp) Close() error { return nil }
