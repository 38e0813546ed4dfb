// Package database mirrors saved article records into a relational store.
// The filesystem index stays the source of truth; the mirror exists for
// ad-hoc queries and for the database-backed correspondence searcher.
package database

import (
	"context"
	"time"
)

// Row is the article projection written to the mirror. The full record
// JSON lands in the payload column so queries over fields the schema does
// not break out remain possible.
type Row struct {
	RunID       string
	Section     string
	Category    string
	URL         string
	Filename    string
	Title       string
	ContentHash string
	Payload     []byte
	CrawledAt   time.Time
}

// Provider is the persistence contract for the article mirror.
type Provider interface {
	// SaveArticle upserts one article row keyed by URL.
	SaveArticle(ctx context.Context, row Row) error

	// FindContaining returns, sorted, the filenames of rows in the given
	// section whose serialized payload contains the literal.
	FindContaining(ctx context.Context, section, literal string) ([]string, error)

	// Close terminates the database connection and releases any resources.
	Close() error
}

// NoOpProvider satisfies Provider without touching a database. It is used
// when no mirror is configured.
type NoOpProvider struct{}

// SaveArticle for NoOpProvider does nothing.
func (NoOpProvider) SaveArticle(context.Context, Row) error { return nil }

// FindContaining for NoOpProvider reports no matches.
func (NoOpProvider) FindContaining(context.Context, string, string) ([]string, error) {
	return nil, nil
}

// Close for NoOpProvider does nothing.
func (NoOpProvider) Close() error { return nil }
