package engine

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rriarchive/harvester/internal/article"
	"github.com/rriarchive/harvester/internal/fetch"
)

// Fetcher retrieves one URL and returns the parsed page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Extractor maps a fetched document plus its URL into an Article record.
type Extractor interface {
	Extract(doc *goquery.Document, pageURL string) article.Article
}

// Publisher pushes article-indexed events to a message bus (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for the article mirror rows.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
