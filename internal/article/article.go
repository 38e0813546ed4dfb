// Package article defines the persisted data contracts of the harvester:
// index entries, full article records, and the derived progress and
// statistics snapshots.
package article

import (
	"fmt"
	"time"
)

// IndexEntry is the lightweight per-article row of the crawl index. The URL
// uniquely identifies an entry; presence in the index means the full record
// has already been durably written.
type IndexEntry struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Date     string `json:"date,omitempty"`
	Category string `json:"category"`
	Filename string `json:"filename"`
}

// Validate checks the fields an entry cannot function without. Entries
// failing validation are dropped individually at load time rather than
// aborting the whole index.
func (e IndexEntry) Validate() error {
	if e.URL == "" {
		return fmt.Errorf("index entry missing url")
	}
	if e.Filename == "" {
		return fmt.Errorf("index entry %q missing filename", e.URL)
	}
	return nil
}

// Article is the full per-article record persisted to storage. It is
// written before its IndexEntry so that a torn write can leave an orphan
// record but never an index entry without a backing record.
type Article struct {
	IndexEntry
	Content   string    `json:"content"`
	AudioURL  string    `json:"audio_url,omitempty"`
	ImageURLs []string  `json:"image_urls"`
	CrawledAt time.Time `json:"crawled_at"`
}

// Progress is the durable record of fetch failures plus the time state was
// last flushed.
type Progress struct {
	FailedURLs []string  `json:"failed_urls"`
	LastSaved  time.Time `json:"last_saved"`
}

// Stats is a derived, non-authoritative view recomputed from the index on
// every save. Safe to delete and regenerate; never read back as input.
type Stats struct {
	TotalArticles      int            `json:"total_articles"`
	FailedURLs         int            `json:"failed_urls"`
	ArticlesByCategory map[string]int `json:"articles_by_category"`
	LastUpdated        time.Time      `json:"last_updated"`
}

// DeriveStats recomputes the statistics snapshot from index entries and the
// failed-URL set.
func DeriveStats(entries []IndexEntry, failed []string, now time.Time) Stats {
	byCategory := make(map[string]int, len(entries))
	for _, e := range entries {
		byCategory[e.Category]++
	}
	return Stats{
		TotalArticles:      len(entries),
		FailedURLs:         len(failed),
		ArticlesByCategory: byCategory,
		LastUpdated:        now,
	}
}
