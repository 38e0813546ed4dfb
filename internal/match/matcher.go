// Package match implements the offline correspondence job: pairing articles
// from one crawled corpus with articles from another that share an image
// reference.
package match

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rriarchive/harvester/internal/article"
)

// DefaultSearchTimeout bounds one containment search; a search that runs
// past it counts as zero matches.
const DefaultSearchTimeout = 30 * time.Second

// DefaultOutputFile is where the correspondence report lands.
const DefaultOutputFile = "correspondences.json"

// dataURLPrefix marks inline image payloads. They are per-document and
// never shared between articles, so they are excluded from matching.
const dataURLPrefix = "data:"

// Record pairs one Aromanian article with every Romanian article that
// shares at least one of its image references. Records with an empty match
// set are never emitted.
type Record struct {
	AromanianArticle string   `json:"aromanian_article"`
	RomanianArticles []string `json:"romanian_articles"`
}

// Summary reports what one matching run did.
type Summary struct {
	Articles       int
	Matched        int
	Pairs          int
	Searches       int
	SearchFailures int
}

// Config holds the settings for a matching run.
type Config struct {
	// CorpusDir is the directory holding the corpus-A article records.
	CorpusDir string
	// OutputFile is the report path, fully overwritten on each run.
	OutputFile string
	// SearchTimeout bounds each containment search.
	SearchTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.OutputFile == "" {
		c.OutputFile = DefaultOutputFile
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = DefaultSearchTimeout
	}
	return c
}

// Matcher walks corpus A in sorted filename order and asks the searcher
// which corpus-B records contain each image reference. The searcher is the
// only part that knows how corpus B is stored.
type Matcher struct {
	cfg      Config
	searcher Searcher
	logger   *zap.Logger
}

// New builds a Matcher.
func New(cfg Config, searcher Searcher, logger *zap.Logger) (*Matcher, error) {
	if cfg.CorpusDir == "" {
		return nil, fmt.Errorf("corpus directory is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{cfg: cfg.withDefaults(), searcher: searcher, logger: logger}, nil
}

// Run matches every corpus-A record and overwrites the report file. The
// corpus is processed in sorted filename order and each match set is
// sorted, so repeated runs over unchanged corpora produce byte-identical
// output. A malformed record or a failed search is logged and skipped;
// only a missing corpus or an unwritable report is fatal.
func (m *Matcher) Run(ctx context.Context) (Summary, error) {
	names, err := m.corpusFiles()
	if err != nil {
		return Summary{}, err
	}
	m.logger.Info("matching corpus",
		zap.String("dir", m.cfg.CorpusDir),
		zap.Int("articles", len(names)),
	)

	var summary Summary
	records := []Record{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("matching interrupted: %w", err)
		}
		rec, ok := m.loadRecord(name)
		if !ok {
			continue
		}
		summary.Articles++

		matches := make(map[string]struct{})
		for _, ref := range rec.ImageURLs {
			if ref == "" || strings.HasPrefix(ref, dataURLPrefix) {
				continue
			}
			summary.Searches++
			found, err := m.search(ctx, ref)
			if err != nil {
				summary.SearchFailures++
				m.logger.Warn("image search failed, counting zero matches",
					zap.String("article", name),
					zap.String("image_url", ref),
					zap.Error(err),
				)
				continue
			}
			for _, f := range found {
				matches[f] = struct{}{}
			}
		}
		if len(matches) == 0 {
			m.logger.Debug("no correspondences", zap.String("article", name))
			continue
		}

		sorted := make([]string, 0, len(matches))
		for f := range matches {
			sorted = append(sorted, f)
		}
		sort.Strings(sorted)
		records = append(records, Record{AromanianArticle: name, RomanianArticles: sorted})
		summary.Matched++
		summary.Pairs += len(sorted)
		m.logger.Info("correspondences found",
			zap.String("article", name),
			zap.Int("matches", len(sorted)),
		)
	}

	if err := m.writeReport(records); err != nil {
		return summary, err
	}
	m.logger.Info("matching finished",
		zap.Int("articles", summary.Articles),
		zap.Int("matched", summary.Matched),
		zap.Int("pairs", summary.Pairs),
		zap.Int("search_failures", summary.SearchFailures),
		zap.String("output", m.cfg.OutputFile),
	)
	return summary, nil
}

// corpusFiles lists the corpus-A record filenames, sorted.
func (m *Matcher) corpusFiles() ([]string, error) {
	dirEntries, err := os.ReadDir(m.cfg.CorpusDir)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", m.cfg.CorpusDir, err)
	}
	names := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (m *Matcher) loadRecord(name string) (article.Article, bool) {
	path := filepath.Join(m.cfg.CorpusDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		m.logger.Warn("skipping unreadable record", zap.String("path", path), zap.Error(err))
		return article.Article{}, false
	}
	var rec article.Article
	if err := json.Unmarshal(data, &rec); err != nil {
		m.logger.Warn("skipping malformed record", zap.String("path", path), zap.Error(err))
		return article.Article{}, false
	}
	return rec, true
}

func (m *Matcher) search(ctx context.Context, needle string) ([]string, error) {
	sctx, cancel := context.WithTimeout(ctx, m.cfg.SearchTimeout)
	defer cancel()
	return m.searcher.ContainsLiteral(sctx, needle)
}

func (m *Matcher) writeReport(records []Record) error {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(m.cfg.OutputFile, payload, 0o600); err != nil {
		return fmt.Errorf("write report %s: %w", m.cfg.OutputFile, err)
	}
	return nil
}
