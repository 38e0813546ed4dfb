package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rriarchive/harvester/internal/article"
	"github.com/rriarchive/harvester/internal/database"
	"github.com/rriarchive/harvester/internal/hash/sha256"
	"github.com/rriarchive/harvester/internal/progress"
	"github.com/rriarchive/harvester/internal/publisher"
	"github.com/rriarchive/harvester/internal/section"
	"github.com/rriarchive/harvester/internal/state"
	"github.com/rriarchive/harvester/internal/storage"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultBaseURL         = "https://www.rri.ro"
	DefaultMaxPages        = 100
	DefaultCheckpointEvery = 10
	DefaultConcurrency     = 2
	DefaultTopic           = "article.indexed"
)

// recordPrefix is the storage directory for full article records.
const recordPrefix = "articles"

// Config holds the settings for a crawl run. It is decoupled from Viper so
// the engine stays testable without configuration machinery.
type Config struct {
	BaseURL         string
	Category        string
	MaxPages        int
	CheckpointEvery int
	Concurrency     int
	Topic           string
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = DefaultCheckpointEvery
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	return c
}

// Summary reports what one crawl run did. Skipped counts URLs already in
// the index before the run; Duplicates counts URLs rediscovered after being
// claimed earlier in the same run (typically a failed article seen again on
// a later page).
type Summary struct {
	RunID        string
	Section      string
	PagesVisited int
	NewArticles  int
	Skipped      int
	Duplicates   int
	Failed       int
	Elapsed      time.Duration
}

// Engine walks one section's categories breadth-first, feeding newly
// discovered article URLs through the fetch/extract/persist pipeline while
// skipping URLs already present in the index. An Engine runs one crawl at a
// time; Run is not safe for concurrent calls.
type Engine struct {
	cfg       Config
	section   *section.Section
	logger    *zap.Logger
	fetcher   Fetcher
	extractor Extractor
	store     state.Store
	records   storage.Provider
	db        database.Provider
	pub       Publisher
	emitter   progress.Emitter
	hasher    Hasher
	clock     Clock
	ids       IDGenerator

	checkpointMu sync.Mutex

	runID         string
	state         *state.State
	pagesVisited  int
	skipped       atomic.Int64
	duplicates    atomic.Int64
	failedThisRun atomic.Int64
}

// New constructs an Engine for one section. The database provider,
// publisher and emitter may be nil; they default to no-ops.
func New(
	sec *section.Section,
	cfg Config,
	logger *zap.Logger,
	fetcher Fetcher,
	extractor Extractor,
	store state.Store,
	records storage.Provider,
	db database.Provider,
	pub Publisher,
	emitter progress.Emitter,
	hasher Hasher,
	clock Clock,
	ids IDGenerator,
) (*Engine, error) {
	if sec == nil {
		return nil, fmt.Errorf("section is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record storage is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if db == nil {
		db = database.NoOpProvider{}
	}
	if pub == nil {
		pub = publisher.NoOp{}
	}
	if hasher == nil {
		hasher = sha256.New()
	}
	return &Engine{
		cfg:       cfg.withDefaults(),
		section:   sec,
		logger:    logger,
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		records:   records,
		db:        db,
		pub:       pub,
		emitter:   emitter,
		hasher:    hasher,
		clock:     clock,
		ids:       ids,
	}, nil
}

// Run executes one crawl over the section's categories. A failure in one
// category is logged and traversal proceeds to the next; cancellation stops
// cleanly between page visits. State accumulated so far is flushed on every
// exit path, including cancellation.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	categories := e.section.CategoryPaths
	if e.cfg.Category != "" {
		matched, err := e.section.MatchCategory(e.cfg.Category)
		if err != nil {
			return Summary{}, err
		}
		categories = []string{matched}
	}

	runID, err := e.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("new run id: %w", err)
	}
	e.runID = runID
	e.state = state.NewState()
	e.pagesVisited = 0
	e.skipped.Store(0)
	e.duplicates.Store(0)
	e.failedThisRun.Store(0)
	start := e.clock.Now()

	entries, failed, err := e.store.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load crawl state: %w", err)
	}
	e.state.Restore(entries, failed)
	e.logger.Info("crawl starting",
		zap.String("run_id", runID),
		zap.String("section", e.section.Name),
		zap.Int("indexed", e.state.Len()),
		zap.Int("failed_urls", e.state.FailedCount()),
		zap.Int("categories", len(categories)),
	)
	e.emit(progress.Event{Stage: progress.StageRunStart})

	var runErr error
	for _, categoryPath := range categories {
		if err := e.crawlCategory(ctx, categoryPath); err != nil {
			if ctx.Err() != nil {
				runErr = err
				e.logger.Info("crawl canceled, flushing state", zap.String("run_id", runID))
				break
			}
			label := e.section.CategoryOf(e.cfg.BaseURL + categoryPath)
			e.logger.Error("category crawl failed, continuing with next",
				zap.String("category", categoryPath),
				zap.Error(err),
			)
			e.emit(progress.Event{Stage: progress.StageCategoryError, Category: label, Note: err.Error()})
		}
	}

	if err := e.checkpoint(context.WithoutCancel(ctx)); err != nil {
		e.logger.Error("final state flush failed", zap.Error(err))
	}

	elapsed := e.clock.Now().Sub(start)
	summary := Summary{
		RunID:        runID,
		Section:      e.section.Name,
		PagesVisited: e.pagesVisited,
		NewArticles:  e.state.NewThisRun(),
		Skipped:      int(e.skipped.Load()),
		Duplicates:   int(e.duplicates.Load()),
		Failed:       int(e.failedThisRun.Load()),
		Elapsed:      elapsed,
	}
	if runErr != nil {
		e.emit(progress.Event{Stage: progress.StageRunError, Dur: elapsed, Note: runErr.Error()})
		return summary, runErr
	}
	e.logger.Info("crawl finished",
		zap.String("run_id", runID),
		zap.Int("pages_visited", summary.PagesVisited),
		zap.Int("new_articles", summary.NewArticles),
		zap.Int("skipped", summary.Skipped),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", elapsed),
	)
	e.emit(progress.Event{Stage: progress.StageRunDone, Dur: elapsed})
	return summary, nil
}

// crawlCategory drains the breadth-first page queue for one category entry
// point, stopping when the queue empties or the page ceiling is reached.
func (e *Engine) crawlCategory(ctx context.Context, categoryPath string) error {
	categoryURL := e.cfg.BaseURL + categoryPath
	label := e.section.CategoryOf(categoryURL)
	e.logger.Info("crawling category",
		zap.String("category", label),
		zap.String("url", categoryURL),
	)
	e.emit(progress.Event{Stage: progress.StageCategoryStart, Category: label})

	queue := newPageQueue()
	queue.Push(categoryURL)
	visited := 0
	for queue.Len() > 0 && visited < e.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			e.pagesVisited += visited
			return err
		}
		pageURL, _ := queue.Pop()
		visited++
		if err := e.visitPage(ctx, queue, pageURL); err != nil {
			e.pagesVisited += visited
			return err
		}
	}
	e.pagesVisited += visited

	if err := e.checkpoint(ctx); err != nil {
		return fmt.Errorf("category %s checkpoint: %w", label, err)
	}
	e.emit(progress.Event{Stage: progress.StageCategoryDone, Category: label})
	return nil
}

// visitPage fetches one listing page, harvests its links, queues new
// pagination pages, and runs the article pipeline for new article links. A
// failed page fetch is recorded and abandoned, never retried within the run.
func (e *Engine) visitPage(ctx context.Context, queue *pageQueue, pageURL string) error {
	start := e.clock.Now()
	res, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.failedThisRun.Add(1)
		e.state.RecordFailure(pageURL)
		e.logger.Error("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		e.emit(progress.Event{
			Stage:       progress.StagePageFetched,
			URL:         pageURL,
			StatusClass: progress.StatusOther,
			Note:        err.Error(),
		})
		return nil
	}
	e.emit(progress.Event{
		Stage:       progress.StagePageFetched,
		URL:         pageURL,
		StatusClass: progress.ClassifyStatus(res.StatusCode),
		Dur:         e.clock.Now().Sub(start),
	})

	links := harvestLinks(res.Doc, res.URL, e.section)
	for _, p := range links.pagination {
		queue.Push(p)
	}
	e.logger.Debug("page harvested",
		zap.String("url", pageURL),
		zap.Int("article_links", len(links.articles)),
		zap.Int("pagination_links", len(links.pagination)),
	)

	e.fetchArticles(ctx, links.articles)
	return nil
}

// fetchArticles runs the pipeline for each new article link. The claim
// happens before any fetch is issued, so parallel workers never duplicate
// work; articles on one page are independent and fetched concurrently.
func (e *Engine) fetchArticles(ctx context.Context, urls []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, articleURL := range urls {
		switch e.state.Claim(articleURL) {
		case state.ClaimIndexed:
			e.skipped.Add(1)
			e.logger.Debug("article already indexed, skipping", zap.String("url", articleURL))
			e.emit(progress.Event{
				Stage:    progress.StageArticleSkip,
				URL:      articleURL,
				Category: e.section.CategoryOf(articleURL),
			})
			continue
		case state.ClaimTaken:
			e.duplicates.Add(1)
			e.logger.Debug("article already claimed this run, skipping", zap.String("url", articleURL))
			e.emit(progress.Event{
				Stage:    progress.StageArticleSkip,
				URL:      articleURL,
				Category: e.section.CategoryOf(articleURL),
			})
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e.processArticle(gctx, articleURL)
			return nil
		})
	}
	// Workers report failures through state, never as errors; the only
	// error Wait can surface is context cancellation, handled by callers.
	_ = g.Wait()
}

// processArticle fetches, extracts, persists and indexes one claimed
// article URL. The record write strictly precedes the index append, so a
// torn run can leave an orphan record but never an index entry with no
// backing record.
func (e *Engine) processArticle(ctx context.Context, articleURL string) {
	start := e.clock.Now()
	res, err := e.fetcher.Fetch(ctx, articleURL)
	if err != nil {
		e.recordArticleFailure(articleURL, "article fetch failed", err)
		return
	}

	rec := e.extractor.Extract(res.Doc, articleURL)
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		e.recordArticleFailure(articleURL, "marshal article record", err)
		return
	}
	objectName := path.Join(recordPrefix, rec.Filename)
	if err := e.records.Save(ctx, objectName, payload); err != nil {
		e.recordArticleFailure(articleURL, "persist article record", err)
		return
	}

	count := e.state.Append(rec.IndexEntry)
	e.logger.Info("article saved",
		zap.String("url", articleURL),
		zap.String("filename", rec.Filename),
		zap.Int("new_this_run", count),
	)
	e.emit(progress.Event{
		Stage:    progress.StageArticleSaved,
		URL:      articleURL,
		Category: rec.Category,
		Saved:    int64(count),
		Dur:      e.clock.Now().Sub(start),
	})

	e.mirror(ctx, rec, payload)
	e.publish(ctx, rec.IndexEntry)

	if count%e.cfg.CheckpointEvery == 0 {
		if err := e.checkpoint(ctx); err != nil {
			e.logger.Warn("checkpoint failed", zap.Error(err))
		}
	}
}

func (e *Engine) recordArticleFailure(articleURL, msg string, err error) {
	e.failedThisRun.Add(1)
	e.state.RecordFailure(articleURL)
	e.logger.Error(msg, zap.String("url", articleURL), zap.Error(err))
	e.emit(progress.Event{
		Stage:    progress.StageArticleError,
		URL:      articleURL,
		Category: e.section.CategoryOf(articleURL),
		Note:     err.Error(),
	})
}

// mirror writes the article row to the database provider. Mirror failures
// are logged and never gate the crawl; the filesystem index stays the
// source of truth.
func (e *Engine) mirror(ctx context.Context, rec article.Article, payload []byte) {
	digest, err := e.hasher.Hash(payload)
	if err != nil {
		e.logger.Warn("hash article payload failed", zap.String("url", rec.URL), zap.Error(err))
	}
	row := database.Row{
		RunID:       e.runID,
		Section:     e.section.Name,
		Category:    rec.Category,
		URL:         rec.URL,
		Filename:    rec.Filename,
		Title:       rec.Title,
		ContentHash: digest,
		Payload:     payload,
		CrawledAt:   rec.CrawledAt,
	}
	if err := e.db.SaveArticle(ctx, row); err != nil {
		e.logger.Warn("article mirror save failed", zap.String("url", rec.URL), zap.Error(err))
	}
}

// publish emits the article-indexed event. Publish failures are logged and
// never block the crawl.
func (e *Engine) publish(ctx context.Context, entry article.IndexEntry) {
	evt := publisher.ArticleIndexed{
		RunID:   e.runID,
		Section: e.section.Name,
		Entry:   entry,
	}
	if _, err := e.pub.Publish(ctx, e.cfg.Topic, evt); err != nil {
		e.logger.Warn("publish article indexed failed", zap.String("url", entry.URL), zap.Error(err))
	}
}

// checkpoint flushes a consistent snapshot of the index, progress and
// derived stats. The mutex keeps concurrent article workers from
// interleaving writes to the same files.
func (e *Engine) checkpoint(ctx context.Context) error {
	e.checkpointMu.Lock()
	defer e.checkpointMu.Unlock()

	entries, failed := e.state.Snapshot()
	now := e.clock.Now()
	if err := e.store.SaveIndex(ctx, entries); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := e.store.SaveProgress(ctx, article.Progress{FailedURLs: failed, LastSaved: now}); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if err := e.store.SaveStats(ctx, article.DeriveStats(entries, failed, now)); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	e.emit(progress.Event{Stage: progress.StageCheckpoint, Saved: int64(e.state.NewThisRun())})
	return nil
}

func (e *Engine) emit(evt progress.Event) {
	if e.emitter == nil {
		return
	}
	evt.RunID = e.runID
	if evt.Section == "" {
		evt.Section = e.section.Name
	}
	if evt.TS.IsZero() {
		evt.TS = e.clock.Now()
	}
	e.emitter.Emit(evt)
}
