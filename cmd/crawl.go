// Package cmd defines and implements the CLI commands for the harvester
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rriarchive/harvester/internal/clock/system"
	"github.com/rriarchive/harvester/internal/engine"
	"github.com/rriarchive/harvester/internal/extract"
	"github.com/rriarchive/harvester/internal/fetch"
	"github.com/rriarchive/harvester/internal/id/uuid"
	"github.com/rriarchive/harvester/internal/section"
	"github.com/rriarchive/harvester/internal/state"
)

// newCrawlCmd creates and configures the 'crawl' subcommand, which runs the
// breadth-first traversal for one section and persists everything it finds.
func newCrawlCmd() *cobra.Command {
	var (
		sectionName string
		category    string
		maxPages    int
		outputRoot  string
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls one section and persists its articles",
		Long: `Walks the category entry points of the selected section breadth-first,
fetching every newly discovered article, persisting it as a JSON record and
appending it to the crawl index. Articles already present in the index are
skipped, so interrupted runs resume where they left off.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, sectionName, category, maxPages, outputRoot)
		},
	}

	cmd.Flags().StringVarP(&sectionName, "section", "s", "", "section to crawl (see 'harvester sections')")
	cmd.Flags().StringVarP(&category, "category", "c", "", "restrict the crawl to one category")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page ceiling per category (0 uses the configured default)")
	cmd.Flags().StringVarP(&outputRoot, "output", "o", "", "output directory (defaults to the section's data directory)")
	_ = cmd.MarkFlagRequired("section")

	return cmd
}

func runCrawl(cmd *cobra.Command, sectionName, category string, maxPages int, outputRoot string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()
	cfg := appInstance.GetConfig()

	sec, err := section.Get(sectionName)
	if err != nil {
		return err
	}
	if outputRoot == "" {
		outputRoot = sec.DefaultOutput
	}
	if maxPages <= 0 {
		maxPages = cfg.Crawler.MaxPages
	}

	stateStore, err := state.NewFileStore(outputRoot, logger.Named("state"))
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	records, err := appInstance.NewRecordStore(cmd.Context(), sec, outputRoot)
	if err != nil {
		return err
	}
	fetcher, err := fetch.New(fetch.Config{
		UserAgent:   cfg.Crawler.UserAgent,
		Delay:       cfg.Crawler.Delay(),
		Timeout:     cfg.Crawler.Timeout(),
		Parallelism: cfg.Crawler.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}
	clock := system.New()
	extractor, err := extract.New(extract.Config{Section: sec, Clock: clock})
	if err != nil {
		return fmt.Errorf("init extractor: %w", err)
	}

	eng, err := engine.New(
		sec,
		engine.Config{
			BaseURL:         cfg.Crawler.BaseURL,
			Category:        category,
			MaxPages:        maxPages,
			CheckpointEvery: cfg.Crawler.CheckpointEvery,
			Concurrency:     cfg.Crawler.Concurrency,
			Topic:           cfg.Publisher.Topic,
		},
		logger.Named("engine"),
		fetcher,
		extractor,
		stateStore,
		records,
		appInstance.GetDatabase(),
		appInstance.GetPublisher(),
		appInstance.GetEmitter(),
		nil,
		clock,
		uuid.NewGenerator(),
	)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	summary, err := eng.Run(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}
	if errors.Is(err, context.Canceled) {
		logger.Info("Crawl interrupted; state was flushed.", zap.String("run_id", summary.RunID))
	}

	renderCrawlSummary(summary)
	return nil
}

func renderCrawlSummary(summary engine.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Crawl %s (%s)", summary.Section, summary.RunID))
	t.AppendRows([]table.Row{
		{"Pages visited", summary.PagesVisited},
		{"New articles", summary.NewArticles},
		{"Skipped (already indexed)", summary.Skipped},
		{"Duplicates (claimed this run)", summary.Duplicates},
		{"Failed URLs", summary.Failed},
		{"Elapsed", summary.Elapsed.Round(time.Millisecond)},
	})
	t.Render()
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
