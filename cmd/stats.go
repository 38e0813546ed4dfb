package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rriarchive/harvester/internal/article"
	"github.com/rriarchive/harvester/internal/section"
)

// newStatsCmd creates the 'stats' subcommand: the report-only mode that
// prints current crawl statistics without fetching anything.
func newStatsCmd() *cobra.Command {
	var (
		sectionName string
		outputRoot  string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Prints crawl statistics for one or all sections",
		Long: `Reconstructs the per-category article counts and failed-URL totals from
the persisted crawl state and prints them. Nothing is fetched; the command
is safe to run while a crawl is in progress.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			names := section.Names()
			if sectionName != "" {
				if _, err := section.Get(sectionName); err != nil {
					return err
				}
				names = []string{sectionName}
			}

			for _, name := range names {
				stats, err := appInstance.Stats(cmd.Context(), name, outputRoot)
				if err != nil {
					return fmt.Errorf("stats for section %s: %w", name, err)
				}
				renderStats(name, stats)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sectionName, "section", "s", "", "limit the report to one section")
	cmd.Flags().StringVarP(&outputRoot, "output", "o", "", "output directory (defaults to the section's data directory)")

	return cmd
}

func renderStats(sectionName string, stats article.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Section %s", sectionName))
	t.AppendHeader(table.Row{"Category", "Articles"})

	categories := make([]string, 0, len(stats.ArticlesByCategory))
	for category := range stats.ArticlesByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		t.AppendRow(table.Row{category, stats.ArticlesByCategory[category]})
	}
	t.AppendFooter(table.Row{"Total", stats.TotalArticles})
	t.AppendFooter(table.Row{"Failed URLs", stats.FailedURLs})
	if !stats.LastUpdated.IsZero() {
		t.AppendFooter(table.Row{"Last updated", stats.LastUpdated.Format("2006-01-02 15:04:05")})
	}
	t.Render()
}
