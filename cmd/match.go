package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rriarchive/harvester/internal/match"
	"github.com/rriarchive/harvester/internal/metrics"
)

// newMatchCmd creates the 'match' subcommand: the offline correspondence
// job pairing Aromanian articles with Romanian ones that share an image
// reference.
func newMatchCmd() *cobra.Command {
	var (
		corpusA   string
		corpusB   string
		output    string
		dbSection string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Finds cross-section article correspondences by shared images",
		Long: `Reads every article record of the Aromanian corpus and searches the
Romanian corpus for records containing the same image references. The
resulting pairing report fully overwrites the previous one on each run and
is byte-identical across runs over unchanged corpora.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.GetConfig()
			if output == "" {
				output = cfg.Match.Output
			}

			var searcher match.Searcher
			if dbSection != "" {
				searcher, err = match.NewDBSearcher(appInstance.GetDatabase(), dbSection)
				if err != nil {
					return fmt.Errorf("init database searcher: %w", err)
				}
			} else {
				searcher, err = match.NewFSSearcher(corpusB)
				if err != nil {
					return fmt.Errorf("init corpus searcher: %w", err)
				}
			}

			matcher, err := match.New(match.Config{
				CorpusDir:     corpusA,
				OutputFile:    output,
				SearchTimeout: cfg.Match.SearchTimeout(),
			}, metrics.InstrumentSearcher(searcher), appInstance.GetLogger().Named("match"))
			if err != nil {
				return fmt.Errorf("build matcher: %w", err)
			}

			start := time.Now()
			summary, err := matcher.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run matcher: %w", err)
			}
			metrics.ObserveCorrespondences(summary.Matched)

			renderMatchSummary(summary, output, time.Since(start))
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusA, "corpus-a", "data/rri_aromanian/articles", "directory of the corpus the report is keyed by")
	cmd.Flags().StringVar(&corpusB, "corpus-b", "data/rri_romanian/articles", "directory searched for shared image references")
	cmd.Flags().StringVarP(&output, "output", "o", "", "report file (defaults to the configured match output)")
	cmd.Flags().StringVar(&dbSection, "db-section", "", "search the article mirror database for this section instead of corpus-b")

	return cmd
}

func renderMatchSummary(summary match.Summary, output string, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Correspondence matching")
	t.AppendRows([]table.Row{
		{"Articles scanned", summary.Articles},
		{"Articles with matches", summary.Matched},
		{"Article pairs", summary.Pairs},
		{"Searches run", summary.Searches},
		{"Search failures", summary.SearchFailures},
		{"Report", output},
		{"Elapsed", elapsed.Round(time.Millisecond)},
	})
	t.Render()
}
