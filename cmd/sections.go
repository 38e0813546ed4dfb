package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rriarchive/harvester/internal/section"
)

// newSectionsCmd creates the 'sections' subcommand listing the crawlable
// sections and, optionally, one section's category entry points.
func newSectionsCmd() *cobra.Command {
	var sectionName string

	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Lists available sections and their categories",
		RunE: func(_ *cobra.Command, _ []string) error {
			if sectionName != "" {
				sec, err := section.Get(sectionName)
				if err != nil {
					return err
				}
				renderCategories(sec)
				return nil
			}
			renderSections()
			return nil
		},
	}

	cmd.Flags().StringVarP(&sectionName, "section", "s", "", "list the categories of one section")

	return cmd
}

func renderSections() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Section", "Description", "Categories", "Default output"})
	for _, sec := range section.All() {
		t.AppendRow(table.Row{sec.Name, sec.Description, len(sec.CategoryPaths), sec.DefaultOutput})
	}
	t.Render()
}

func renderCategories(sec *section.Section) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(sec.Name + " categories")
	t.AppendHeader(table.Row{"Entry point"})
	for _, category := range sec.CategoryPaths {
		t.AppendRow(table.Row{category})
	}
	t.Render()
}
