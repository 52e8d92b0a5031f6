package main

import (
	"github.com/aluiziolira/go-scrape-auctions/parser"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newSourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the auction houses the scraper understands.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Source", "House", "Results page"})
			for _, src := range parser.Sources() {
				name := src.Name
				if name == a.cfg.Source {
					name += " *"
				}
				t.AppendRow(table.Row{name, src.Label, src.ListingURL})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
		},
	}
}
