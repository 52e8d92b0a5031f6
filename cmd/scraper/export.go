package main

import (
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-auctions/pipeline"
	"github.com/aluiziolira/go-scrape-auctions/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the snapshot as one row per lot (csv, json, dual, or sqlite).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records := store.NewFileStore(a.cfg.StateFile, a.logger).Load()

			writer, err := pipeline.NewWriter(a.cfg.OutputFormat, a.cfg.OutputFile)
			if err != nil {
				return fmt.Errorf("create writer: %w", err)
			}

			result, err := pipeline.NewExporter(a.cfg, a.logger).Export(cmd.Context(), records, writer)
			if closeErr := writer.Close(); closeErr != nil {
				a.logger.Error("close writer", slog.Any("error", closeErr))
				if err == nil {
					err = closeErr
				}
			}
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetTitle("Export complete")
			t.AppendRows([]table.Row{
				{"Auctions", result.Auctions},
				{"Rows", result.Rows},
				{"Written", result.Written},
			})
			for reason, n := range result.ValidationErrors {
				t.AppendRow(table.Row{"Rejected (" + reason + ")", n})
			}
			t.AppendRow(table.Row{"Output", a.cfg.OutputFile})
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}
}
