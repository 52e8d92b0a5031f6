package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-auctions/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newAuctionCmd(a *app) *cobra.Command {
	var (
		title string
		year  int
		date  string
	)

	cmd := &cobra.Command{
		Use:   "auction <url>",
		Short: "Fetch the lots of one auction and merge it into the snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, stop, err := a.newScraper()
			if err != nil {
				return err
			}
			defer stop()

			record := &models.AuctionRecord{
				URL:    args[0],
				Title:  title,
				Year:   models.Year(year),
				Date:   date,
				Status: models.StatusPending,
			}
			got, ok, err := s.RunAuction(cmd.Context(), record)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if got == nil {
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Auction", "Year", "Status", "Lots"})
			t.AppendRow(table.Row{got.Title, got.Year, got.Status, len(got.Lots)})
			t.SetStyle(table.StyleRounded)
			t.Render()

			if !ok {
				return fmt.Errorf("auction %s did not complete", got.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Auction title")
	cmd.Flags().IntVar(&year, "year", 0, "Auction year")
	cmd.Flags().StringVar(&date, "date", "", "Auction date as shown by the house")
	return cmd
}
