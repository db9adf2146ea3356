package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lolovespi/reolink-livestream-youtube/internal/config"
	"github.com/lolovespi/reolink-livestream-youtube/internal/journal"
)

func newHistoryCommand(configFlag *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent broadcast cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}

			store, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cycles, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(cycles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cycles recorded yet.")
				return nil
			}

			loc, err := cfg.Location()
			if err != nil {
				loc = time.UTC
			}

			tw := table.NewWriter()
			if stdoutIsTerminal() {
				tw.SetStyle(table.StyleRounded)
			} else {
				tw.SetStyle(table.StyleLight)
			}
			tw.AppendHeader(table.Row{"Started", "Mode", "Broadcast", "Title", "Outcome", "Restarts", "Recoveries"})
			for _, cycle := range cycles {
				outcome := string(cycle.Outcome)
				if outcome == "" {
					outcome = "running"
				}
				tw.AppendRow(table.Row{
					cycle.StartedAt.In(loc).Format("2006-01-02 15:04"),
					cycle.Mode,
					cycle.BroadcastID,
					cycle.Title,
					outcome,
					cycle.Restarts,
					cycle.Recoveries,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of cycles to show")
	return cmd
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
