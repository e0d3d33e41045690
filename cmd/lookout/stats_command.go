package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lookout/internal/ipc"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show monitoring throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stats()
				if err != nil {
					return err
				}
				stats := resp.Stats
				rows := [][]string{
					{"Files tailed", fmt.Sprintf("%d", stats.FilesTailed)},
					{"Lines emitted", fmt.Sprintf("%d", stats.LinesEmitted)},
					{"Bytes processed", fmt.Sprintf("%d", stats.BytesProcessed)},
					{"Errors", fmt.Sprintf("%d", stats.Errors)},
					{"Lines per second", fmt.Sprintf("%.2f", stats.LinesPerSecond)},
					{"Window started", stats.StartedAt.Format(time.RFC3339)},
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Metric", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	statsCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset throughput counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StatsReset()
				if err != nil {
					return err
				}
				if resp.Reset {
					fmt.Fprintln(stdout, "Statistics reset")
				}
				return nil
			})
		},
	})

	return statsCmd
}
