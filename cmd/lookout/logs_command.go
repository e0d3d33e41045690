package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lookout/internal/ipc"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon's own log",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: lines})
				if err != nil {
					return err
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(stdout, line)
				}
				if !follow {
					return nil
				}

				offset := resp.Offset
				for {
					next, err := client.LogTail(ipc.LogTailRequest{
						Offset:     offset,
						Follow:     true,
						WaitMillis: 1000,
					})
					if err != nil {
						return err
					}
					for _, line := range next.Lines {
						fmt.Fprintln(stdout, line)
					}
					offset = next.Offset
					if cmd.Context() != nil && cmd.Context().Err() != nil {
						return nil
					}
				}
			})
		},
	}

	logsCmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show from the end of the log")
	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	return logsCmd
}
