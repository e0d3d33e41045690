package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lookout/internal/ipc"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var contextSession string

	sessionsCmd := &cobra.Command{
		Use:   "sessions <project-path>",
		Short: "List the sessions of a monitored project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			path, err := absProjectPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if contextSession != "" {
					resp, err := client.SessionContext(path, contextSession)
					if err != nil {
						return err
					}
					for _, line := range resp.Lines {
						fmt.Fprintln(stdout, line)
					}
					return nil
				}

				resp, err := client.SessionList(path)
				if err != nil {
					return err
				}
				if len(resp.Sessions) == 0 {
					fmt.Fprintln(stdout, "No sessions found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Sessions))
				for _, session := range resp.Sessions {
					rows = append(rows, []string{
						session.SessionID,
						fmt.Sprintf("%d", session.EventCount),
						fmt.Sprintf("%d", session.FileSize),
						formatActivity(session.StartTime),
						formatActivity(session.LastActivity),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Session", "Events", "Bytes", "Started", "Last Activity"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	sessionsCmd.Flags().StringVar(&contextSession, "context", "", "Print the recent lines of the given session instead of the list")
	return sessionsCmd
}
