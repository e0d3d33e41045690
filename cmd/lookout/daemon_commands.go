package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lookout/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and monitoring status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				daemonKind := statusError
				daemonDetail := "not running"
				if status.Running {
					daemonKind = statusOK
					daemonDetail = fmt.Sprintf("pid %d, up since %s", status.PID, status.StartedAt.Format(time.RFC3339))
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", daemonKind, daemonDetail, colorize))

				monitorKind := statusWarn
				monitorDetail := "idle"
				switch {
				case status.GlobalActive:
					monitorKind = statusOK
					monitorDetail = fmt.Sprintf("global, %d projects", status.ProjectCount)
				case status.MonitoringActive:
					monitorKind = statusOK
					monitorDetail = fmt.Sprintf("%d projects", status.ProjectCount)
				}
				fmt.Fprintln(stdout, renderStatusLine("Monitoring", monitorKind, monitorDetail, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Paths", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Log root", statusInfo, status.LogRoot, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, status.SocketPath, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Throughput", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Files tailed", statusInfo, fmt.Sprintf("%d", status.Stats.FilesTailed), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Lines emitted", statusInfo, fmt.Sprintf("%d", status.Stats.LinesEmitted), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Errors", errorKind(status.Stats.Errors), fmt.Sprintf("%d", status.Stats.Errors), colorize))
				return nil
			})
		},
	}
}

func errorKind(errors int64) statusKind {
	if errors > 0 {
		return statusWarn
	}
	return statusOK
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start monitoring the whole session log root",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, resp.Message)
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop monitoring the session log root",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, resp.Message)
				return nil
			})
		},
	}
}
