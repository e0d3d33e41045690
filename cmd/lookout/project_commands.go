package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lookout/internal/ipc"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Manage per-project monitoring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	projectCmd.AddCommand(&cobra.Command{
		Use:   "start <path>",
		Short: "Start monitoring one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			path, err := absProjectPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ProjectStart(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%s: %s\n", path, resp.Message)
				return nil
			})
		},
	})

	projectCmd.AddCommand(&cobra.Command{
		Use:   "stop <path>",
		Short: "Stop monitoring one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			path, err := absProjectPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ProjectStop(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%s: %s\n", path, resp.Message)
				return nil
			})
		},
	})

	projectCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List monitored projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ProjectList()
				if err != nil {
					return err
				}
				if len(resp.Projects) == 0 {
					fmt.Fprintln(stdout, "No projects monitored")
					return nil
				}
				rows := make([][]string, 0, len(resp.Projects))
				for _, project := range resp.Projects {
					rows = append(rows, []string{
						project.DisplayName,
						project.ProjectPath,
						fmt.Sprintf("%d", project.SessionCount),
						fmt.Sprintf("%d", project.TotalEventCount),
						formatActivity(project.LastActivity),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Name", "Path", "Sessions", "Events", "Last Activity"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	})

	return projectCmd
}

func absProjectPath(arg string) (string, error) {
	trimmed := strings.TrimSpace(arg)
	if trimmed == "" {
		return "", fmt.Errorf("project path is required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve project path: %w", err)
	}
	return abs, nil
}

func formatActivity(at time.Time) string {
	if at.IsZero() {
		return "never"
	}
	return at.Format("2006-01-02 15:04:05")
}
