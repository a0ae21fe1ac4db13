package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"segno/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the background job queue",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			queue, err := jobs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job queue: %w", err)
			}
			defer queue.Close()

			var statuses []jobs.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				status := jobs.Status(strings.ToLower(trimmed))
				switch status {
				case jobs.StatusPending, jobs.StatusRunning, jobs.StatusCompleted, jobs.StatusFailed:
					statuses = append(statuses, status)
				default:
					return fmt.Errorf("unknown job status %q", trimmed)
				}
			}

			list, err := queue.List(cmd.Context(), statuses...)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				errText := job.ErrorMessage
				if len(errText) > 60 {
					errText = errText[:57] + "..."
				}
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					string(job.Type),
					job.SessionID,
					string(job.Status),
					fmt.Sprintf("%d/%d", job.Attempts, job.MaxAttempts),
					job.NextRunAt.Local().Format(time.DateTime),
					errText,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Type", "Session", "Status", "Attempts", "Next Run", "Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by job status (pending, running, completed, failed)")
	return cmd
}
