package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"segno/internal/jobs"
	"segno/internal/sessions"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize sessions and queue activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := sessions.Open(cfg)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			defer store.Close()

			queue, err := jobs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job queue: %w", err)
			}
			defer queue.Close()

			sessionStats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("session stats: %w", err)
			}
			jobStats, err := queue.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("job stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Sessions")
			fmt.Fprintf(out, "  Total: %d\n", sessionStats.Total)
			fmt.Fprintf(out, "  Pending: %d\n", sessionStats.Pending)
			fmt.Fprintf(out, "  Parsed: %d\n", sessionStats.Parsed)
			fmt.Fprintf(out, "  Not parsed: %d\n", sessionStats.NotParsed)
			fmt.Fprintf(out, "  Awaiting review: %d\n", sessionStats.NeedReview)
			fmt.Fprintf(out, "  Committed: %d\n", sessionStats.Committed)
			fmt.Fprintln(out, "Jobs")
			fmt.Fprintf(out, "  Pending: %d\n", jobStats[jobs.StatusPending])
			fmt.Fprintf(out, "  Running: %d\n", jobStats[jobs.StatusRunning])
			fmt.Fprintf(out, "  Completed: %d\n", jobStats[jobs.StatusCompleted])
			fmt.Fprintf(out, "  Failed: %d\n", jobStats[jobs.StatusFailed])
			return nil
		},
	}
}
