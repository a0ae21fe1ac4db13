package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"segno/internal/sessions"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect upload sessions",
	}
	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsShowCommand(ctx))
	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List upload sessions",
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

			var statuses []sessions.ParseStatus
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				status, ok := sessions.ParseStatusFromString(trimmed)
				if !ok {
					return fmt.Errorf("unknown parse status %q", trimmed)
				}
				statuses = append(statuses, status)
			}

			list, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No sessions found")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, session := range list {
				rows = append(rows, []string{
					session.ID,
					session.FileName,
					string(session.ParseStatus),
					string(session.RoutingDecision),
					formatConfidence(session.FinalConfidence),
					yesNo(session.RequiresHumanReview),
					strconv.Itoa(len(session.Parts)),
					session.CreatedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "File", "Status", "Routing", "Confidence", "Review", "Parts", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by parse status (pending, parsed, not_parsed)")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session in detail",
		Args:  cobra.ExactArgs(1),
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

			session, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}
			if session == nil {
				return fmt.Errorf("session %s not found", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session: %s\n", session.ID)
			fmt.Fprintf(out, "File: %s\n", session.FileName)
			fmt.Fprintf(out, "Storage key: %s\n", session.StorageKey)
			fmt.Fprintf(out, "Pages: %d\n", session.PageCount)
			fmt.Fprintf(out, "Parse status: %s\n", session.ParseStatus)
			fmt.Fprintf(out, "Second pass: %s\n", session.SecondPassStatus)
			fmt.Fprintf(out, "Routing: %s\n", session.RoutingDecision)
			fmt.Fprintf(out, "Extraction confidence: %s\n", formatConfidence(session.ExtractionConfidence))
			fmt.Fprintf(out, "Segmentation confidence: %s\n", formatConfidence(session.SegmentationConfidence))
			fmt.Fprintf(out, "Final confidence: %s\n", formatConfidence(session.FinalConfidence))
			fmt.Fprintf(out, "Requires review: %s\n", yesNo(session.RequiresHumanReview))
			if session.CommittedAt != nil {
				fmt.Fprintf(out, "Committed at: %s\n", session.CommittedAt.Local().Format(time.DateTime))
			}
			if session.ErrorMessage != "" {
				fmt.Fprintf(out, "Error: %s\n", session.ErrorMessage)
			}
			if session.Metadata != nil {
				fmt.Fprintf(out, "Title: %s\n", session.Metadata.Title)
				fmt.Fprintf(out, "Composer: %s\n", session.Metadata.Composer)
				if session.Metadata.Arranger != "" {
					fmt.Fprintf(out, "Arranger: %s\n", session.Metadata.Arranger)
				}
				if session.Metadata.Ensemble != "" {
					fmt.Fprintf(out, "Ensemble: %s\n", session.Metadata.Ensemble)
				}
			}

			if len(session.Parts) > 0 {
				rows := make([][]string, 0, len(session.Parts))
				for _, part := range session.Parts {
					rows = append(rows, []string{
						part.PartName,
						part.Instrument,
						fmt.Sprintf("%d-%d", part.FromPage, part.ToPage),
						strconv.Itoa(part.PageCount),
						part.StorageKey,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Part", "Instrument", "Pages", "Count", "Storage Key"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
			}
			return nil
		},
	}
}

func formatConfidence(value *int) string {
	if value == nil {
		return "-"
	}
	return strconv.Itoa(*value)
}
