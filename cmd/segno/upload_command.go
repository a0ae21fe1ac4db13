package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"segno/internal/jobs"
	"segno/internal/sessions"
	"segno/internal/storage"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var uploaderID string
	var fileID string

	cmd := &cobra.Command{
		Use:   "upload <pdf>",
		Short: "Store a PDF and queue it for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			source := args[0]
			if !strings.EqualFold(filepath.Ext(source), ".pdf") {
				return fmt.Errorf("only PDF uploads are supported, got %q", filepath.Ext(source))
			}
			file, err := os.Open(source)
			if err != nil {
				return fmt.Errorf("open upload: %w", err)
			}
			defer file.Close()

			gateway, err := storage.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}

			key := storage.UploadKey(cfg.Storage.KeyPrefix, uuid.NewString())
			if _, err := gateway.Upload(cmd.Context(), key, "application/pdf", file); err != nil {
				return fmt.Errorf("store upload: %w", err)
			}

			sessionStore, err := sessions.Open(cfg)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			defer sessionStore.Close()

			session, err := sessionStore.NewUpload(cmd.Context(), fileID, uploaderID, filepath.Base(source), key)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}

			queue, err := jobs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job queue: %w", err)
			}
			defer queue.Close()

			job, err := queue.Enqueue(cmd.Context(), jobs.TypeProcess, session.ID, 0, cfg.Workflow.JobMaxAttempts)
			if err != nil {
				return fmt.Errorf("enqueue processing job: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session %s created for %s\n", session.ID, filepath.Base(source))
			fmt.Fprintf(out, "Queued processing job %d\n", job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&uploaderID, "uploader", "", "Identifier of the uploading user")
	cmd.Flags().StringVar(&fileID, "file-id", "", "External file identifier from the upload source")
	return cmd
}
