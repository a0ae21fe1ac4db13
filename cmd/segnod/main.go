// Command segnod is the background daemon: it drains the durable job queue
// and runs the upload processing pipeline.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"segno/internal/config"
	"segno/internal/daemon"
	"segno/internal/jobs"
	"segno/internal/logging"
	"segno/internal/pipeline"
	"segno/internal/preflight"
	"segno/internal/segment"
	"segno/internal/sessions"
	"segno/internal/split"
	"segno/internal/storage"
	"segno/internal/vision"
	"segno/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: filepath.Join(cfg.Paths.LogDir, "segnod.log"),
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	for _, check := range preflight.RunAll(ctx, cfg) {
		if !check.Passed {
			logger.Warn("preflight check failed", logging.Args(
				logging.String("check", check.Name),
				logging.String("detail", check.Detail),
			)...)
		}
	}

	sessionStore, err := sessions.Open(cfg)
	if err != nil {
		logger.Error("open session store", logging.Args(logging.Error(err))...)
		os.Exit(1)
	}
	defer sessionStore.Close()

	queue, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job queue", logging.Args(logging.Error(err))...)
		os.Exit(1)
	}
	defer queue.Close()

	gateway, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Error("init storage", logging.Args(logging.Error(err))...)
		os.Exit(1)
	}

	orchestrator := pipeline.New(
		cfg,
		logger,
		sessionStore,
		queue,
		gateway,
		pipeline.DefaultRenderer(cfg),
		segment.New(),
		vision.NewClient(cfg.Vision),
		split.NewSplitter(),
	)

	manager := workflow.NewManager(cfg, logger, queue)
	manager.Register(jobs.TypeProcess, func(ctx context.Context, job *jobs.Job) error {
		return orchestrator.Process(ctx, job.SessionID)
	})
	manager.Register(jobs.TypeSecondPass, func(ctx context.Context, job *jobs.Job) error {
		return orchestrator.RunSecondPass(ctx, job.SessionID)
	})
	manager.Register(jobs.TypeAutoCommit, func(ctx context.Context, job *jobs.Job) error {
		return orchestrator.RunAutoCommit(ctx, job.SessionID)
	})

	d, err := daemon.New(cfg, logger, queue, manager)
	if err != nil {
		logger.Error("create daemon", logging.Args(logging.Error(err))...)
		os.Exit(1)
	}
	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Args(logging.Error(err))...)
		os.Exit(1)
	}

	<-ctx.Done()
	d.Stop()
	logger.Info("segnod shutting down")
}
