// Package daemon coordinates the background services and enforces
// single-instance execution via a file lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"segno/internal/config"
	"segno/internal/jobs"
	"segno/internal/logging"
	"segno/internal/workflow"
)

// Daemon owns the worker pool lifecycle and crash recovery for the queue.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	queue    *jobs.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, queue *jobs.Store, manager *workflow.Manager) (*Daemon, error) {
	if cfg == nil || logger == nil || queue == nil || manager == nil {
		return nil, errors.New("daemon requires config, logger, queue, and workflow manager")
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "segnod.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		queue:    queue,
		workflow: manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, recovers jobs stranded by a crash, and
// launches the worker pool.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another segno daemon instance is already running")
	}

	stuckMinutes := d.cfg.Workflow.StuckJobMinutes
	if stuckMinutes > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(stuckMinutes) * time.Minute)
		reset, err := d.queue.ResetStuckRunning(ctx, cutoff)
		if err != nil {
			_ = d.lock.Unlock()
			return fmt.Errorf("recover stuck jobs: %w", err)
		}
		if reset > 0 {
			d.logger.Info("recovered stuck jobs", logging.Args(logging.Int64("jobs", reset))...)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("daemon started", logging.Args(logging.String("lock", d.lockPath))...)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Args(logging.Error(err))...)
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Running reports whether the daemon is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
