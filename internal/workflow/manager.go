package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"segno/internal/config"
	"segno/internal/jobs"
	"segno/internal/logging"
	"segno/internal/services"
)

// Handler executes one claimed job.
type Handler func(ctx context.Context, job *jobs.Job) error

// Manager owns the worker pool. Jobs for distinct sessions run concurrently;
// a single job runs on exactly one worker.
type Manager struct {
	cfg      *config.Config
	logger   *slog.Logger
	queue    *jobs.Store
	handlers map[jobs.Type]Handler

	pollInterval  time.Duration
	errorInterval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// Option customizes the manager.
type Option func(*Manager)

// WithPollInterval overrides the queue poll interval (used in tests).
func WithPollInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// NewManager builds a manager over the given queue.
func NewManager(cfg *config.Config, logger *slog.Logger, queue *jobs.Store, opts ...Option) *Manager {
	manager := &Manager{
		cfg:           cfg,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		queue:         queue,
		handlers:      make(map[jobs.Type]Handler),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
	if manager.pollInterval <= 0 {
		manager.pollInterval = 2 * time.Second
	}
	if manager.errorInterval <= 0 {
		manager.errorInterval = 10 * time.Second
	}
	for _, opt := range opts {
		opt(manager)
	}
	return manager
}

// Register binds a handler to a job type. Must be called before Start.
func (m *Manager) Register(jobType jobs.Type, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[jobType] = handler
}

// Start launches the worker pool. It returns immediately; workers run until
// Stop is called or the context is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errors.New("workflow manager already started")
	}
	if len(m.handlers) == 0 {
		return errors.New("workflow manager has no handlers registered")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.started = true

	workers := m.cfg.Pipeline.MaxConcurrent
	if workers < 1 {
		workers = 1
	}
	m.logger.Info("starting workers", logging.Args(logging.Int("workers", workers))...)
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go func(worker int) {
			defer m.wg.Done()
			m.workerLoop(runCtx, worker)
		}(i + 1)
	}
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	started := m.started
	m.started = false
	m.mu.Unlock()

	if !started {
		return
	}
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.logger.Info("workers stopped")
}

func (m *Manager) workerLoop(ctx context.Context, worker int) {
	logger := m.logger.With(logging.Int("worker", worker))
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := m.queue.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("claim job", logging.Args(logging.Error(err))...)
			if !sleepCtx(ctx, m.errorInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, m.pollInterval) {
				return
			}
			continue
		}
		m.dispatch(ctx, logger, job)
	}
}

func (m *Manager) dispatch(ctx context.Context, logger *slog.Logger, job *jobs.Job) {
	logger = logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobType, string(job.Type)),
		logging.String(logging.FieldSessionID, job.SessionID),
	)

	m.mu.Lock()
	handler, ok := m.handlers[job.Type]
	m.mu.Unlock()
	if !ok {
		logger.Error("no handler for job type")
		if err := m.queue.MarkFailed(ctx, job.ID, fmt.Sprintf("no handler for job type %q", job.Type)); err != nil {
			logger.Error("mark job failed", logging.Args(logging.Error(err))...)
		}
		return
	}

	logger.Info("job started", logging.Args(logging.Int("attempt", job.Attempts))...)
	err := handler(ctx, job)
	if err == nil {
		if markErr := m.queue.MarkCompleted(ctx, job.ID); markErr != nil {
			logger.Error("mark job completed", logging.Args(logging.Error(markErr))...)
		}
		logger.Info("job completed")
		return
	}

	if services.IsRetryable(err) && job.Attempts < job.MaxAttempts {
		delay := jobs.Backoff(
			job.Attempts,
			time.Duration(m.cfg.Workflow.RetryBaseSeconds)*time.Second,
			time.Duration(m.cfg.Workflow.RetryMaxSeconds)*time.Second,
		)
		logger.Warn("job attempt failed, rescheduling", logging.Args(
			logging.Error(err),
			logging.Duration("delay", delay),
			logging.Int("attempt", job.Attempts),
			logging.Int("max_attempts", job.MaxAttempts),
		)...)
		if rescheduleErr := m.queue.Reschedule(ctx, job.ID, delay, err.Error()); rescheduleErr != nil {
			logger.Error("reschedule job", logging.Args(logging.Error(rescheduleErr))...)
		}
		return
	}

	logger.Error("job failed", logging.Args(
		logging.Error(err),
		logging.Int("attempt", job.Attempts),
	)...)
	if markErr := m.queue.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
		logger.Error("mark job failed", logging.Args(logging.Error(markErr))...)
	}
}

// sleepCtx waits for the delay or context cancellation; it reports whether
// the caller should keep running.
func sleepCtx(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
