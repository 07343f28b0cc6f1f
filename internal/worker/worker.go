package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/repository"
)

// Worker drains the job queue with a fixed pool of goroutines.
type Worker struct {
	store    repository.Store
	handlers map[string]JobHandler
	config   Config
	logger   *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates a Worker. It must be started with Start and stopped with Stop.
func New(store repository.Store, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		store:    store,
		handlers: make(map[string]JobHandler),
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Register adds a job handler. Call this before Start.
func (w *Worker) Register(handler JobHandler) {
	jobType := handler.Type()
	if _, exists := w.handlers[jobType]; exists {
		w.logger.Warn("Overwriting existing handler", "job_type", jobType)
	}
	w.handlers[jobType] = handler
	w.logger.Debug("Registered job handler", "job_type", jobType)
}

// Start recovers jobs abandoned by a crashed process, then launches the
// configured number of polling goroutines.
func (w *Worker) Start(ctx context.Context) {
	if _, err := w.RecoverStaleJobs(ctx); err != nil {
		w.logger.Error("Failed to recover stale jobs", "error", err)
	}

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx, i+1)
	}

	w.logger.Info("Worker started", "concurrency", w.config.Concurrency)
}

// Stop signals all goroutines and waits up to ShutdownTimeout for them.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Worker shutdown timeout exceeded, some jobs may still be running")
	}
}

// RecoverStaleJobs resets jobs stuck in 'running' longer than
// StaleJobThreshold back to pending and returns how many were reset.
func (w *Worker) RecoverStaleJobs(ctx context.Context) (int64, error) {
	count, err := w.store.RecoverStaleJobs(ctx, w.config.StaleJobThreshold.Seconds())
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}

	if count > 0 {
		w.logger.Warn("Recovered stale jobs", "count", count, "threshold", w.config.StaleJobThreshold)
	}
	return count, nil
}

func (w *Worker) runWorker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger := w.logger.With("worker_id", workerID)
	logger.Debug("Worker started")

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			logger.Debug("Worker stopping")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processNextJob(ctx, logger); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					continue
				}
				logger.Error("Failed to process job", "error", err)
			}
		}
	}
}

// processNextJob claims one job and runs it. The claim commits before the
// handler runs so a slow handler never holds the row lock.
// Returns sql.ErrNoRows if no job is due.
func (w *Worker) processNextJob(ctx context.Context, logger *slog.Logger) error {
	var job repository.Job
	err := w.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		job, err = q.DequeueJob(ctx)
		if err != nil {
			return err
		}
		if err := q.UpdateJobStarted(ctx, job.ID); err != nil {
			return fmt.Errorf("mark job started: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger = logger.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts+1)
	logger.Info("Processing job")

	start := time.Now()
	if err := w.executeJob(ctx, job); err != nil {
		logger.Error("Job failed", "error", err)
		w.markJobFailed(ctx, job, err)
		return fmt.Errorf("execute job: %w", err)
	}

	took := time.Since(start)
	metrics.JobAttempt(job.JobType, metrics.JobOutcomeCompleted, took)
	logger.Info("Job completed", "duration", took)
	if err := w.store.UpdateJobCompleted(ctx, job.ID); err != nil {
		logger.Error("Failed to mark job as completed", "error", err)
		return fmt.Errorf("update job completed: %w", err)
	}
	return nil
}

func (w *Worker) executeJob(ctx context.Context, job repository.Job) error {
	handler, ok := w.handlers[job.JobType]
	if !ok {
		return NewPermanentError(fmt.Errorf("no handler registered for job type: %s", job.JobType))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	return handler.Handle(jobCtx, job.Payload)
}

// markJobFailed records the failure. Permanent errors and jobs out of
// attempts end as 'failed'; anything else is rescheduled with backoff.
func (w *Worker) markJobFailed(ctx context.Context, job repository.Job, jobErr error) {
	permanent := IsPermanent(jobErr)
	outcome := metrics.JobOutcomeRetrying
	if permanent || job.Attempts+1 >= job.MaxAttempts {
		outcome = metrics.JobOutcomeDropped
	}
	metrics.JobAttempt(job.JobType, outcome, 0)
	if permanent {
		w.logger.Warn("Job failed with permanent error, will not retry", "job_id", job.ID, "error", jobErr)
	}

	if err := w.store.UpdateJobFailed(ctx, repository.UpdateJobFailedParams{
		ID:           job.ID,
		ErrorMessage: sql.NullString{String: jobErr.Error(), Valid: true},
		Permanent:    permanent,
	}); err != nil {
		w.logger.Error("Failed to mark job as failed", "job_id", job.ID, "error", err)
	}
}
