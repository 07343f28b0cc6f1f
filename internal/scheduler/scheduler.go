// Package scheduler runs periodic maintenance for the CivicPulse server:
// queue cleanup, stale job recovery, expired code purging and gauge refresh.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/repository"
)

// DefaultJobRetention is how long finished jobs stay in the queue table.
const DefaultJobRetention = 7 * 24 * time.Hour

// runTimeout bounds a single maintenance run.
const runTimeout = 2 * time.Minute

// Store is the subset of the repository the maintenance jobs touch.
type Store interface {
	DeleteFinishedJobsBefore(ctx context.Context, before time.Time) (int64, error)
	CountJobsByStatus(ctx context.Context) ([]repository.CountJobsByStatusRow, error)
	CountComplaintsByStatus(ctx context.Context) ([]repository.CountComplaintsByStatusRow, error)
}

// CodePurger drops expired one-time codes.
type CodePurger interface {
	Purge(ctx context.Context) (int, error)
}

// JobRecoverer resets jobs abandoned mid-run.
type JobRecoverer interface {
	RecoverStaleJobs(ctx context.Context) (int64, error)
}

// Config holds the cron specs for each maintenance task. An empty spec
// disables the task.
type Config struct {
	PurgeJobsSpec     string
	PurgeCodesSpec    string
	RecoverJobsSpec   string
	RefreshGaugesSpec string
	JobRetention      time.Duration
}

// DefaultConfig returns the production schedule. Specs are evaluated in UTC.
func DefaultConfig() Config {
	return Config{
		PurgeJobsSpec:     "0 3 * * *",
		PurgeCodesSpec:    "@every 10m",
		RecoverJobsSpec:   "@every 5m",
		RefreshGaugesSpec: "@every 1m",
		JobRetention:      DefaultJobRetention,
	}
}

// Scheduler owns the cron runner and the maintenance tasks.
type Scheduler struct {
	cron      *cron.Cron
	store     Store
	codes     CodePurger
	recoverer JobRecoverer
	config    Config
	logger    *slog.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler. codes and recoverer may be nil, which disables
// their tasks.
func New(store Store, codes CodePurger, recoverer JobRecoverer, config Config, logger *slog.Logger) *Scheduler {
	if config.JobRetention <= 0 {
		config.JobRetention = DefaultJobRetention
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		store:     store,
		codes:     codes,
		recoverer: recoverer,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the configured tasks and starts the cron runner. Tasks run
// until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	tasks := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"purge_jobs", s.config.PurgeJobsSpec, s.runPurgeJobs},
		{"purge_codes", s.config.PurgeCodesSpec, s.runPurgeCodes},
		{"recover_jobs", s.config.RecoverJobsSpec, s.runRecoverJobs},
		{"refresh_gauges", s.config.RefreshGaugesSpec, s.RefreshGauges},
	}

	for _, task := range tasks {
		if task.spec == "" {
			continue
		}
		if task.name == "purge_codes" && s.codes == nil {
			continue
		}
		if task.name == "recover_jobs" && s.recoverer == nil {
			continue
		}
		if _, err := s.cron.AddFunc(task.spec, s.wrap(task.name, task.run)); err != nil {
			s.cancel()
			return fmt.Errorf("register %s (%q): %w", task.name, task.spec, err)
		}
	}

	s.cron.Start()
	s.logger.Info("Maintenance scheduler started", "tasks", len(s.cron.Entries()))
	return nil
}

// Stop halts the runner and waits for in-flight tasks.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.logger.Info("Maintenance scheduler stopped")
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error("Maintenance task failed", "task", name, "error", err)
			return
		}
		s.logger.Debug("Maintenance task finished", "task", name, "duration", time.Since(start))
	}
}

// PurgeFinishedJobs deletes completed and failed jobs older than the
// retention window and returns how many were removed.
func (s *Scheduler) PurgeFinishedJobs(ctx context.Context) (int64, error) {
	before := s.now().Add(-s.config.JobRetention)
	n, err := s.store.DeleteFinishedJobsBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("delete finished jobs: %w", err)
	}
	metrics.JobsPurged.Add(float64(n))
	if n > 0 {
		s.logger.Info("Purged finished jobs", "count", n, "before", before)
	}
	return n, nil
}

func (s *Scheduler) runPurgeJobs(ctx context.Context) error {
	_, err := s.PurgeFinishedJobs(ctx)
	return err
}

func (s *Scheduler) runPurgeCodes(ctx context.Context) error {
	n, err := s.codes.Purge(ctx)
	if err != nil {
		return fmt.Errorf("purge codes: %w", err)
	}
	if n > 0 {
		s.logger.Info("Purged expired verification codes", "count", n)
	}
	return nil
}

func (s *Scheduler) runRecoverJobs(ctx context.Context) error {
	_, err := s.recoverer.RecoverStaleJobs(ctx)
	return err
}

// RefreshGauges recomputes the complaint and queue gauges from the database.
// Statuses with no rows report zero rather than a stale value.
func (s *Scheduler) RefreshGauges(ctx context.Context) error {
	complaints, err := s.store.CountComplaintsByStatus(ctx)
	if err != nil {
		return fmt.Errorf("count complaints: %w", err)
	}
	for _, st := range domain.ComplaintStatuses() {
		metrics.ComplaintsByStatus.WithLabelValues(st.String()).Set(0)
	}
	for _, row := range complaints {
		metrics.ComplaintsByStatus.WithLabelValues(row.Status).Set(float64(row.Count))
	}

	jobs, err := s.store.CountJobsByStatus(ctx)
	if err != nil {
		return fmt.Errorf("count jobs: %w", err)
	}
	metrics.JobsQueued.Reset()
	for _, row := range jobs {
		metrics.JobsQueued.WithLabelValues(row.Status).Set(float64(row.Count))
	}
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
