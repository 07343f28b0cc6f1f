package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/civicpulse/civicpulse/internal/repository/repotest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePurger struct {
	calls int
	n     int
	err   error
}

func (f *fakePurger) Purge(ctx context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

type fakeRecoverer struct{ calls int }

func (f *fakeRecoverer) RecoverStaleJobs(ctx context.Context) (int64, error) {
	f.calls++
	return 0, nil
}

// finishJobAt enqueues a job and completes it at the given time.
func finishJobAt(t *testing.T, store *repotest.MemStore, at time.Time) repository.Job {
	t.Helper()
	ctx := context.Background()
	restore := store.Now
	store.Now = func() time.Time { return at }
	defer func() { store.Now = restore }()

	job, err := store.EnqueueJob(ctx, repository.EnqueueJobParams{JobType: "send_email", MaxAttempts: 3, ScheduledAt: at})
	require.NoError(t, err)
	require.NoError(t, store.UpdateJobStarted(ctx, job.ID))
	require.NoError(t, store.UpdateJobCompleted(ctx, job.ID))
	return job
}

func TestPurgeFinishedJobs(t *testing.T) {
	store := repotest.NewMemStore()
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

	old := finishJobAt(t, store, now.Add(-8*24*time.Hour))
	recent := finishJobAt(t, store, now.Add(-2*24*time.Hour))
	pending, err := store.EnqueueJob(context.Background(), repository.EnqueueJobParams{JobType: "send_email", MaxAttempts: 3, ScheduledAt: now})
	require.NoError(t, err)

	s := New(store, nil, nil, DefaultConfig(), testLogger())
	s.now = func() time.Time { return now }

	before := testutil.ToFloat64(metrics.JobsPurged)
	n, err := s.PurgeFinishedJobs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), n)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.JobsPurged))

	var ids []string
	for _, j := range store.Jobs() {
		ids = append(ids, j.ID.String())
	}
	assert.NotContains(t, ids, old.ID.String())
	assert.Contains(t, ids, recent.ID.String())
	assert.Contains(t, ids, pending.ID.String())
}

func TestRefreshGauges(t *testing.T) {
	store := repotest.NewMemStore()
	store.AddComplaint(repository.Complaint{Status: domain.ComplaintStatusPending.String()})
	store.AddComplaint(repository.Complaint{Status: domain.ComplaintStatusPending.String()})
	store.AddComplaint(repository.Complaint{Status: domain.ComplaintStatusResolved.String()})
	_, err := store.EnqueueJob(context.Background(), repository.EnqueueJobParams{JobType: "send_email", MaxAttempts: 3, ScheduledAt: time.Now()})
	require.NoError(t, err)

	// A previous refresh left a value that no longer has rows
	metrics.ComplaintsByStatus.WithLabelValues(domain.ComplaintStatusReopened.String()).Set(9)

	s := New(store, nil, nil, DefaultConfig(), testLogger())
	require.NoError(t, s.RefreshGauges(context.Background()))

	tests := []struct {
		status domain.ComplaintStatus
		want   float64
	}{
		{domain.ComplaintStatusPending, 2},
		{domain.ComplaintStatusResolved, 1},
		{domain.ComplaintStatusReopened, 0},
		{domain.ComplaintStatusRejected, 0},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, testutil.ToFloat64(metrics.ComplaintsByStatus.WithLabelValues(tt.status.String())))
		})
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.JobsQueued.WithLabelValues("pending")))
}

func TestStart_RejectsBadSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PurgeJobsSpec = "every tuesday"

	s := New(repotest.NewMemStore(), nil, nil, cfg, testLogger())
	err := s.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge_jobs")
}

func TestStart_SkipsDisabledTasks(t *testing.T) {
	tests := []struct {
		name      string
		codes     CodePurger
		recoverer JobRecoverer
		mutate    func(*Config)
		want      int
	}{
		{name: "all tasks", codes: &fakePurger{}, recoverer: &fakeRecoverer{}, want: 4},
		{name: "no code store", recoverer: &fakeRecoverer{}, want: 3},
		{name: "store only", want: 2},
		{name: "empty spec", codes: &fakePurger{}, recoverer: &fakeRecoverer{}, mutate: func(c *Config) { c.RefreshGaugesSpec = "" }, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			s := New(repotest.NewMemStore(), tt.codes, tt.recoverer, cfg, testLogger())
			require.NoError(t, s.Start(context.Background()))
			defer s.Stop()

			assert.Len(t, s.cron.Entries(), tt.want)
		})
	}
}

func TestWrappedTaskUsesSchedulerContext(t *testing.T) {
	purger := &fakePurger{n: 3}
	s := New(repotest.NewMemStore(), purger, nil, DefaultConfig(), testLogger())
	require.NoError(t, s.Start(context.Background()))

	var seen context.Context
	s.wrap("probe", func(ctx context.Context) error {
		seen = ctx
		return nil
	})()
	s.wrap("purge_codes", s.runPurgeCodes)()

	s.Stop()

	require.NotNil(t, seen)
	_, hasDeadline := seen.Deadline()
	assert.True(t, hasDeadline)
	assert.ErrorIs(t, seen.Err(), context.Canceled)
	assert.Equal(t, 1, purger.calls)
}

func TestTaskErrorsAreLoggedNotPanicked(t *testing.T) {
	purger := &fakePurger{err: errors.New("redis unavailable")}
	s := New(repotest.NewMemStore(), purger, nil, DefaultConfig(), testLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.NotPanics(t, s.wrap("purge_codes", s.runPurgeCodes))
	assert.Equal(t, 1, purger.calls)
}
