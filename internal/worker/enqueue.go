package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/civicpulse/civicpulse/internal/repository"
)

// JobTypeSendEmail is handled by jobs.SendEmailHandler.
const JobTypeSendEmail = "send_email"

// Job priorities. The queue claims higher values first.
const (
	PriorityLow    int32 = 0
	PriorityNormal int32 = 10
	PriorityHigh   int32 = 20
)

// DefaultMaxAttempts bounds retries of a job that keeps failing.
const DefaultMaxAttempts int32 = 3

// Payload is a job body that knows which handler consumes it.
type Payload interface {
	JobType() string
}

// SendEmailPayload asks for one templated email. Template names a template
// of the email package; Data fills it.
type SendEmailPayload struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

// JobType implements Payload.
func (SendEmailPayload) JobType() string { return JobTypeSendEmail }

// JobQueue is satisfied by repository.Queries and by a transaction-scoped
// querier, so a job commits or rolls back with the change that caused it.
type JobQueue interface {
	EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error)
}

// EnqueueOption adjusts a job before it is inserted.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority overrides PriorityNormal.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) { p.Priority = priority }
}

// WithMaxAttempts overrides DefaultMaxAttempts. Values below one mean a
// single attempt.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) { p.MaxAttempts = max(attempts, 1) }
}

// WithDelay makes the job due delay after enqueueing.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) { p.ScheduledAt = p.ScheduledAt.Add(delay) }
}

// Enqueue serializes payload and inserts it as a pending job of its type.
func Enqueue(ctx context.Context, queue JobQueue, payload Payload, opts ...EnqueueOption) (repository.Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal %s payload: %w", payload.JobType(), err)
	}

	params := repository.EnqueueJobParams{
		JobType:     payload.JobType(),
		Payload:     body,
		Priority:    PriorityNormal,
		MaxAttempts: DefaultMaxAttempts,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&params)
	}

	job, err := queue.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue %s: %w", params.JobType, err)
	}
	return job, nil
}
