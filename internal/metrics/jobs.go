package metrics

import "time"

// JobOutcome labels how a job attempt ended.
type JobOutcome string

const (
	JobOutcomeCompleted JobOutcome = "completed"
	JobOutcomeRetrying  JobOutcome = "retrying" // Failed, rescheduled with backoff
	JobOutcomeDropped   JobOutcome = "dropped"  // Failed permanently or out of attempts
)

// JobAttempt records one attempt of a background job. Duration is observed
// only for completed attempts.
func JobAttempt(jobType string, outcome JobOutcome, took time.Duration) {
	JobsTotal.WithLabelValues(jobType, string(outcome)).Inc()
	if outcome == JobOutcomeCompleted {
		JobDuration.WithLabelValues(jobType).Observe(took.Seconds())
	}
}
