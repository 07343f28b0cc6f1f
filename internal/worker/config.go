package worker

import (
	"fmt"
	"time"
)

// Config tunes the mail queue worker.
type Config struct {
	// Concurrency is the number of polling goroutines. Mail delivery is
	// I/O bound, so a small pool keeps up with notification bursts.
	Concurrency int

	// PollInterval is how often an idle goroutine checks the queue.
	PollInterval time.Duration

	// JobTimeout cancels a single delivery attempt.
	JobTimeout time.Duration

	// ShutdownTimeout bounds Stop; deliveries still running afterwards are
	// picked up again by stale job recovery.
	ShutdownTimeout time.Duration

	// StaleJobThreshold is the age at which a 'running' job is assumed to
	// belong to a dead process.
	StaleJobThreshold time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Concurrency:       2,
		PollInterval:      5 * time.Second,
		JobTimeout:        2 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 10 * time.Minute,
	}
}

// WithOverrides returns c with every non-zero field of o applied.
func (c Config) WithOverrides(o Config) Config {
	if o.Concurrency != 0 {
		c.Concurrency = o.Concurrency
	}
	if o.PollInterval != 0 {
		c.PollInterval = o.PollInterval
	}
	if o.JobTimeout != 0 {
		c.JobTimeout = o.JobTimeout
	}
	if o.ShutdownTimeout != 0 {
		c.ShutdownTimeout = o.ShutdownTimeout
	}
	if o.StaleJobThreshold != 0 {
		c.StaleJobThreshold = o.StaleJobThreshold
	}
	return c
}

// Validate rejects settings that would stall or flood the queue.
func (c Config) Validate() error {
	switch {
	case c.Concurrency < 1 || c.Concurrency > 100:
		return fmt.Errorf("concurrency must be between 1 and 100, got %d", c.Concurrency)
	case c.PollInterval < time.Second:
		return fmt.Errorf("poll interval must be at least 1 second, got %v", c.PollInterval)
	case c.JobTimeout < time.Second:
		return fmt.Errorf("job timeout must be at least 1 second, got %v", c.JobTimeout)
	case c.ShutdownTimeout < time.Second:
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	case c.StaleJobThreshold < time.Minute:
		return fmt.Errorf("stale job threshold must be at least 1 minute, got %v", c.StaleJobThreshold)
	case c.StaleJobThreshold <= c.JobTimeout:
		return fmt.Errorf("stale job threshold (%v) must exceed job timeout (%v)", c.StaleJobThreshold, c.JobTimeout)
	}
	return nil
}
