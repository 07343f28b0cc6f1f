package service

import (
	"context"
	"log/slog"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/google/uuid"
)

// OfficerMetrics maintains the per-officer resolved and reopened counters.
// Increments are single UPDATE statements, so concurrent increments on the
// same officer are never lost.
type OfficerMetrics struct {
	logger *slog.Logger
}

// NewOfficerMetrics creates an OfficerMetrics.
func NewOfficerMetrics(logger *slog.Logger) *OfficerMetrics {
	return &OfficerMetrics{logger: logger}
}

// IncrementResolved adds one to the officer's resolved counter.
// An unknown officer is a no-op.
func (m *OfficerMetrics) IncrementResolved(ctx context.Context, q repository.Querier, officerID uuid.UUID) error {
	const op = "officer_metrics.increment_resolved"

	n, err := q.IncrementTicketsResolved(ctx, officerID)
	if err != nil {
		return domain.Storage(err, op, "failed to update officer metrics")
	}
	if n == 0 {
		m.logger.Debug("resolved counter skipped, officer not found", "officer_id", officerID)
	}
	return nil
}

// IncrementReopened adds one to the officer's reopened counter.
// An unknown officer is a no-op.
func (m *OfficerMetrics) IncrementReopened(ctx context.Context, q repository.Querier, officerID uuid.UUID) error {
	const op = "officer_metrics.increment_reopened"

	n, err := q.IncrementTicketsReopened(ctx, officerID)
	if err != nil {
		return domain.Storage(err, op, "failed to update officer metrics")
	}
	if n == 0 {
		m.logger.Debug("reopened counter skipped, officer not found", "officer_id", officerID)
	}
	return nil
}

// Apply performs the metric effects of a transition in order.
func (m *OfficerMetrics) Apply(ctx context.Context, q repository.Querier, effects []domain.MetricEffect) error {
	for _, e := range effects {
		var err error
		switch e.Counter {
		case domain.CounterResolved:
			err = m.IncrementResolved(ctx, q, e.OfficerID)
		case domain.CounterReopened:
			err = m.IncrementReopened(ctx, q, e.OfficerID)
		default:
			err = domain.Internal(nil, "officer_metrics.apply", "unknown counter "+string(e.Counter))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
