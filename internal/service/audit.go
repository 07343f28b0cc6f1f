// Package service contains business logic for the CivicPulse application.
//
// This file implements the append-only complaint audit log.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/google/uuid"
)

// AuditLog writes and reads complaint history. Entries are never updated or
// deleted.
type AuditLog struct {
	store  repository.Store
	logger *slog.Logger
}

// NewAuditLog creates an AuditLog.
func NewAuditLog(store repository.Store, logger *slog.Logger) *AuditLog {
	return &AuditLog{store: store, logger: logger}
}

// Record appends one entry using q, which is normally the querier of the
// enclosing lifecycle transaction. A write failure is a domain.ESTORAGE error.
func (a *AuditLog) Record(ctx context.Context, q repository.Querier, rec domain.AuditRecord) (*domain.HistoryEntry, error) {
	const op = "audit.record"

	if q == nil {
		q = a.store
	}

	row, err := q.CreateComplaintHistory(ctx, repository.CreateComplaintHistoryParams{
		ComplaintID:    rec.ComplaintID,
		ActionByUserID: domain.ToNullUUID(rec.ActorID),
		ActionType:     rec.Action.String(),
		Details:        rec.Details,
	})
	if err != nil {
		return nil, domain.Storage(err, op, "failed to write audit entry")
	}

	entry := rowToHistoryEntry(row)
	return &entry, nil
}

// History returns the entries of a complaint, newest first.
// Returns domain.ENOTFOUND if the complaint does not exist.
func (a *AuditLog) History(ctx context.Context, complaintID uuid.UUID) ([]domain.HistoryEntry, error) {
	const op = "audit.history"

	if _, err := a.store.GetComplaintByID(ctx, complaintID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "Complaint", complaintID.String())
		}
		return nil, domain.Storage(err, op, "failed to fetch complaint")
	}

	rows, err := a.store.ListComplaintHistory(ctx, complaintID)
	if err != nil {
		return nil, domain.Storage(err, op, "failed to fetch history")
	}

	entries := make([]domain.HistoryEntry, len(rows))
	for i, row := range rows {
		entries[i] = rowToHistoryEntry(row.ComplaintHistory)
		entries[i].ActorName = domain.NullStringValue(row.ActorName)
	}
	return entries, nil
}

func rowToHistoryEntry(row repository.ComplaintHistory) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:          row.ID,
		ComplaintID: row.ComplaintID,
		ActorID:     domain.NullUUIDValue(row.ActionByUserID),
		Action:      domain.HistoryAction(row.ActionType),
		Details:     row.Details,
		CreatedAt:   row.CreatedAt,
	}
}
