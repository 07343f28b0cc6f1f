package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryAction tags an audit entry with the action that produced it.
type HistoryAction string

const (
	ActionCreated        HistoryAction = "CREATED"
	ActionAssigned       HistoryAction = "ASSIGNED"
	ActionRejected       HistoryAction = "REJECTED"
	ActionNoteAdded      HistoryAction = "NOTE_ADDED"
	ActionReopened       HistoryAction = "REOPENED"
	ActionPriorityChange HistoryAction = "PRIORITY_CHANGE"
	ActionResolved       HistoryAction = "RESOLVED"
	ActionRated          HistoryAction = "RATED"
)

// String returns the string representation of the action.
func (a HistoryAction) String() string {
	return string(a)
}

// HistoryEntry is one immutable audit record of an action on a complaint.
type HistoryEntry struct {
	ID          int64
	ComplaintID uuid.UUID
	ActorID     *uuid.UUID // Nil for system and bulk actions
	ActorName   string     // Populated by history queries
	Action      HistoryAction
	Details     string
	CreatedAt   time.Time
}

// AuditRecord is an audit entry that has not been written yet.
type AuditRecord struct {
	ComplaintID uuid.UUID
	ActorID     *uuid.UUID
	Action      HistoryAction
	Details     string
}
