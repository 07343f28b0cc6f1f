package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// created_at never goes backwards within one complaint, even if the wall
// clock does.
const createComplaintHistory = `-- name: CreateComplaintHistory :one
INSERT INTO complaint_history (complaint_id, action_by_user_id, action_type, details, created_at)
SELECT $1, $2, $3, $4, GREATEST(
    clock_timestamp(),
    COALESCE((SELECT MAX(h.created_at) FROM complaint_history h WHERE h.complaint_id = $1), '-infinity')
)
RETURNING id, complaint_id, action_by_user_id, action_type, details, created_at`

type CreateComplaintHistoryParams struct {
	ComplaintID    uuid.UUID     `json:"complaint_id"`
	ActionByUserID uuid.NullUUID `json:"action_by_user_id"`
	ActionType     string        `json:"action_type"`
	Details        string        `json:"details"`
}

func (q *Queries) CreateComplaintHistory(ctx context.Context, arg CreateComplaintHistoryParams) (ComplaintHistory, error) {
	row := q.db.QueryRowContext(ctx, createComplaintHistory,
		arg.ComplaintID,
		arg.ActionByUserID,
		arg.ActionType,
		arg.Details,
	)
	var i ComplaintHistory
	err := row.Scan(
		&i.ID,
		&i.ComplaintID,
		&i.ActionByUserID,
		&i.ActionType,
		&i.Details,
		&i.CreatedAt,
	)
	return i, err
}

const listComplaintHistory = `-- name: ListComplaintHistory :many
SELECT h.id, h.complaint_id, h.action_by_user_id, h.action_type, h.details, h.created_at,
    u.name AS actor_name
FROM complaint_history h
LEFT JOIN users u ON u.id = h.action_by_user_id
WHERE h.complaint_id = $1
ORDER BY h.created_at DESC, h.id DESC`

type ListComplaintHistoryRow struct {
	ComplaintHistory
	ActorName sql.NullString `json:"actor_name"`
}

func (q *Queries) ListComplaintHistory(ctx context.Context, complaintID uuid.UUID) ([]ListComplaintHistoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listComplaintHistory, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListComplaintHistoryRow
	for rows.Next() {
		var i ListComplaintHistoryRow
		if err := rows.Scan(
			&i.ID,
			&i.ComplaintID,
			&i.ActionByUserID,
			&i.ActionType,
			&i.Details,
			&i.CreatedAt,
			&i.ActorName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
