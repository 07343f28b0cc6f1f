package repository

import (
	"context"

	"github.com/google/uuid"
)

const notificationColumns = `id, user_id, message, type, related_complaint_id, is_read, created_at`

// Inserts nothing when the recipient does not exist; the caller sees
// sql.ErrNoRows.
const createNotification = `-- name: CreateNotification :one
INSERT INTO notifications (user_id, message, type, related_complaint_id)
SELECT u.id, $2, $3, $4
FROM users u
WHERE u.id = $1
RETURNING ` + notificationColumns

type CreateNotificationParams struct {
	UserID             uuid.UUID     `json:"user_id"`
	Message            string        `json:"message"`
	Type               string        `json:"type"`
	RelatedComplaintID uuid.NullUUID `json:"related_complaint_id"`
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRowContext(ctx, createNotification,
		arg.UserID,
		arg.Message,
		arg.Type,
		arg.RelatedComplaintID,
	)
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Message,
		&i.Type,
		&i.RelatedComplaintID,
		&i.IsRead,
		&i.CreatedAt,
	)
	return i, err
}

const listNotificationsByUser = `-- name: ListNotificationsByUser :many
SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC, id`

func (q *Queries) ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listNotificationsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Notification
	for rows.Next() {
		var i Notification
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Message,
			&i.Type,
			&i.RelatedComplaintID,
			&i.IsRead,
			&i.CreatedAt,
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

const countUnreadNotifications = `-- name: CountUnreadNotifications :one
SELECT COUNT(*) FROM notifications
WHERE user_id = $1 AND is_read = false`

func (q *Queries) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUnreadNotifications, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const markNotificationRead = `-- name: MarkNotificationRead :execrows
UPDATE notifications
SET is_read = true
WHERE id = $1 AND user_id = $2`

type MarkNotificationReadParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markNotificationRead, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markAllNotificationsRead = `-- name: MarkAllNotificationsRead :execrows
UPDATE notifications
SET is_read = true
WHERE user_id = $1 AND is_read = false`

func (q *Queries) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := q.db.ExecContext(ctx, markAllNotificationsRead, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
