// Package service contains business logic for the CivicPulse application.
//
// This file implements the in-app notifier and the recipient inbox.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/email"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/civicpulse/civicpulse/internal/worker"
	"github.com/google/uuid"
)

// NotificationPublisher pushes a committed notification to live subscribers.
type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// Notifier fans notifications out to users and roles. Writes go through the
// caller's querier so they commit or roll back with the transition that
// produced them; live delivery happens after commit via Publish.
type Notifier struct {
	store       repository.Store
	publisher   NotificationPublisher
	mailEnabled bool
	logger      *slog.Logger
}

// NotifierOption customizes a Notifier.
type NotifierOption func(*Notifier)

// WithPublisher enables live push of committed notifications.
func WithPublisher(p NotificationPublisher) NotifierOption {
	return func(n *Notifier) {
		n.publisher = p
	}
}

// WithMailMirror copies every notification to the recipient's mail through
// the job queue.
func WithMailMirror(enabled bool) NotifierOption {
	return func(n *Notifier) {
		n.mailEnabled = enabled
	}
}

// NewNotifier creates a Notifier.
func NewNotifier(store repository.Store, logger *slog.Logger, opts ...NotifierOption) *Notifier {
	n := &Notifier{store: store, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// =============================================================================
// Fan-out
// =============================================================================

// Notify writes one notification. It returns nil without error when the
// recipient does not exist.
func (n *Notifier) Notify(
	ctx context.Context,
	q repository.Querier,
	recipientID uuid.UUID,
	message string,
	typ domain.NotificationType,
	relatedComplaintID *uuid.UUID,
) (*domain.Notification, error) {
	const op = "notification.notify"

	if q == nil {
		q = n.store
	}

	row, err := q.CreateNotification(ctx, repository.CreateNotificationParams{
		UserID:             recipientID,
		Message:            message,
		Type:               typ.String(),
		RelatedComplaintID: domain.ToNullUUID(relatedComplaintID),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			n.logger.Debug("notification skipped, recipient not found", "user_id", recipientID)
			return nil, nil
		}
		return nil, domain.Storage(err, op, "failed to write notification")
	}

	if n.mailEnabled {
		user, err := q.GetUserByID(ctx, recipientID)
		if err != nil {
			return nil, domain.Storage(err, op, "failed to load recipient")
		}
		if err := n.enqueueMail(ctx, q, user.Email, message); err != nil {
			return nil, domain.Storage(err, op, "failed to enqueue notification mail")
		}
	}

	note := rowToNotification(row)
	return &note, nil
}

// NotifyAllWithRole writes one notification to every enabled user holding
// role. A role without members is a no-op.
func (n *Notifier) NotifyAllWithRole(
	ctx context.Context,
	q repository.Querier,
	role domain.Role,
	message string,
	typ domain.NotificationType,
	relatedComplaintID *uuid.UUID,
) ([]domain.Notification, error) {
	const op = "notification.notify_role"

	if q == nil {
		q = n.store
	}

	users, err := q.ListEnabledUsersByRole(ctx, role.String())
	if err != nil {
		return nil, domain.Storage(err, op, "failed to list recipients")
	}

	notes := make([]domain.Notification, 0, len(users))
	for _, u := range users {
		row, err := q.CreateNotification(ctx, repository.CreateNotificationParams{
			UserID:             u.ID,
			Message:            message,
			Type:               typ.String(),
			RelatedComplaintID: domain.ToNullUUID(relatedComplaintID),
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, domain.Storage(err, op, "failed to write notification")
		}
		if n.mailEnabled {
			if err := n.enqueueMail(ctx, q, u.Email, message); err != nil {
				return nil, domain.Storage(err, op, "failed to enqueue notification mail")
			}
		}
		notes = append(notes, rowToNotification(row))
	}
	return notes, nil
}

// Deliver writes the notifications a transition asked for, in order.
func (n *Notifier) Deliver(ctx context.Context, q repository.Querier, intents []domain.NotificationIntent) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, intent := range intents {
		if intent.IsBroadcast() {
			notes, err := n.NotifyAllWithRole(ctx, q, intent.Role, intent.Message, intent.Type, intent.RelatedComplaintID)
			if err != nil {
				return nil, err
			}
			out = append(out, notes...)
			continue
		}
		if intent.UserID == nil {
			continue
		}
		note, err := n.Notify(ctx, q, *intent.UserID, intent.Message, intent.Type, intent.RelatedComplaintID)
		if err != nil {
			return nil, err
		}
		if note != nil {
			out = append(out, *note)
		}
	}
	return out, nil
}

// Publish pushes committed notifications to live subscribers. Failures are
// logged and never surfaced.
func (n *Notifier) Publish(ctx context.Context, notes []domain.Notification) {
	metrics.NotificationsWritten(notes)
	if n.publisher == nil {
		return
	}
	for _, note := range notes {
		if err := n.publisher.Publish(ctx, note); err != nil {
			metrics.NotificationPushes.WithLabelValues("error").Inc()
			n.logger.Warn("live notification push failed", "notification_id", note.ID, "user_id", note.UserID, "error", err)
			continue
		}
		metrics.NotificationPushes.WithLabelValues("ok").Inc()
	}
}

func (n *Notifier) enqueueMail(ctx context.Context, q repository.Querier, to, message string) error {
	_, err := worker.Enqueue(ctx, q, worker.SendEmailPayload{
		To:       to,
		Subject:  "CivicPulse Update",
		Template: email.TemplateNotification,
		Data:     map[string]string{"Message": message},
	}, worker.WithPriority(worker.PriorityLow))
	return err
}

// =============================================================================
// Inbox
// =============================================================================

// List returns the user's notifications, newest first.
func (n *Notifier) List(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error) {
	const op = "notification.list"

	rows, err := n.store.ListNotificationsByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list notifications")
	}

	notes := make([]domain.Notification, len(rows))
	for i, row := range rows {
		notes[i] = rowToNotification(row)
	}
	return notes, nil
}

// UnreadCount returns the number of unread notifications for the user.
func (n *Notifier) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "notification.unread_count"

	count, err := n.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to count notifications")
	}
	return count, nil
}

// MarkRead marks one of the user's notifications read.
// Returns domain.ENOTFOUND if it does not exist or belongs to another user.
func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	const op = "notification.mark_read"

	affected, err := n.store.MarkNotificationRead(ctx, repository.MarkNotificationReadParams{
		ID:     notificationID,
		UserID: userID,
	})
	if err != nil {
		return domain.Internal(err, op, "failed to mark notification read")
	}
	if affected == 0 {
		return domain.NotFound(op, "Notification", notificationID.String())
	}
	return nil
}

// MarkAllRead marks every notification of the user read and returns how many
// changed.
func (n *Notifier) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "notification.mark_all_read"

	affected, err := n.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to mark notifications read")
	}
	return affected, nil
}

func rowToNotification(row repository.Notification) domain.Notification {
	return domain.Notification{
		ID:                 row.ID,
		UserID:             row.UserID,
		Message:            row.Message,
		Type:               domain.NotificationType(row.Type),
		RelatedComplaintID: domain.NullUUIDValue(row.RelatedComplaintID),
		IsRead:             row.IsRead,
		CreatedAt:          row.CreatedAt,
	}
}
