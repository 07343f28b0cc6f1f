package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Querier interface {
	CountComplaintsByStatus(ctx context.Context) ([]CountComplaintsByStatusRow, error)
	CountJobsByStatus(ctx context.Context) ([]CountJobsByStatusRow, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
	CreateComplaint(ctx context.Context, arg CreateComplaintParams) (Complaint, error)
	CreateComplaintHistory(ctx context.Context, arg CreateComplaintHistoryParams) (ComplaintHistory, error)
	CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	DeleteFinishedJobsBefore(ctx context.Context, before time.Time) (int64, error)
	DequeueJob(ctx context.Context) (Job, error)
	EnableUser(ctx context.Context, id uuid.UUID) error
	EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error)
	GetCategoryByID(ctx context.Context, id int32) (ComplaintCategory, error)
	GetComplaintByID(ctx context.Context, id uuid.UUID) (Complaint, error)
	GetComplaintByIDForUpdate(ctx context.Context, id uuid.UUID) (Complaint, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByIDForUpdate(ctx context.Context, id uuid.UUID) (User, error)
	IncrementTicketsReopened(ctx context.Context, id uuid.UUID) (int64, error)
	IncrementTicketsResolved(ctx context.Context, id uuid.UUID) (int64, error)
	ListCategories(ctx context.Context) ([]ComplaintCategory, error)
	ListComplaintHistory(ctx context.Context, complaintID uuid.UUID) ([]ListComplaintHistoryRow, error)
	ListComplaints(ctx context.Context, arg ListComplaintsParams) ([]ListComplaintsRow, error)
	ListEnabledUsersByRole(ctx context.Context, role string) ([]User, error)
	ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error)
	ListPendingOfficers(ctx context.Context) ([]User, error)
	ListUsersByRole(ctx context.Context, role string) ([]User, error)
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (int64, error)
	RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error)
	UpdateComplaintState(ctx context.Context, arg UpdateComplaintStateParams) (Complaint, error)
	UpdateJobCompleted(ctx context.Context, id uuid.UUID) error
	UpdateJobFailed(ctx context.Context, arg UpdateJobFailedParams) error
	UpdateJobStarted(ctx context.Context, id uuid.UUID) error
	UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (int64, error)
}

var _ Querier = (*Queries)(nil)
