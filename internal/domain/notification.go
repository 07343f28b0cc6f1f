package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies an in-app notification for display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "SUCCESS"
	NotificationAlert   NotificationType = "ALERT"
	NotificationInfo    NotificationType = "INFO"
)

// String returns the string representation of the type.
func (t NotificationType) String() string {
	return string(t)
}

// IsValid returns true if the type is a recognized value.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationSuccess, NotificationAlert, NotificationInfo:
		return true
	}
	return false
}

// Notification is a message directed at exactly one user.
type Notification struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Message            string
	Type               NotificationType
	RelatedComplaintID *uuid.UUID
	IsRead             bool
	CreatedAt          time.Time
}

// NotificationIntent describes notifications a transition wants delivered.
// Exactly one of UserID or Role is set.
type NotificationIntent struct {
	UserID             *uuid.UUID
	Role               Role
	Message            string
	Type               NotificationType
	RelatedComplaintID *uuid.UUID
}

// IsBroadcast returns true if the intent targets every enabled member of a role.
func (n NotificationIntent) IsBroadcast() bool {
	return n.UserID == nil && n.Role != ""
}
