package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Complaint struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"user_id"`
	CategoryID         int32           `json:"category_id"`
	AssignedTo         uuid.NullUUID   `json:"assigned_to"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	ImageUrl           sql.NullString  `json:"image_url"`
	Location           string          `json:"location"`
	Latitude           sql.NullFloat64 `json:"latitude"`
	Longitude          sql.NullFloat64 `json:"longitude"`
	Status             string          `json:"status"`
	Priority           string          `json:"priority"`
	AdminComment       sql.NullString  `json:"admin_comment"`
	MaterialsUsed      sql.NullString  `json:"materials_used"`
	ResolutionProofUrl sql.NullString  `json:"resolution_proof_url"`
	ResolvedLatitude   sql.NullFloat64 `json:"resolved_latitude"`
	ResolvedLongitude  sql.NullFloat64 `json:"resolved_longitude"`
	CitizenRating      sql.NullInt32   `json:"citizen_rating"`
	CitizenFeedback    sql.NullString  `json:"citizen_feedback"`
	AssignedAt         sql.NullTime    `json:"assigned_at"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type ComplaintCategory struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type ComplaintHistory struct {
	ID             int64         `json:"id"`
	ComplaintID    uuid.UUID     `json:"complaint_id"`
	ActionByUserID uuid.NullUUID `json:"action_by_user_id"`
	ActionType     string        `json:"action_type"`
	Details        string        `json:"details"`
	CreatedAt      time.Time     `json:"created_at"`
}

type Job struct {
	ID           uuid.UUID       `json:"id"`
	JobType      string          `json:"job_type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	Priority     int32           `json:"priority"`
	Attempts     int32           `json:"attempts"`
	MaxAttempts  int32           `json:"max_attempts"`
	ScheduledAt  time.Time       `json:"scheduled_at"`
	StartedAt    sql.NullTime    `json:"started_at"`
	CompletedAt  sql.NullTime    `json:"completed_at"`
	ErrorMessage sql.NullString  `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Notification struct {
	ID                 uuid.UUID     `json:"id"`
	UserID             uuid.UUID     `json:"user_id"`
	Message            string        `json:"message"`
	Type               string        `json:"type"`
	RelatedComplaintID uuid.NullUUID `json:"related_complaint_id"`
	IsRead             bool          `json:"is_read"`
	CreatedAt          time.Time     `json:"created_at"`
}

type User struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	PasswordHash    string         `json:"password_hash"`
	PhoneNumber     sql.NullString `json:"phone_number"`
	Role            string         `json:"role"`
	Department      sql.NullString `json:"department"`
	WardNumber      sql.NullString `json:"ward_number"`
	Enabled         bool           `json:"enabled"`
	TicketsResolved int32          `json:"tickets_resolved"`
	TicketsReopened int32          `json:"tickets_reopened"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
