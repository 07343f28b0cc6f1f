package handler

import (
	"context"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/service"
	"github.com/google/uuid"
)

// ComplaintResponse is the API representation of a complaint.
type ComplaintResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	CategoryID         int32      `json:"category_id"`
	CategoryName       string     `json:"category_name,omitempty"`
	ReporterID         uuid.UUID  `json:"reporter_id"`
	ReporterName       string     `json:"reporter_name,omitempty"`
	AssignedTo         *uuid.UUID `json:"assigned_to,omitempty"`
	AssignedToName     string     `json:"assigned_to_name,omitempty"`
	Location           string     `json:"location"`
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	ImageURL           string     `json:"image_url,omitempty"`
	AdminComment       string     `json:"admin_comment,omitempty"`
	MaterialsUsed      string     `json:"materials_used,omitempty"`
	ResolutionProofURL string     `json:"resolution_proof_url,omitempty"`
	ResolvedLatitude   *float64   `json:"resolved_latitude,omitempty"`
	ResolvedLongitude  *float64   `json:"resolved_longitude,omitempty"`
	CitizenRating      *int32     `json:"citizen_rating,omitempty"`
	CitizenFeedback    string     `json:"citizen_feedback,omitempty"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// toComplaintResponse converts a complaint, turning attachment references
// into links. A reference that cannot be linked is left out.
func toComplaintResponse(ctx context.Context, attachments service.AttachmentStore, c domain.Complaint) ComplaintResponse {
	return ComplaintResponse{
		ID:                 c.ID,
		Title:              c.Title,
		Description:        c.Description,
		CategoryID:         c.CategoryID,
		CategoryName:       c.CategoryName,
		ReporterID:         c.UserID,
		ReporterName:       c.ReporterName,
		AssignedTo:         c.AssignedTo,
		AssignedToName:     c.AssignedToName,
		Location:           c.Location,
		Latitude:           c.Latitude,
		Longitude:          c.Longitude,
		Status:             c.Status.String(),
		Priority:           c.Priority.String(),
		ImageURL:           attachmentURL(ctx, attachments, c.ImageURL),
		AdminComment:       c.AdminComment,
		MaterialsUsed:      c.MaterialsUsed,
		ResolutionProofURL: attachmentURL(ctx, attachments, c.ResolutionProofURL),
		ResolvedLatitude:   c.ResolvedLatitude,
		ResolvedLongitude:  c.ResolvedLongitude,
		CitizenRating:      c.CitizenRating,
		CitizenFeedback:    c.CitizenFeedback,
		AssignedAt:         c.AssignedAt,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func attachmentURL(ctx context.Context, attachments service.AttachmentStore, ref string) string {
	if ref == "" || attachments == nil {
		return ""
	}
	url, err := attachments.URL(ctx, ref)
	if err != nil {
		return ""
	}
	return url
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID        int64      `json:"id"`
	Action    string     `json:"action"`
	Details   string     `json:"details"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	ActorName string     `json:"actor_name,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toHistoryResponses(entries []domain.HistoryEntry) []HistoryResponse {
	out := make([]HistoryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryResponse{
			ID:        e.ID,
			Action:    e.Action.String(),
			Details:   e.Details,
			ActorID:   e.ActorID,
			ActorName: e.ActorName,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Message            string     `json:"message"`
	Type               string     `json:"type"`
	RelatedComplaintID *uuid.UUID `json:"related_complaint_id,omitempty"`
	IsRead             bool       `json:"is_read"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toNotificationResponses(notes []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, len(notes))
	for i, n := range notes {
		out[i] = NotificationResponse{
			ID:                 n.ID,
			Message:            n.Message,
			Type:               n.Type.String(),
			RelatedComplaintID: n.RelatedComplaintID,
			IsRead:             n.IsRead,
			CreatedAt:          n.CreatedAt,
		}
	}
	return out
}

// UserResponse is the public view of a user. The password hash never leaves
// the service layer.
type UserResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	Role            string    `json:"role"`
	Department      string    `json:"department,omitempty"`
	WardNumber      string    `json:"ward_number,omitempty"`
	Enabled         bool      `json:"enabled"`
	TicketsResolved int32     `json:"tickets_resolved"`
	TicketsReopened int32     `json:"tickets_reopened"`
	CreatedAt       time.Time `json:"created_at"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Phone:           u.Phone,
		Role:            u.Role.String(),
		Department:      u.Department,
		WardNumber:      u.WardNumber,
		Enabled:         u.Enabled,
		TicketsResolved: u.TicketsResolved,
		TicketsReopened: u.TicketsReopened,
		CreatedAt:       u.CreatedAt,
	}
}

func toUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	return out
}
