// Package domain contains core business types and interfaces.
//
// This file defines the Complaint domain type, its status and priority
// enums and the parameters of each lifecycle operation.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Complaint Status
// =============================================================================

// ComplaintStatus represents the lifecycle state of a complaint.
type ComplaintStatus string

const (
	// ComplaintStatusPending is the initial state of a filed complaint,
	// awaiting triage by an administrator.
	ComplaintStatusPending ComplaintStatus = "PENDING"

	// ComplaintStatusInProgress means an officer has been assigned.
	ComplaintStatusInProgress ComplaintStatus = "IN_PROGRESS"

	// ComplaintStatusResolved means the assigned officer closed the work
	// on site. Citizens may still rate it.
	ComplaintStatusResolved ComplaintStatus = "RESOLVED"

	// ComplaintStatusRejected means an administrator declined the complaint.
	ComplaintStatusRejected ComplaintStatus = "REJECTED"

	// ComplaintStatusReopened blocks resolution until an administrator
	// re-assigns the ticket.
	ComplaintStatusReopened ComplaintStatus = "REOPENED"
)

// String returns the string representation of the status.
func (s ComplaintStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s ComplaintStatus) IsValid() bool {
	switch s {
	case ComplaintStatusPending, ComplaintStatusInProgress, ComplaintStatusResolved,
		ComplaintStatusRejected, ComplaintStatusReopened:
		return true
	}
	return false
}

// ComplaintStatuses returns every status in lifecycle order.
func ComplaintStatuses() []ComplaintStatus {
	return []ComplaintStatus{
		ComplaintStatusPending,
		ComplaintStatusInProgress,
		ComplaintStatusResolved,
		ComplaintStatusRejected,
		ComplaintStatusReopened,
	}
}

// RequiresAssignee returns true if a complaint in this status must have an
// assigned officer.
func (s ComplaintStatus) RequiresAssignee() bool {
	return s == ComplaintStatusInProgress || s == ComplaintStatusResolved
}

// =============================================================================
// Complaint Priority
// =============================================================================

// ComplaintPriority represents triage urgency.
type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "LOW"
	PriorityMedium ComplaintPriority = "MEDIUM"
	PriorityHigh   ComplaintPriority = "HIGH"
)

// String returns the string representation of the priority.
func (p ComplaintPriority) String() string {
	return string(p)
}

// IsValid returns true if the priority is a recognized value.
func (p ComplaintPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// =============================================================================
// Complaint Domain Type
// =============================================================================

// Rating bounds for citizen feedback.
const (
	MinRating = 1
	MaxRating = 5
)

// Complaint represents a municipal issue filed by a citizen.
type Complaint struct {
	ID          uuid.UUID
	UserID      uuid.UUID  // Reporting citizen
	CategoryID  int32      // Complaint category
	AssignedTo  *uuid.UUID // Assigned officer, if any
	Title       string
	Description string
	ImageURL    string   // Optional photo reference from filing
	Location    string   // Free-text location
	Latitude    *float64 // Reported site, optional
	Longitude   *float64
	Status      ComplaintStatus
	Priority    ComplaintPriority

	AdminComment string

	// Set by Resolve only
	MaterialsUsed      string
	ResolutionProofURL string
	ResolvedLatitude   *float64
	ResolvedLongitude  *float64

	// Set by SubmitFeedback only
	CitizenRating   *int32
	CitizenFeedback string

	AssignedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Computed fields (populated by list queries)
	CategoryName   string
	ReporterName   string
	AssignedToName string
}

// HasLocation returns true if the complaint carries reported coordinates.
func (c *Complaint) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// IsAssigned returns true if an officer is associated with the complaint.
func (c *Complaint) IsAssigned() bool {
	return c.AssignedTo != nil
}

// Clone returns a deep copy so transitions never alias the caller's pointers.
func (c Complaint) Clone() Complaint {
	out := c
	out.AssignedTo = cloneUUID(c.AssignedTo)
	out.Latitude = cloneFloat(c.Latitude)
	out.Longitude = cloneFloat(c.Longitude)
	out.ResolvedLatitude = cloneFloat(c.ResolvedLatitude)
	out.ResolvedLongitude = cloneFloat(c.ResolvedLongitude)
	out.AssignedAt = cloneTime(c.AssignedAt)
	if c.CitizenRating != nil {
		r := *c.CitizenRating
		out.CitizenRating = &r
	}
	return out
}

func cloneUUID(v *uuid.UUID) *uuid.UUID {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// =============================================================================
// Complaint Service Parameters
// =============================================================================

// FileComplaintParams contains parameters for filing a complaint.
type FileComplaintParams struct {
	UserID      uuid.UUID   // Reporting citizen (from auth context)
	CategoryID  int32       // Required
	Title       string      // Required
	Description string      // Required
	Location    string      // Free text
	Latitude    *float64    // Optional, both or neither
	Longitude   *float64    // Optional
	Image       *Attachment // Optional photo
}

// BulkAssignParams contains parameters for assigning complaints to an officer.
type BulkAssignParams struct {
	ComplaintIDs []uuid.UUID
	OfficerID    uuid.UUID
	ActorID      *uuid.UUID // Administrator performing the assignment
}

// BulkAssignResult reports the outcome per complaint id. Skipped ids did not
// resolve; Failed ids hit an error and were rolled back individually.
type BulkAssignResult struct {
	Assigned []uuid.UUID
	Skipped  []uuid.UUID
	Failed   []uuid.UUID
}

// RejectParams contains parameters for rejecting a complaint.
type RejectParams struct {
	ComplaintID uuid.UUID
	Comment     string // Required
	ActorID     *uuid.UUID
}

// AddCommentParams contains parameters for adding an administrator note.
type AddCommentParams struct {
	ComplaintID uuid.UUID
	Comment     string
	ActorID     *uuid.UUID
}

// ReopenParams contains parameters for reopening a complaint.
type ReopenParams struct {
	ComplaintID uuid.UUID
	ActorID     *uuid.UUID
}

// UpdatePriorityParams contains parameters for changing a complaint's priority.
type UpdatePriorityParams struct {
	ComplaintID uuid.UUID
	Priority    string // Raw value, validated against ComplaintPriority
	ActorID     *uuid.UUID
}

// ResolveParams contains parameters for resolving a complaint on site.
type ResolveParams struct {
	ComplaintID   uuid.UUID
	OfficerID     *uuid.UUID // Resolving officer (from auth context)
	MaterialsUsed string     // Required
	Latitude      *float64   // Required: officer's current position
	Longitude     *float64   // Required
	Proof         *Attachment
}

// SubmitFeedbackParams contains parameters for citizen feedback.
type SubmitFeedbackParams struct {
	ComplaintID uuid.UUID
	Rating      int32
	Feedback    string
}

// ListComplaintsParams filters complaint listings.
type ListComplaintsParams struct {
	ReporterID *uuid.UUID        // Complaints filed by this user
	AssigneeID *uuid.UUID        // Complaints assigned to this officer
	Statuses   []ComplaintStatus // Empty means all statuses
}
