package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Transition Effects
// =============================================================================

// OfficerCounter names an officer performance counter.
type OfficerCounter string

const (
	CounterResolved OfficerCounter = "resolved"
	CounterReopened OfficerCounter = "reopened"
)

// MetricEffect increments one counter of one officer by one.
type MetricEffect struct {
	OfficerID uuid.UUID
	Counter   OfficerCounter
}

// Effects are the side effects of a single transition. They are applied in
// field order: audit entry, metrics, notifications.
type Effects struct {
	Audit         AuditRecord
	Metrics       []MetricEffect
	Notifications []NotificationIntent
}

// Transition is the result of a lifecycle operation: the complaint's new
// state and the effects that must be committed with it.
type Transition struct {
	Complaint Complaint
	Effects   Effects
}

func notifyUser(userID uuid.UUID, complaintID uuid.UUID, typ NotificationType, msg string) NotificationIntent {
	id := userID
	related := complaintID
	return NotificationIntent{UserID: &id, Message: msg, Type: typ, RelatedComplaintID: &related}
}

func notifyRole(role Role, complaintID uuid.UUID, typ NotificationType, msg string) NotificationIntent {
	related := complaintID
	return NotificationIntent{Role: role, Message: msg, Type: typ, RelatedComplaintID: &related}
}

// =============================================================================
// Transitions
// =============================================================================

// FileComplaint creates a new PENDING complaint. The administrators are told
// about it.
func FileComplaint(id uuid.UUID, p FileComplaintParams, imageURL string, now time.Time) Transition {
	c := Complaint{
		ID:          id,
		UserID:      p.UserID,
		CategoryID:  p.CategoryID,
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    imageURL,
		Location:    p.Location,
		Latitude:    cloneFloat(p.Latitude),
		Longitude:   cloneFloat(p.Longitude),
		Status:      ComplaintStatusPending,
		Priority:    PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	reporter := p.UserID
	return Transition{
		Complaint: c,
		Effects: Effects{
			Audit: AuditRecord{ComplaintID: id, ActorID: &reporter, Action: ActionCreated, Details: "Complaint filed."},
			Notifications: []NotificationIntent{
				notifyRole(RoleAdmin, id, NotificationInfo, "New Complaint Filed: "+c.Title),
			},
		},
	}
}

// AssignComplaint hands the complaint to an officer and moves it to
// IN_PROGRESS, which also unlocks a REOPENED ticket. The officer is nil when
// the id does not resolve; only an enabled officer is notified.
func AssignComplaint(c Complaint, officerID uuid.UUID, officer *User, actor *uuid.UUID, now time.Time) Transition {
	next := c.Clone()
	assignee := officerID
	next.AssignedTo = &assignee
	next.Status = ComplaintStatusInProgress
	assignedAt := now
	next.AssignedAt = &assignedAt
	next.UpdatedAt = now

	name := officerID.String()
	if officer != nil {
		name = officer.DisplayName()
	}

	effects := Effects{
		Audit: AuditRecord{ComplaintID: c.ID, ActorID: cloneUUID(actor), Action: ActionAssigned, Details: "Assigned to Officer: " + name},
	}
	if officer != nil && officer.Enabled {
		effects.Notifications = append(effects.Notifications,
			notifyUser(officerID, c.ID, NotificationInfo, "New Task Assigned: "+c.Title))
	}

	return Transition{Complaint: next, Effects: effects}
}

// RejectComplaint declines the complaint and releases any assigned officer.
func RejectComplaint(c Complaint, comment string, actor *uuid.UUID, now time.Time) Transition {
	next := c.Clone()
	next.Status = ComplaintStatusRejected
	next.AdminComment = comment
	next.AssignedTo = nil
	next.UpdatedAt = now

	return Transition{
		Complaint: next,
		Effects: Effects{
			Audit: AuditRecord{ComplaintID: c.ID, ActorID: cloneUUID(actor), Action: ActionRejected, Details: "Reason: " + comment},
			Notifications: []NotificationIntent{
				notifyUser(c.UserID, c.ID, NotificationAlert, "Complaint Rejected: "+c.Title),
			},
		},
	}
}

// AddAdminComment replaces the administrator note. Status is unchanged.
func AddAdminComment(c Complaint, comment string, actor *uuid.UUID, now time.Time) Transition {
	next := c.Clone()
	next.AdminComment = comment
	next.UpdatedAt = now

	return Transition{
		Complaint: next,
		Effects: Effects{
			Audit: AuditRecord{ComplaintID: c.ID, ActorID: cloneUUID(actor), Action: ActionNoteAdded, Details: "Admin Note: " + comment},
		},
	}
}

// ReopenComplaint locks the complaint until an administrator re-assigns it.
// The assigned officer keeps the ticket and is charged one reopen on every
// call.
func ReopenComplaint(c Complaint, actor *uuid.UUID, now time.Time) Transition {
	next := c.Clone()
	next.Status = ComplaintStatusReopened
	next.Priority = PriorityHigh
	next.UpdatedAt = now

	var effects Effects
	if c.AssignedTo != nil {
		effects.Metrics = append(effects.Metrics, MetricEffect{OfficerID: *c.AssignedTo, Counter: CounterReopened})
		effects.Notifications = append(effects.Notifications,
			notifyUser(*c.AssignedTo, c.ID, NotificationAlert, "Task Reopened: "+c.Title+". Waiting for Admin."))
	}
	effects.Audit = AuditRecord{
		ComplaintID: c.ID,
		ActorID:     cloneUUID(actor),
		Action:      ActionReopened,
		Details:     "Ticket reopened. Waiting for Admin approval.",
	}
	effects.Notifications = append(effects.Notifications,
		notifyRole(RoleAdmin, c.ID, NotificationAlert, fmt.Sprintf("Ticket #%s Reopened. Needs Re-assignment.", c.ID)))

	return Transition{Complaint: next, Effects: effects}
}

// ChangePriority sets a new triage priority.
func ChangePriority(c Complaint, p ComplaintPriority, actor *uuid.UUID, now time.Time) Transition {
	next := c.Clone()
	next.Priority = p
	next.UpdatedAt = now

	return Transition{
		Complaint: next,
		Effects: Effects{
			Audit: AuditRecord{ComplaintID: c.ID, ActorID: cloneUUID(actor), Action: ActionPriorityChange, Details: "Priority changed to " + p.String()},
		},
	}
}

// ResolveInput carries the officer's on-site report.
type ResolveInput struct {
	OfficerID *uuid.UUID // Resolving officer, adopted when nobody is assigned
	Materials string
	Position  Coordinates
	ProofURL  string // Empty keeps any existing proof reference
}

// CheckResolvable enforces the resolve preconditions in order: a REOPENED
// ticket is locked, then the officer must stand within radius meters of the
// reported site. Complaints without a reported site skip the geofence.
func CheckResolvable(op string, c Complaint, pos Coordinates, radius float64) error {
	if c.Status == ComplaintStatusReopened {
		return Locked(op, "Action Blocked: Admin must re-assign this ticket.")
	}
	if c.HasLocation() {
		site := Coordinates{Latitude: *c.Latitude, Longitude: *c.Longitude}
		if ok, d := WithinGeofence(site, pos, radius); !ok {
			return Geofence(op, int(d), int(math.Round(radius)))
		}
	}
	return nil
}

// CheckResolver verifies who may resolve c. When an officer is assigned only
// that officer may resolve; an unassigned complaint is adopted by the
// resolving officer, who must then be known.
func CheckResolver(op string, c Complaint, officerID *uuid.UUID) error {
	switch {
	case c.AssignedTo != nil && officerID != nil && *officerID != *c.AssignedTo:
		return Forbidden(op, "Only the assigned officer can resolve this complaint")
	case c.AssignedTo == nil && officerID == nil:
		return Invalid(op, "Resolving officer is required")
	}
	return nil
}

// ResolveComplaint closes the complaint on site. The assigned officer is
// credited with one resolution and the reporter is invited to rate the work.
func ResolveComplaint(op string, c Complaint, in ResolveInput, radius float64, now time.Time) (Transition, error) {
	if err := CheckResolver(op, c, in.OfficerID); err != nil {
		return Transition{}, err
	}
	if err := CheckResolvable(op, c, in.Position, radius); err != nil {
		return Transition{}, err
	}
	officer := cloneUUID(c.AssignedTo)
	if officer == nil {
		officer = cloneUUID(in.OfficerID)
	}

	next := c.Clone()
	next.AssignedTo = officer
	next.Status = ComplaintStatusResolved
	next.MaterialsUsed = in.Materials
	lat, lng := in.Position.Latitude, in.Position.Longitude
	next.ResolvedLatitude = &lat
	next.ResolvedLongitude = &lng
	if in.ProofURL != "" {
		next.ResolutionProofURL = in.ProofURL
	}
	next.UpdatedAt = now

	return Transition{
		Complaint: next,
		Effects: Effects{
			Audit:   AuditRecord{ComplaintID: c.ID, ActorID: cloneUUID(officer), Action: ActionResolved, Details: "Materials: " + in.Materials},
			Metrics: []MetricEffect{{OfficerID: *officer, Counter: CounterResolved}},
			Notifications: []NotificationIntent{
				notifyUser(c.UserID, c.ID, NotificationSuccess, "Complaint Resolved: "+c.Title+". Please rate us."),
			},
		},
	}, nil
}

// RecordFeedback stores the citizen's rating. Status and resolution fields are
// unchanged.
func RecordFeedback(c Complaint, rating int32, feedback string, now time.Time) Transition {
	next := c.Clone()
	r := rating
	next.CitizenRating = &r
	next.CitizenFeedback = feedback
	next.UpdatedAt = now

	reporter := c.UserID
	return Transition{
		Complaint: next,
		Effects: Effects{
			Audit: AuditRecord{
				ComplaintID: c.ID,
				ActorID:     &reporter,
				Action:      ActionRated,
				Details:     fmt.Sprintf("Rating: %d Stars. Feedback: %s", rating, feedback),
			},
		},
	}
}
