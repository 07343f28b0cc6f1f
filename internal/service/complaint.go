// Package service contains the business logic layer.
//
// This file implements the complaint lifecycle engine. Every operation runs
// in one transaction: the complaint row is locked, the pure transition in
// the domain package decides the new state, and the resulting effects are
// written before commit. Live notification push happens after commit.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ComplaintService defines the complaint lifecycle operations.
type ComplaintService interface {
	// File creates a PENDING complaint and tells the administrators.
	// Returns domain.EINVALID for missing fields, domain.ENOTFOUND if the
	// category or reporter does not exist, domain.ESTORAGE if the photo
	// cannot be stored.
	File(ctx context.Context, params domain.FileComplaintParams) (*domain.Complaint, error)

	// BulkAssign assigns each complaint to the officer in its own
	// transaction. Unknown complaint ids are skipped without error.
	BulkAssign(ctx context.Context, params domain.BulkAssignParams) (*domain.BulkAssignResult, error)

	// Reject declines a complaint. Returns domain.EINVALID without a comment.
	Reject(ctx context.Context, params domain.RejectParams) (*domain.Complaint, error)

	// AddComment replaces the administrator note.
	AddComment(ctx context.Context, params domain.AddCommentParams) (*domain.Complaint, error)

	// Reopen locks the complaint until an administrator re-assigns it.
	Reopen(ctx context.Context, params domain.ReopenParams) (*domain.Complaint, error)

	// UpdatePriority changes triage priority. Returns domain.EINVALID for an
	// unrecognized priority.
	UpdatePriority(ctx context.Context, params domain.UpdatePriorityParams) (*domain.Complaint, error)

	// Resolve closes the complaint on site.
	// Returns domain.ELOCKED for a REOPENED complaint, domain.EGEOFENCE when
	// the officer is too far from the reported site, domain.ESTORAGE when the
	// proof cannot be stored.
	Resolve(ctx context.Context, params domain.ResolveParams) (*domain.Complaint, error)

	// SubmitFeedback stores the citizen rating. Returns domain.EINVALID for a
	// rating outside 1..5.
	SubmitFeedback(ctx context.Context, params domain.SubmitFeedbackParams) (*domain.Complaint, error)

	// GetByID returns a complaint. Returns domain.ENOTFOUND if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Complaint, error)

	// List returns complaints matching the filter, newest first.
	List(ctx context.Context, params domain.ListComplaintsParams) ([]domain.Complaint, error)

	// History returns the audit trail of a complaint, newest first.
	History(ctx context.Context, id uuid.UUID) ([]domain.HistoryEntry, error)
}

// =============================================================================
// Implementation
// =============================================================================

type complaintService struct {
	store          repository.Store
	audit          *AuditLog
	notifier       *Notifier
	officers       *OfficerMetrics
	attachments    AttachmentStore
	geofenceRadius float64
	now            func() time.Time
	logger         *slog.Logger
}

// NewComplaintService creates a ComplaintService. geofenceRadius is in
// meters; a non-positive value falls back to the default radius. A nil
// attachments store rejects every upload.
func NewComplaintService(
	store repository.Store,
	audit *AuditLog,
	notifier *Notifier,
	officers *OfficerMetrics,
	attachments AttachmentStore,
	geofenceRadius float64,
	logger *slog.Logger,
) ComplaintService {
	if geofenceRadius <= 0 {
		geofenceRadius = domain.DefaultGeofenceRadiusMeters
	}
	if attachments == nil {
		attachments = noAttachments{}
	}
	return &complaintService{
		store:          store,
		audit:          audit,
		notifier:       notifier,
		officers:       officers,
		attachments:    attachments,
		geofenceRadius: geofenceRadius,
		now:            time.Now,
		logger:         logger,
	}
}

// =============================================================================
// File
// =============================================================================

func (s *complaintService) File(ctx context.Context, params domain.FileComplaintParams) (*domain.Complaint, error) {
	const op = "complaint.file"

	params.Title = strings.TrimSpace(params.Title)
	params.Description = strings.TrimSpace(params.Description)
	params.Location = strings.TrimSpace(params.Location)
	if err := validateFileParams(op, params); err != nil {
		metrics.TransitionFailed(op, err)
		return nil, err
	}

	var (
		created  domain.Complaint
		notes    []domain.Notification
		imageRef string
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.GetCategoryByID(ctx, params.CategoryID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFound(op, "Category", strconv.Itoa(int(params.CategoryID)))
			}
			return domain.Storage(err, op, "failed to fetch category")
		}
		if _, err := q.GetUserByID(ctx, params.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFound(op, "User", params.UserID.String())
			}
			return domain.Storage(err, op, "failed to fetch reporter")
		}

		if !params.Image.IsEmpty() {
			ref, err := s.saveAttachment(ctx, op, params.Image)
			if err != nil {
				return err
			}
			imageRef = ref
		}

		tr := domain.FileComplaint(uuid.New(), params, imageRef, s.now().UTC())
		row, err := q.CreateComplaint(ctx, repository.CreateComplaintParams{
			ID:          tr.Complaint.ID,
			UserID:      tr.Complaint.UserID,
			CategoryID:  tr.Complaint.CategoryID,
			Title:       tr.Complaint.Title,
			Description: tr.Complaint.Description,
			ImageUrl:    domain.ToNullString(tr.Complaint.ImageURL),
			Location:    tr.Complaint.Location,
			Latitude:    domain.ToNullFloat(tr.Complaint.Latitude),
			Longitude:   domain.ToNullFloat(tr.Complaint.Longitude),
			Status:      tr.Complaint.Status.String(),
			Priority:    tr.Complaint.Priority.String(),
			CreatedAt:   tr.Complaint.CreatedAt,
		})
		if err != nil {
			return domain.Storage(err, op, "failed to create complaint")
		}

		notes, err = s.applyEffects(ctx, q, tr.Effects)
		if err != nil {
			return err
		}
		created = rowToComplaint(row)
		return nil
	})
	if err != nil {
		if imageRef != "" {
			s.attachments.Remove(ctx, imageRef)
		}
		err = txError(op, err)
		metrics.TransitionFailed(op, err)
		return nil, err
	}

	metrics.TransitionCommitted(op)
	metrics.ComplaintsFiled.Inc()
	s.notifier.Publish(ctx, notes)

	s.logger.Info("complaint filed",
		"complaint_id", created.ID,
		"user_id", created.UserID,
		"category_id", created.CategoryID,
	)
	return &created, nil
}

func validateFileParams(op string, p domain.FileComplaintParams) error {
	if p.UserID == uuid.Nil {
		return domain.Invalid(op, "Reporting user is required")
	}
	if p.CategoryID <= 0 {
		return domain.Invalid(op, "Category is required")
	}
	if p.Title == "" {
		return domain.Invalid(op, "Title is required")
	}
	if p.Description == "" {
		return domain.Invalid(op, "Description is required")
	}
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return domain.Invalid(op, "Latitude and longitude must be provided together")
	}
	if p.Latitude != nil {
		if err := validateCoordinates(op, *p.Latitude, *p.Longitude); err != nil {
			return err
		}
	}
	return nil
}

func validateCoordinates(op string, lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return domain.Invalid(op, "Latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return domain.Invalid(op, "Longitude must be between -180 and 180")
	}
	return nil
}

// =============================================================================
// BulkAssign
// =============================================================================

func (s *complaintService) BulkAssign(ctx context.Context, params domain.BulkAssignParams) (*domain.BulkAssignResult, error) {
	const op = "complaint.bulk_assign"

	if params.OfficerID == uuid.Nil {
		return nil, domain.Invalid(op, "Officer is required")
	}

	officer, err := s.lookupOfficer(ctx, params.OfficerID)
	if err != nil {
		return nil, domain.Storage(err, op, "failed to fetch officer")
	}
	if officer != nil && !officer.IsOfficer() {
		return nil, domain.Invalid(op, "Complaints can only be assigned to officers")
	}
	if officer == nil {
		s.logger.Warn("assigning to unresolved officer, no notification will be sent", "officer_id", params.OfficerID)
	}

	result := &domain.BulkAssignResult{}
	for _, id := range params.ComplaintIDs {
		_, err := s.transition(ctx, op, id, func(_ repository.Querier, c domain.Complaint) (domain.Transition, error) {
			return domain.AssignComplaint(c, params.OfficerID, officer, params.ActorID, s.now().UTC()), nil
		})
		switch {
		case err == nil:
			result.Assigned = append(result.Assigned, id)
		case domain.IsCode(err, domain.ENOTFOUND):
			s.logger.Warn("bulk assign skipped unknown complaint", "complaint_id", id)
			result.Skipped = append(result.Skipped, id)
		default:
			s.logger.Error("bulk assign failed for complaint", "complaint_id", id, "error", err)
			result.Failed = append(result.Failed, id)
		}
	}

	s.logger.Info("complaints assigned",
		"officer_id", params.OfficerID,
		"assigned", len(result.Assigned),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return result, nil
}

// lookupOfficer returns nil when the id does not resolve to any user.
func (s *complaintService) lookupOfficer(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user := rowToUser(row)
	return &user, nil
}

// =============================================================================
// Admin actions
// =============================================================================

func (s *complaintService) Reject(ctx context.Context, params domain.RejectParams) (*domain.Complaint, error) {
	const op = "complaint.reject"

	comment := strings.TrimSpace(params.Comment)
	if comment == "" {
		err := domain.Invalid(op, "Rejection comment is required")
		metrics.TransitionFailed(op, err)
		return nil, err
	}

	c, err := s.transition(ctx, op, params.ComplaintID, func(_ repository.Querier, c domain.Complaint) (domain.Transition, error) {
		return domain.RejectComplaint(c, comment, params.ActorID, s.now().UTC()), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint rejected", "complaint_id", c.ID)
	return c, nil
}

func (s *complaintService) AddComment(ctx context.Context, params domain.AddCommentParams) (*domain.Complaint, error) {
	const op = "complaint.add_comment"

	comment := strings.TrimSpace(params.Comment)
	if comment == "" {
		err := domain.Invalid(op, "Comment is required")
		metrics.TransitionFailed(op, err)
		return nil, err
	}

	c, err := s.transition(ctx, op, params.ComplaintID, func(_ repository.Querier, c domain.Complaint) (domain.Transition, error) {
		return domain.AddAdminComment(c, comment, params.ActorID, s.now().UTC()), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("admin note added", "complaint_id", c.ID)
	return c, nil
}

func (s *complaintService) Reopen(ctx context.Context, params domain.ReopenParams) (*domain.Complaint, error) {
	const op = "complaint.reopen"

	c, err := s.transition(ctx, op, params.ComplaintID, func(_ repository.Querier, c domain.Complaint) (domain.Transition, error) {
		return domain.ReopenComplaint(c, params.ActorID, s.now().UTC()), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint reopened", "complaint_id", c.ID, "assigned_to", c.AssignedTo)
	return c, nil
}

func (s *complaintService) UpdatePriority(ctx context.Context, params domain.UpdatePriorityParams) (*domain.Complaint, error) {
	const op = "complaint.update_priority"

	priority := domain.ComplaintPriority(strings.ToUpper(strings.TrimSpace(params.Priority)))
	if !priority.IsValid() {
		err := domain.Errorf(domain.EINVALID, op, "Unrecognized priority %q", params.Priority)
		metrics.TransitionFailed(op, err)
		return nil, err
	}

	c, err := s.transition(ctx, op, params.ComplaintID, func(_ repository.Querier, c domain.Complaint) (domain.Transition, error) {
		return domain.ChangePriority(c, priority, params.ActorID, s.now().UTC()), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint priority changed", "complaint_id", c.ID, "priority", c.Priority)
	return c, nil
}

// =============================================================================
// Resolve
// =============================================================================

func (s *complaintService) Resolve(ctx context.Context, params domain.ResolveParams) (*domain.Complaint, error) {
	const op = "complaint.resolve"

	materials := strings.TrimSpace(params.MaterialsUsed)
	if err := validateResolveParams(op, params, materials); err != nil {
		metrics.TransitionFailed(op, err)
		return nil, err
	}
	pos := domain.Coordinates{Latitude: *params.Latitude, Longitude: *params.Longitude}

	var proofRef string
	c, err := s.transition(ctx, op, params.ComplaintID, func(_ repository.Querier, c domain.Complaint) (domain.Transition, error) {
		if c.HasLocation() && c.Status != domain.ComplaintStatusReopened {
			site := domain.Coordinates{Latitude: *c.Latitude, Longitude: *c.Longitude}
			metrics.GeofenceDistance.Observe(domain.DistanceMeters(site, pos))
		}

		// Preconditions first so a rejected resolve never stores proof.
		if err := domain.CheckResolver(op, c, params.OfficerID); err != nil {
			return domain.Transition{}, err
		}
		if err := domain.CheckResolvable(op, c, pos, s.geofenceRadius); err != nil {
			return domain.Transition{}, err
		}

		if !params.Proof.IsEmpty() {
			ref, err := s.saveAttachment(ctx, op, params.Proof)
			if err != nil {
				return domain.Transition{}, err
			}
			proofRef = ref
		}

		return domain.ResolveComplaint(op, c, domain.ResolveInput{
			OfficerID: params.OfficerID,
			Materials: materials,
			Position:  pos,
			ProofURL:  proofRef,
		}, s.geofenceRadius, s.now().UTC())
	})
	if err != nil {
		if proofRef != "" {
			s.attachments.Remove(ctx, proofRef)
		}
		return nil, err
	}

	s.logger.Info("complaint resolved",
		"complaint_id", c.ID,
		"officer_id", c.AssignedTo,
		"has_proof", proofRef != "",
	)
	return c, nil
}

func validateResolveParams(op string, p domain.ResolveParams, materials string) error {
	if materials == "" {
		return domain.Invalid(op, "Materials used is required")
	}
	if p.Latitude == nil || p.Longitude == nil {
		return domain.Invalid(op, "Current latitude and longitude are required")
	}
	return validateCoordinates(op, *p.Latitude, *p.Longitude)
}

// =============================================================================
// SubmitFeedback
// =============================================================================

func (s *complaintService) SubmitFeedback(ctx context.Context, params domain.SubmitFeedbackParams) (*domain.Complaint, error) {
	const op = "complaint.submit_feedback"

	if params.Rating < domain.MinRating || params.Rating > domain.MaxRating {
		err := domain.Errorf(domain.EINVALID, op, "Rating must be between %d and %d", domain.MinRating, domain.MaxRating)
		metrics.TransitionFailed(op, err)
		return nil, err
	}
	feedback := strings.TrimSpace(params.Feedback)

	c, err := s.transition(ctx, op, params.ComplaintID, func(_ repository.Querier, c domain.Complaint) (domain.Transition, error) {
		return domain.RecordFeedback(c, params.Rating, feedback, s.now().UTC()), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feedback submitted", "complaint_id", c.ID, "rating", params.Rating)
	return c, nil
}

// =============================================================================
// Queries
// =============================================================================

func (s *complaintService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Complaint, error) {
	const op = "complaint.get"

	row, err := s.store.GetComplaintByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "Complaint", id.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch complaint")
	}

	c := rowToComplaint(row)
	return &c, nil
}

func (s *complaintService) List(ctx context.Context, params domain.ListComplaintsParams) ([]domain.Complaint, error) {
	const op = "complaint.list"

	statuses := make([]string, 0, len(params.Statuses))
	for _, st := range params.Statuses {
		if !st.IsValid() {
			return nil, domain.Errorf(domain.EINVALID, op, "Unrecognized status %q", st)
		}
		statuses = append(statuses, st.String())
	}

	rows, err := s.store.ListComplaints(ctx, repository.ListComplaintsParams{
		ReporterID: domain.ToNullUUID(params.ReporterID),
		AssigneeID: domain.ToNullUUID(params.AssigneeID),
		Statuses:   statuses,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list complaints")
	}

	complaints := make([]domain.Complaint, len(rows))
	for i, row := range rows {
		complaints[i] = rowToComplaint(row.Complaint)
		complaints[i].CategoryName = row.CategoryName
		complaints[i].ReporterName = row.ReporterName
		complaints[i].AssignedToName = domain.NullStringValue(row.AssigneeName)
	}
	return complaints, nil
}

func (s *complaintService) History(ctx context.Context, id uuid.UUID) ([]domain.HistoryEntry, error) {
	return s.audit.History(ctx, id)
}

// =============================================================================
// Transaction plumbing
// =============================================================================

// decideFunc computes a transition from the locked complaint.
type decideFunc func(q repository.Querier, c domain.Complaint) (domain.Transition, error)

// transition locks the complaint, applies decide and commits the new state
// together with its effects. Committed notifications are published after
// the transaction ends.
func (s *complaintService) transition(ctx context.Context, op string, id uuid.UUID, decide decideFunc) (*domain.Complaint, error) {
	var (
		updated domain.Complaint
		notes   []domain.Notification
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		row, err := q.GetComplaintByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFound(op, "Complaint", id.String())
			}
			return domain.Storage(err, op, "failed to lock complaint")
		}

		tr, err := decide(q, rowToComplaint(row))
		if err != nil {
			return err
		}

		saved, err := q.UpdateComplaintState(ctx, toUpdateParams(tr.Complaint))
		if err != nil {
			return domain.Storage(err, op, "failed to update complaint")
		}

		notes, err = s.applyEffects(ctx, q, tr.Effects)
		if err != nil {
			return err
		}
		updated = rowToComplaint(saved)
		return nil
	})
	if err != nil {
		err = txError(op, err)
		metrics.TransitionFailed(op, err)
		return nil, err
	}

	metrics.TransitionCommitted(op)
	s.notifier.Publish(ctx, notes)
	return &updated, nil
}

// applyEffects writes the effects of a transition in order: audit entry,
// officer metrics, notifications.
func (s *complaintService) applyEffects(ctx context.Context, q repository.Querier, effects domain.Effects) ([]domain.Notification, error) {
	if _, err := s.audit.Record(ctx, q, effects.Audit); err != nil {
		return nil, err
	}
	if err := s.officers.Apply(ctx, q, effects.Metrics); err != nil {
		return nil, err
	}
	return s.notifier.Deliver(ctx, q, effects.Notifications)
}

func (s *complaintService) saveAttachment(ctx context.Context, op string, a *domain.Attachment) (string, error) {
	ref, err := s.attachments.Save(ctx, a.Data, a.Filename)
	if err != nil {
		if domain.ErrorCode(err) == domain.EINTERNAL {
			return "", domain.Storage(err, op, "failed to store attachment")
		}
		return "", err
	}
	return ref, nil
}

// noAttachments stands in when no attachment backend is configured.
type noAttachments struct{}

func (noAttachments) Save(context.Context, []byte, string) (string, error) {
	return "", domain.Invalid("attachment.save", "Attachments are not accepted")
}

func (noAttachments) Remove(context.Context, string) {}

func (noAttachments) URL(_ context.Context, ref string) (string, error) {
	return "", domain.NotFound("attachment.url", "Attachment", ref)
}

// txError keeps domain errors and reports anything else, such as a failed
// commit, as a storage failure.
func txError(op string, err error) error {
	var de *domain.Error
	var ve *domain.ValidationError
	if errors.As(err, &de) || errors.As(err, &ve) {
		return err
	}
	return domain.Storage(err, op, "failed to commit transaction")
}

// =============================================================================
// Conversion
// =============================================================================

func rowToComplaint(row repository.Complaint) domain.Complaint {
	c := domain.Complaint{
		ID:                 row.ID,
		UserID:             row.UserID,
		CategoryID:         row.CategoryID,
		AssignedTo:         domain.NullUUIDValue(row.AssignedTo),
		Title:              row.Title,
		Description:        row.Description,
		ImageURL:           domain.NullStringValue(row.ImageUrl),
		Location:           row.Location,
		Latitude:           domain.NullFloatValue(row.Latitude),
		Longitude:          domain.NullFloatValue(row.Longitude),
		Status:             domain.ComplaintStatus(row.Status),
		Priority:           domain.ComplaintPriority(row.Priority),
		AdminComment:       domain.NullStringValue(row.AdminComment),
		MaterialsUsed:      domain.NullStringValue(row.MaterialsUsed),
		ResolutionProofURL: domain.NullStringValue(row.ResolutionProofUrl),
		ResolvedLatitude:   domain.NullFloatValue(row.ResolvedLatitude),
		ResolvedLongitude:  domain.NullFloatValue(row.ResolvedLongitude),
		CitizenFeedback:    domain.NullStringValue(row.CitizenFeedback),
		AssignedAt:         domain.NullTimeValue(row.AssignedAt),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.CitizenRating.Valid {
		r := row.CitizenRating.Int32
		c.CitizenRating = &r
	}
	return c
}

func toUpdateParams(c domain.Complaint) repository.UpdateComplaintStateParams {
	p := repository.UpdateComplaintStateParams{
		ID:                 c.ID,
		AssignedTo:         domain.ToNullUUID(c.AssignedTo),
		Status:             c.Status.String(),
		Priority:           c.Priority.String(),
		AdminComment:       domain.ToNullString(c.AdminComment),
		MaterialsUsed:      domain.ToNullString(c.MaterialsUsed),
		ResolutionProofUrl: domain.ToNullString(c.ResolutionProofURL),
		ResolvedLatitude:   domain.ToNullFloat(c.ResolvedLatitude),
		ResolvedLongitude:  domain.ToNullFloat(c.ResolvedLongitude),
		CitizenFeedback:    domain.ToNullString(c.CitizenFeedback),
		AssignedAt:         domain.ToNullTime(c.AssignedAt),
		UpdatedAt:          c.UpdatedAt,
	}
	if c.CitizenRating != nil {
		p.CitizenRating = sql.NullInt32{Int32: *c.CitizenRating, Valid: true}
	}
	return p
}
