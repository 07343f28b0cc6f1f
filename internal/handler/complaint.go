// Package handler contains HTTP handlers for the CivicPulse API.
//
// This file exposes the complaint lifecycle: filing, triage, resolution and
// feedback, plus listings and the audit trail.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/civicpulse/civicpulse/internal/auth"
	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/service"
	"github.com/google/uuid"
)

// RoleGate wraps a handler so only the listed roles reach it.
type RoleGate func(roles ...domain.Role) func(http.Handler) http.Handler

// =============================================================================
// Handler Configuration
// =============================================================================

// ComplaintHandler handles complaint HTTP requests.
type ComplaintHandler struct {
	complaints  service.ComplaintService
	categories  service.CategoryService
	attachments service.AttachmentStore
	logger      *slog.Logger
}

// NewComplaintHandler creates a new ComplaintHandler.
func NewComplaintHandler(
	complaints service.ComplaintService,
	categories service.CategoryService,
	attachments service.AttachmentStore,
	logger *slog.Logger,
) *ComplaintHandler {
	return &ComplaintHandler{
		complaints:  complaints,
		categories:  categories,
		attachments: attachments,
		logger:      logger,
	}
}

// RegisterRoutes registers complaint routes. requireUser authenticates;
// allow restricts by role.
func (h *ComplaintHandler) RegisterRoutes(
	mux *http.ServeMux,
	requireUser func(http.Handler) http.Handler,
	allow RoleGate,
) {
	route := func(pattern string, fn http.HandlerFunc, roles ...domain.Role) {
		mux.Handle(pattern, requireUser(allow(roles...)(fn)))
	}

	route("GET /api/complaints/categories", h.Categories, domain.RoleCitizen, domain.RoleOfficer, domain.RoleAdmin)
	route("POST /api/complaints", h.File, domain.RoleCitizen)
	route("GET /api/complaints/mine", h.ListMine, domain.RoleCitizen)
	route("GET /api/complaints/assigned", h.ListAssigned, domain.RoleOfficer)
	route("GET /api/complaints", h.ListAll, domain.RoleAdmin, domain.RoleOfficer)
	route("GET /api/complaints/{id}", h.Get, domain.RoleCitizen, domain.RoleOfficer, domain.RoleAdmin)
	route("GET /api/complaints/{id}/history", h.History, domain.RoleCitizen, domain.RoleOfficer, domain.RoleAdmin)

	route("PUT /api/complaints/assign-bulk", h.BulkAssign, domain.RoleAdmin)
	route("PUT /api/complaints/{id}/reject", h.Reject, domain.RoleAdmin)
	route("PUT /api/complaints/{id}/comment", h.Comment, domain.RoleAdmin)
	route("PUT /api/complaints/{id}/priority", h.Priority, domain.RoleAdmin)
	route("PUT /api/complaints/{id}/reopen", h.Reopen, domain.RoleCitizen, domain.RoleOfficer, domain.RoleAdmin)
	route("PUT /api/complaints/{id}/resolve", h.Resolve, domain.RoleOfficer)
	route("PUT /api/complaints/{id}/feedback", h.Feedback, domain.RoleCitizen)
}

// =============================================================================
// GET /api/complaints/categories - List Categories
// =============================================================================

type categoryResponse struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// Categories lists complaint categories.
func (h *ComplaintHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]categoryResponse, len(categories))
	for i, c := range categories {
		out[i] = categoryResponse{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// POST /api/complaints - File Complaint
// =============================================================================

// File creates a complaint from a multipart form with an optional photo.
func (h *ComplaintHandler) File(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := parseMultipart(w, r); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	categoryID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("category_id")), 10, 32)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Category is required"))
		return
	}
	lat, err := formFloat(r, "latitude")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	lng, err := formFloat(r, "longitude")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	image, err := formAttachment(r, "image")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	complaint, err := h.complaints.File(r.Context(), domain.FileComplaintParams{
		UserID:      p.UserID,
		CategoryID:  int32(categoryID),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Latitude:    lat,
		Longitude:   lng,
		Image:       image,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toComplaintResponse(r.Context(), h.attachments, *complaint))
}

// =============================================================================
// Listings
// =============================================================================

// ListMine lists complaints filed by the caller.
func (h *ComplaintHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.list(w, r, domain.ListComplaintsParams{ReporterID: &p.UserID})
}

// ListAssigned lists complaints assigned to the calling officer.
func (h *ComplaintHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.list(w, r, domain.ListComplaintsParams{AssigneeID: &p.UserID})
}

// ListAll lists every complaint.
func (h *ComplaintHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.ListComplaintsParams{})
}

func (h *ComplaintHandler) list(w http.ResponseWriter, r *http.Request, params domain.ListComplaintsParams) {
	statuses, err := parseStatuses(r.URL.Query().Get("status"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	params.Statuses = statuses

	complaints, err := h.complaints.List(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]ComplaintResponse, len(complaints))
	for i, c := range complaints {
		out[i] = toComplaintResponse(r.Context(), h.attachments, c)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// GET /api/complaints/{id} - Show Complaint
// =============================================================================

// Get returns one complaint. Citizens only see their own.
func (h *ComplaintHandler) Get(w http.ResponseWriter, r *http.Request) {
	complaint, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toComplaintResponse(r.Context(), h.attachments, *complaint))
}

// History returns the audit trail, newest first.
func (h *ComplaintHandler) History(w http.ResponseWriter, r *http.Request) {
	complaint, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	entries, err := h.complaints.History(r.Context(), complaint.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponses(entries))
}

// loadVisible fetches the {id} complaint and hides other citizens'
// complaints behind a 404.
func (h *ComplaintHandler) loadVisible(w http.ResponseWriter, r *http.Request) (*domain.Complaint, bool) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return nil, false
	}
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return nil, false
	}

	complaint, err := h.complaints.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return nil, false
	}
	if p.Role == domain.RoleCitizen && complaint.UserID != p.UserID {
		NotFoundResponse(w, r, h.logger)
		return nil, false
	}
	return complaint, true
}

// =============================================================================
// PUT /api/complaints/assign-bulk - Bulk Assign
// =============================================================================

type bulkAssignRequest struct {
	ComplaintIDs []uuid.UUID `json:"complaint_ids"`
	OfficerID    uuid.UUID   `json:"officer_id"`
}

type bulkAssignResponse struct {
	Assigned []uuid.UUID `json:"assigned"`
	Skipped  []uuid.UUID `json:"skipped"`
	Failed   []uuid.UUID `json:"failed"`
}

// BulkAssign assigns complaints to one officer.
func (h *ComplaintHandler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var req bulkAssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.complaints.BulkAssign(r.Context(), domain.BulkAssignParams{
		ComplaintIDs: req.ComplaintIDs,
		OfficerID:    req.OfficerID,
		ActorID:      p.ActorID(),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, bulkAssignResponse{
		Assigned: nonNil(result.Assigned),
		Skipped:  nonNil(result.Skipped),
		Failed:   nonNil(result.Failed),
	})
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

// =============================================================================
// Administrator actions
// =============================================================================

type commentRequest struct {
	Comment string `json:"comment"`
}

// Reject declines a complaint with a reason.
func (h *ComplaintHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	h.act(w, r, &req, func(p *auth.Principal, id uuid.UUID) (*domain.Complaint, error) {
		return h.complaints.Reject(r.Context(), domain.RejectParams{
			ComplaintID: id,
			Comment:     req.Comment,
			ActorID:     p.ActorID(),
		})
	})
}

// Comment replaces the administrator note.
func (h *ComplaintHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	h.act(w, r, &req, func(p *auth.Principal, id uuid.UUID) (*domain.Complaint, error) {
		return h.complaints.AddComment(r.Context(), domain.AddCommentParams{
			ComplaintID: id,
			Comment:     req.Comment,
			ActorID:     p.ActorID(),
		})
	})
}

type priorityRequest struct {
	Priority string `json:"priority"`
}

// Priority changes triage priority.
func (h *ComplaintHandler) Priority(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	h.act(w, r, &req, func(p *auth.Principal, id uuid.UUID) (*domain.Complaint, error) {
		return h.complaints.UpdatePriority(r.Context(), domain.UpdatePriorityParams{
			ComplaintID: id,
			Priority:    req.Priority,
			ActorID:     p.ActorID(),
		})
	})
}

// Reopen sends a complaint back for re-assignment. Citizens may only reopen
// their own complaints.
func (h *ComplaintHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, nil, func(p *auth.Principal, id uuid.UUID) (*domain.Complaint, error) {
		if p.Role == domain.RoleCitizen {
			if err := h.requireReporter(r, p, id); err != nil {
				return nil, err
			}
		}
		return h.complaints.Reopen(r.Context(), domain.ReopenParams{
			ComplaintID: id,
			ActorID:     p.ActorID(),
		})
	})
}

// =============================================================================
// PUT /api/complaints/{id}/resolve - Resolve On Site
// =============================================================================

// Resolve closes a complaint from a multipart form: materials, lat, lng and
// an optional proof photo. The service rejects officers other than the
// assignee while holding the complaint lock.
func (h *ComplaintHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := parseMultipart(w, r); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	lat, err := formFloat(r, "lat")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	lng, err := formFloat(r, "lng")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	proof, err := formAttachment(r, "proof")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	complaint, err := h.complaints.Resolve(r.Context(), domain.ResolveParams{
		ComplaintID:   id,
		OfficerID:     p.ActorID(),
		MaterialsUsed: r.FormValue("materials"),
		Latitude:      lat,
		Longitude:     lng,
		Proof:         proof,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toComplaintResponse(r.Context(), h.attachments, *complaint))
}

// =============================================================================
// PUT /api/complaints/{id}/feedback - Citizen Feedback
// =============================================================================

type feedbackRequest struct {
	Rating   int32  `json:"rating"`
	Feedback string `json:"feedback"`
}

// Feedback stores the reporter's rating.
func (h *ComplaintHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	h.act(w, r, &req, func(p *auth.Principal, id uuid.UUID) (*domain.Complaint, error) {
		if err := h.requireReporter(r, p, id); err != nil {
			return nil, err
		}
		return h.complaints.SubmitFeedback(r.Context(), domain.SubmitFeedbackParams{
			ComplaintID: id,
			Rating:      req.Rating,
			Feedback:    req.Feedback,
		})
	})
}

// =============================================================================
// Helpers
// =============================================================================

// act runs a JSON lifecycle action on the {id} complaint. body may be nil
// for actions without input.
func (h *ComplaintHandler) act(
	w http.ResponseWriter,
	r *http.Request,
	body any,
	do func(p *auth.Principal, id uuid.UUID) (*domain.Complaint, error),
) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if body != nil {
		if err := decodeJSON(w, r, body); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	complaint, err := do(p, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toComplaintResponse(r.Context(), h.attachments, *complaint))
}

// requireReporter returns ENOTFOUND unless the caller filed the complaint.
func (h *ComplaintHandler) requireReporter(r *http.Request, p *auth.Principal, id uuid.UUID) error {
	complaint, err := h.complaints.GetByID(r.Context(), id)
	if err != nil {
		return err
	}
	if complaint.UserID != p.UserID {
		return domain.NotFound("", "Complaint", id.String())
	}
	return nil
}
