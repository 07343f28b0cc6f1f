// Package handler contains HTTP handlers for the CivicPulse API.
//
// This file implements user administration: directory listings and officer
// approval.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/service"
)

// UserHandler handles user administration requests.
type UserHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// RegisterRoutes registers user routes with the provided middleware.
func (h *UserHandler) RegisterRoutes(
	mux *http.ServeMux,
	requireUser func(http.Handler) http.Handler,
	allow RoleGate,
) {
	admin := func(fn http.HandlerFunc) http.Handler {
		return requireUser(allow(domain.RoleAdmin)(fn))
	}

	mux.Handle("GET /api/users/officers", admin(h.listRole(domain.RoleOfficer)))
	mux.Handle("GET /api/users/citizens", admin(h.listRole(domain.RoleCitizen)))
	mux.Handle("GET /api/admin/pending-officers", admin(h.PendingOfficers))
	mux.Handle("PUT /api/admin/approve/{id}", admin(h.Approve))
}

// listRole lists every user holding role.
func (h *UserHandler) listRole(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.users.FindByRole(r.Context(), role)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponses(users))
	}
}

// PendingOfficers lists officers awaiting approval.
func (h *UserHandler) PendingOfficers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListPendingOfficers(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponses(users))
}

// Approve enables an officer. A repeated approval returns 409.
func (h *UserHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.ApproveOfficer(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}
