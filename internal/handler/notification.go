// Package handler contains HTTP handlers for the CivicPulse API.
//
// This file implements the notification inbox and its live stream.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/civicpulse/civicpulse/internal/auth"
	"github.com/civicpulse/civicpulse/internal/realtime"
	"github.com/civicpulse/civicpulse/internal/service"
)

// NotificationHandler handles inbox HTTP requests.
type NotificationHandler struct {
	notifier *service.Notifier
	broker   realtime.Broker
	tokens   *auth.TokenIssuer
	logger   *slog.Logger

	// streamCtx ends open streams on shutdown.
	streamCtx context.Context
}

// NewNotificationHandler creates a new NotificationHandler. broker may be nil,
// which disables the live stream. Streams end when ctx is cancelled.
func NewNotificationHandler(
	ctx context.Context,
	notifier *service.Notifier,
	broker realtime.Broker,
	tokens *auth.TokenIssuer,
	logger *slog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notifier:  notifier,
		broker:    broker,
		tokens:    tokens,
		logger:    logger,
		streamCtx: ctx,
	}
}

// RegisterRoutes registers inbox routes. The stream authenticates itself
// because browsers cannot set headers on websocket upgrades.
func (h *NotificationHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/notifications", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/notifications/unread-count", requireUser(http.HandlerFunc(h.UnreadCount)))
	mux.Handle("PUT /api/notifications/{id}/read", requireUser(http.HandlerFunc(h.MarkRead)))
	mux.Handle("PUT /api/notifications/read-all", requireUser(http.HandlerFunc(h.MarkAllRead)))
	mux.HandleFunc("GET /api/notifications/stream", h.Stream)
}

// List returns the caller's inbox, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	notes, err := h.notifier.List(r.Context(), p.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponses(notes))
}

type unreadCountResponse struct {
	Count int64 `json:"count"`
}

// UnreadCount returns how many inbox entries are unread.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	n, err := h.notifier.UnreadCount(r.Context(), p.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, unreadCountResponse{Count: n})
}

// MarkRead marks one of the caller's notifications read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
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

	if err := h.notifier.MarkRead(r.Context(), p.UserID, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type markAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// MarkAllRead marks the caller's whole inbox read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	n, err := h.notifier.MarkAllRead(r.Context(), p.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, markAllReadResponse{Updated: n})
}

// =============================================================================
// GET /api/notifications/stream - Live Push
// =============================================================================

// Stream upgrades to a websocket that receives the caller's notifications as
// they commit. The token comes from the Authorization header or ?token=.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Live notifications are disabled")
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	p, err := h.tokens.Verify(token)
	if err != nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	sub, err := h.broker.Subscribe(r.Context(), p.UserID)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	conn, err := realtime.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		sub.Close()
		h.logger.Debug("websocket upgrade failed", "user_id", p.UserID, "error", err)
		return
	}

	h.logger.Debug("notification stream opened", "user_id", p.UserID)
	realtime.Serve(h.streamCtx, conn, sub, h.logger)
	h.logger.Debug("notification stream closed", "user_id", p.UserID)
}
