// Package handler contains HTTP handlers for the CivicPulse API.
//
// This file implements the account endpoints: one-time codes, signup,
// signin and password reset.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/civicpulse/civicpulse/internal/auth"
	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/service"
)

// AccountFlows runs the OTP-gated account flows.
type AccountFlows interface {
	SendCode(ctx context.Context, email string, purpose domain.CodePurpose) error
	VerifyCode(ctx context.Context, email, code string) error
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)
	ResetPassword(ctx context.Context, email, password string) error
}

// LoginLimiter tracks failed signins per client.
type LoginLimiter interface {
	RecordFailedLogin(r *http.Request)
	ResetLogin(r *http.Request)
}

// AuthRoutes holds the per-route middleware for account endpoints.
type AuthRoutes struct {
	RequireUser func(http.Handler) http.Handler
	LimitLogin  func(http.Handler) http.Handler
	LimitSignup func(http.Handler) http.Handler
	LimitCodes  func(http.Handler) http.Handler
}

// =============================================================================
// Handler Configuration
// =============================================================================

// AuthHandler handles account HTTP requests.
type AuthHandler struct {
	accounts AccountFlows
	users    service.UserService
	tokens   *auth.TokenIssuer
	limiter  LoginLimiter
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. limiter may be nil.
func NewAuthHandler(
	accounts AccountFlows,
	users service.UserService,
	tokens *auth.TokenIssuer,
	limiter LoginLimiter,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		users:    users,
		tokens:   tokens,
		limiter:  limiter,
		logger:   logger,
	}
}

// RegisterRoutes registers all auth routes on the provided ServeMux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, routes AuthRoutes) {
	wrap := func(mw func(http.Handler) http.Handler, fn http.HandlerFunc) http.Handler {
		if mw == nil {
			return fn
		}
		return mw(fn)
	}

	mux.Handle("POST /api/auth/send-otp", wrap(routes.LimitCodes, h.SendOTP))
	mux.Handle("POST /api/auth/verify-otp", wrap(routes.LimitCodes, h.VerifyOTP))
	mux.Handle("POST /api/auth/signup", wrap(routes.LimitSignup, h.Signup))
	mux.Handle("POST /api/auth/signin", wrap(routes.LimitLogin, h.Signin))
	mux.Handle("POST /api/auth/reset-password", wrap(routes.LimitCodes, h.ResetPassword))
	mux.Handle("GET /api/auth/me", wrap(routes.RequireUser, h.Me))
}

// =============================================================================
// POST /api/auth/send-otp
// =============================================================================

type sendOTPRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// SendOTP issues a one-time code for signup or password reset.
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.accounts.SendCode(r.Context(), req.Email, domain.CodePurpose(req.Type)); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "OTP sent successfully")
}

// =============================================================================
// POST /api/auth/verify-otp
// =============================================================================

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTP spends a code and marks the email verified.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.accounts.VerifyCode(r.Context(), req.Email, req.OTP); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "OTP Verified Successfully")
}

// =============================================================================
// POST /api/auth/signup
// =============================================================================

type signupRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	Department string `json:"department"`
	WardNumber string `json:"ward_number"`
}

// Signup registers a citizen or officer with a verified email.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), domain.RegisterParams{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		Role:       req.Role,
		Department: req.Department,
		WardNumber: req.WardNumber,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

// =============================================================================
// POST /api/auth/signin
// =============================================================================

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// Signin exchanges credentials for a bearer token.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if domain.IsCode(err, domain.EUNAUTHORIZED) && h.limiter != nil {
			h.limiter.RecordFailedLogin(r)
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}
	if h.limiter != nil {
		h.limiter.ResetLogin(r)
	}

	h.logger.Info("user signed in", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, signinResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toUserResponse(*user),
	})
}

// =============================================================================
// POST /api/auth/reset-password
// =============================================================================

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

// ResetPassword sets a new password for a verified email.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successfully.")
}

// =============================================================================
// GET /api/auth/me
// =============================================================================

// Me returns the caller's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.FindByID(r.Context(), p.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

