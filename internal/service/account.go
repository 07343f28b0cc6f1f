package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// CodeIssuer issues and checks one-time email codes.
type CodeIssuer interface {
	Generate(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
	IsVerified(ctx context.Context, email string) (bool, error)
	Clear(ctx context.Context, email string) error
}

// AccountService runs the self-service account flows. Signup and password
// reset both require an email verified through a one-time code, and each
// verification is spent by the flow that uses it.
type AccountService struct {
	users  UserService
	store  repository.Store
	codes  CodeIssuer
	logger *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(users UserService, store repository.Store, codes CodeIssuer, logger *slog.Logger) *AccountService {
	return &AccountService{users: users, store: store, codes: codes, logger: logger}
}

// SendCode issues a code for email. Signup codes are refused for registered
// emails and reset codes for unknown ones.
func (s *AccountService) SendCode(ctx context.Context, emailAddr string, purpose domain.CodePurpose) error {
	const op = "account.send_code"

	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if emailAddr == "" {
		return domain.Invalid(op, "Email and Type are required")
	}
	if !purpose.IsValid() {
		return domain.Invalid(op, "Invalid OTP type.")
	}

	exists, err := s.emailExists(ctx, emailAddr)
	if err != nil {
		return domain.Internal(err, op, "Failed to look up email")
	}
	switch purpose {
	case domain.CodePurposeSignup:
		if exists {
			return domain.Conflict(op, "Email already exists. Please login.")
		}
	case domain.CodePurposeReset:
		if !exists {
			return domain.NotFound(op, "Email", emailAddr)
		}
	}

	return s.codes.Generate(ctx, emailAddr)
}

// VerifyCode spends a code and marks its email verified.
func (s *AccountService) VerifyCode(ctx context.Context, emailAddr, code string) error {
	return s.codes.Verify(ctx, emailAddr, strings.TrimSpace(code))
}

// Register creates a citizen or officer account. Citizens are enabled
// immediately; officers wait for administrator approval.
func (s *AccountService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "account.register"

	emailAddr := strings.ToLower(strings.TrimSpace(params.Email))
	if err := s.requireVerified(ctx, op, emailAddr); err != nil {
		return nil, err
	}

	role, ok := domain.ParseRole(params.Role)
	if !ok {
		return nil, domain.Errorf(domain.EINVALID, op, "Unrecognized role %q", params.Role)
	}

	create := domain.CreateUserParams{
		Name:     params.Name,
		Email:    emailAddr,
		Password: params.Password,
		Phone:    params.Phone,
		Role:     role,
	}
	switch role {
	case domain.RoleCitizen:
		create.WardNumber = params.WardNumber
		create.Enabled = true
	case domain.RoleOfficer:
		create.Department = params.Department
		create.Enabled = false
	case domain.RoleAdmin:
		return nil, domain.Forbidden(op, "Administrator accounts cannot be self-registered")
	}

	user, err := s.users.Create(ctx, create)
	if err != nil {
		return nil, err
	}

	if err := s.codes.Clear(ctx, emailAddr); err != nil {
		s.logger.Warn("failed to clear email verification", "email", emailAddr, "error", err)
	}

	s.logger.Info("account registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// ResetPassword sets a new password for a verified email.
func (s *AccountService) ResetPassword(ctx context.Context, emailAddr, password string) error {
	const op = "account.reset_password"

	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if err := s.requireVerified(ctx, op, emailAddr); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash password")
	}

	n, err := s.store.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
		Email:        emailAddr,
		PasswordHash: string(hash),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}
	if n == 0 {
		return domain.NotFound(op, "User", emailAddr)
	}

	if err := s.codes.Clear(ctx, emailAddr); err != nil {
		s.logger.Warn("failed to clear email verification", "email", emailAddr, "error", err)
	}

	s.logger.Info("password reset", "email", emailAddr)
	return nil
}

func (s *AccountService) requireVerified(ctx context.Context, op, emailAddr string) error {
	verified, err := s.codes.IsVerified(ctx, emailAddr)
	if err != nil {
		return err
	}
	if !verified {
		return domain.Invalid(op, "Email not verified. Please verify OTP first.")
	}
	return nil
}

func (s *AccountService) emailExists(ctx context.Context, emailAddr string) (bool, error) {
	_, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, err
}
