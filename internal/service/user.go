// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"unicode"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/email"
	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/civicpulse/civicpulse/internal/worker"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Not configurable at runtime so it cannot be weakened by accident.
	BcryptCost = 12

	// MinPasswordLength is the minimum password length (NIST SP 800-63B).
	MinPasswordLength = 8

	// MaxPasswordLength is the bcrypt input limit.
	MaxPasswordLength = 72

	// pgUniqueViolation is the PostgreSQL error code for unique_violation.
	pgUniqueViolation = "23505"
)

// commonPasswords are rejected even when they satisfy the other rules.
var commonPasswords = map[string]bool{
	"password1":   true,
	"password123": true,
	"qwerty123":   true,
	"letmein1":    true,
	"welcome1":    true,
	"admin123":    true,
	"iloveyou1":   true,
	"12345678a":   true,
}

// =============================================================================
// Interface Definition
// =============================================================================

// UserService is the user directory used by the lifecycle engine and the
// administration endpoints.
type UserService interface {
	// Create adds a user with a hashed password.
	// Returns domain.ECONFLICT if the email is taken, domain.EINVALID for
	// validation errors.
	Create(ctx context.Context, params domain.CreateUserParams) (*domain.User, error)

	// Authenticate checks credentials. Returns domain.EUNAUTHORIZED for bad
	// credentials and domain.EFORBIDDEN for officers awaiting approval.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// FindByID returns domain.ENOTFOUND if the user does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// FindByRole lists every user holding role.
	FindByRole(ctx context.Context, role domain.Role) ([]domain.User, error)

	// FindEnabledOfficers lists officers that may receive work.
	FindEnabledOfficers(ctx context.Context) ([]domain.User, error)

	// ListPendingOfficers lists officers awaiting approval.
	ListPendingOfficers(ctx context.Context) ([]domain.User, error)

	// ApproveOfficer enables an officer and queues the approval mail.
	// Returns domain.ECONFLICT if the officer is already enabled, so a
	// repeated approval never sends a second mail.
	ApproveOfficer(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// SeedAdmin creates the administrator account unless the email exists.
	// The boolean reports whether a user was created.
	SeedAdmin(ctx context.Context, name, email, password string) (*domain.User, bool, error)
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	store   repository.Store
	baseURL string
	logger  *slog.Logger
}

// NewUserService creates a UserService. baseURL is the front-end origin used
// to build the login link in approval mail.
func NewUserService(store repository.Store, baseURL string, logger *slog.Logger) UserService {
	return &userService{
		store:   store,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// Create adds a user with a hashed password.
func (s *userService) Create(ctx context.Context, params domain.CreateUserParams) (*domain.User, error) {
	const op = "user.create"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)

	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}
	if params.Name == "" {
		return nil, domain.Invalid(op, "Name is required")
	}
	if !params.Role.IsValid() {
		return nil, domain.Errorf(domain.EINVALID, op, "Unrecognized role %q", params.Role)
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	row, err := s.store.CreateUser(ctx, repository.CreateUserParams{
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: string(hash),
		PhoneNumber:  domain.ToNullString(strings.TrimSpace(params.Phone)),
		Role:         params.Role.String(),
		Department:   domain.ToNullString(strings.TrimSpace(params.Department)),
		WardNumber:   domain.ToNullString(strings.TrimSpace(params.WardNumber)),
		Enabled:      params.Enabled,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, "Email already registered")
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	user := rowToUser(row)
	user.PasswordHash = ""

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role, "enabled", user.Enabled)
	return &user, nil
}

// Authenticate checks credentials.
func (s *userService) Authenticate(ctx context.Context, emailAddr, password string) (*domain.User, error) {
	const op = "user.authenticate"

	row, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Hash anyway so unknown emails take as long as wrong passwords.
			_, _ = bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}
	if !row.Enabled {
		return nil, domain.Forbidden(op, "Account is awaiting administrator approval")
	}

	user := rowToUser(row)
	user.PasswordHash = ""
	return &user, nil
}

// FindByID returns one user.
func (s *userService) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.find_by_id"

	row, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to fetch user")
	}

	user := rowToUser(row)
	user.PasswordHash = ""
	return &user, nil
}

// FindByRole lists every user holding role.
func (s *userService) FindByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	const op = "user.find_by_role"

	if !role.IsValid() {
		return nil, domain.Errorf(domain.EINVALID, op, "Unrecognized role %q", role)
	}
	rows, err := s.store.ListUsersByRole(ctx, role.String())
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list users")
	}
	return rowsToUsers(rows), nil
}

// FindEnabledOfficers lists officers that may receive work.
func (s *userService) FindEnabledOfficers(ctx context.Context) ([]domain.User, error) {
	const op = "user.find_enabled_officers"

	rows, err := s.store.ListEnabledUsersByRole(ctx, domain.RoleOfficer.String())
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list officers")
	}
	return rowsToUsers(rows), nil
}

// ListPendingOfficers lists officers awaiting approval.
func (s *userService) ListPendingOfficers(ctx context.Context) ([]domain.User, error) {
	const op = "user.list_pending_officers"

	rows, err := s.store.ListPendingOfficers(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list pending officers")
	}
	return rowsToUsers(rows), nil
}

// ApproveOfficer enables an officer and queues the approval mail in the same
// transaction. The enabled flag is re-read under a row lock, so two
// concurrent approvals cannot both pass the check.
func (s *userService) ApproveOfficer(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.approve_officer"

	var approved domain.User
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		row, err := q.GetUserByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFound(op, "User", id.String())
			}
			return domain.Internal(err, op, "Failed to fetch user")
		}
		if domain.Role(row.Role) != domain.RoleOfficer {
			return domain.Invalid(op, "Only officer accounts require approval")
		}
		if row.Enabled {
			return domain.Conflict(op, "Officer is already approved!")
		}

		if err := q.EnableUser(ctx, id); err != nil {
			return domain.Internal(err, op, "Failed to enable officer")
		}

		if _, err := worker.Enqueue(ctx, q, worker.SendEmailPayload{
			To:       row.Email,
			Subject:  "ACCOUNT APPROVED",
			Template: email.TemplateOfficerApproved,
			Data: map[string]string{
				"Name":     row.Name,
				"LoginURL": s.baseURL + "/login?email=" + url.QueryEscape(row.Email),
			},
		}); err != nil {
			return domain.Internal(err, op, "Failed to queue approval email")
		}

		row.Enabled = true
		approved = rowToUser(row)
		approved.PasswordHash = ""
		return nil
	})
	if err != nil {
		return nil, txError(op, err)
	}

	s.logger.Info("officer approved", "user_id", approved.ID)
	return &approved, nil
}

// SeedAdmin creates the administrator account unless the email exists.
func (s *userService) SeedAdmin(ctx context.Context, name, emailAddr, password string) (*domain.User, bool, error) {
	const op = "user.seed_admin"

	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	existing, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err == nil {
		user := rowToUser(existing)
		user.PasswordHash = ""
		return &user, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, domain.Internal(err, op, "Failed to look up administrator")
	}

	if name == "" {
		name = "Administrator"
	}
	user, err := s.Create(ctx, domain.CreateUserParams{
		Name:     name,
		Email:    emailAddr,
		Password: password,
		Role:     domain.RoleAdmin,
		Enabled:  true,
	})
	if err != nil {
		// Lost a race with another seeder.
		if domain.IsCode(err, domain.ECONFLICT) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}

// =============================================================================
// Helpers
// =============================================================================

func rowToUser(u repository.User) domain.User {
	return domain.User{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		Phone:           domain.NullStringValue(u.PhoneNumber),
		Role:            domain.Role(u.Role),
		Department:      domain.NullStringValue(u.Department),
		WardNumber:      domain.NullStringValue(u.WardNumber),
		Enabled:         u.Enabled,
		TicketsResolved: u.TicketsResolved,
		TicketsReopened: u.TicketsReopened,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func rowsToUsers(rows []repository.User) []domain.User {
	users := make([]domain.User, len(rows))
	for i, row := range rows {
		users[i] = rowToUser(row)
		users[i].PasswordHash = ""
	}
	return users
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// validateEmail checks basic address shape and the RFC 5321 length limit.
func validateEmail(addr string) error {
	if addr == "" {
		return domain.Invalid("", "Email is required")
	}
	if len(addr) > 254 {
		return domain.Invalid("", "Email must be 254 characters or less")
	}
	if strings.Count(addr, "@") != 1 {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}
	at := strings.IndexByte(addr, '@')
	if at == 0 {
		return domain.Invalid("", "Email cannot start with @")
	}
	if at == len(addr)-1 {
		return domain.Invalid("", "Email cannot end with @")
	}
	if !strings.Contains(addr[at+1:], ".") {
		return domain.Invalid("", "Email domain must contain a dot")
	}
	if strings.Contains(addr, "..") {
		return domain.Invalid("", "Email cannot contain consecutive dots")
	}
	return nil
}

// validatePassword enforces length, a letter, a digit, and rejects common
// passwords.
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.Invalid("", "Password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.Invalid("", "Password must be 72 characters or less")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return domain.Invalid("", "Password must contain at least one letter")
	}
	if !hasDigit {
		return domain.Invalid("", "Password must contain at least one number")
	}
	if commonPasswords[strings.ToLower(password)] {
		return domain.Invalid("", "Password is too common")
	}
	return nil
}
