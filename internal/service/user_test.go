package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/email"
	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/civicpulse/civicpulse/internal/repository/repotest"
	"github.com/civicpulse/civicpulse/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture() (*repotest.MemStore, UserService) {
	store := repotest.NewMemStore()
	return store, NewUserService(store, "https://civicpulse.example/", testLogger())
}

// =============================================================================
// Authentication
// =============================================================================

// Unknown emails and wrong passwords must be indistinguishable to callers.
func TestAuthenticate_GenericErrorMessages(t *testing.T) {
	store, svc := newUserFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateUserParams{
		Name:     "Asha",
		Email:    "Asha@Example.com",
		Password: "streetlight42",
		Role:     domain.RoleCitizen,
		Enabled:  true,
	})
	require.NoError(t, err)
	require.Len(t, store.Jobs(), 0)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "streetlight42"},
		{"wrong password", "asha@example.com", "streetlight43"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tt.email, tt.password)
			assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
			assert.Equal(t, "Invalid email or password", domain.ErrorMessage(err))
		})
	}

	t.Run("email is case insensitive", func(t *testing.T) {
		user, err := svc.Authenticate(ctx, " ASHA@example.com ", "streetlight42")
		require.NoError(t, err)
		assert.Empty(t, user.PasswordHash)
	})
}

func TestAuthenticate_PendingOfficerForbidden(t *testing.T) {
	_, svc := newUserFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateUserParams{
		Name:     "Ravi",
		Email:    "ravi@example.com",
		Password: "drainage77",
		Role:     domain.RoleOfficer,
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "ravi@example.com", "drainage77")
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
}

func TestCreate_DuplicateEmail(t *testing.T) {
	store, svc := newUserFixture()
	store.AddUser(repository.User{Name: "Asha", Email: "asha@example.com", Role: "CITIZEN"})

	_, err := svc.Create(context.Background(), domain.CreateUserParams{
		Name:     "Asha Two",
		Email:    "asha@example.com",
		Password: "streetlight42",
		Role:     domain.RoleCitizen,
	})

	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

// =============================================================================
// Officer approval
// =============================================================================

func TestApproveOfficer(t *testing.T) {
	store, svc := newUserFixture()
	ctx := context.Background()
	officer := store.AddUser(repository.User{Name: "Ravi", Email: "ravi@example.com", Role: "OFFICER"})

	approved, err := svc.ApproveOfficer(ctx, officer.ID)
	require.NoError(t, err)
	assert.True(t, approved.Enabled)
	assert.True(t, store.User(officer.ID).Enabled)

	jobs := store.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, worker.JobTypeSendEmail, jobs[0].JobType)

	var payload worker.SendEmailPayload
	require.NoError(t, json.Unmarshal(jobs[0].Payload, &payload))
	assert.Equal(t, "ravi@example.com", payload.To)
	assert.Equal(t, "ACCOUNT APPROVED", payload.Subject)
	assert.Equal(t, email.TemplateOfficerApproved, payload.Template)
	assert.Equal(t, "https://civicpulse.example/login?email=ravi%40example.com", payload.Data["LoginURL"])

	t.Run("second approval conflicts without mail", func(t *testing.T) {
		_, err := svc.ApproveOfficer(ctx, officer.ID)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
		assert.Equal(t, "Officer is already approved!", domain.ErrorMessage(err))
		assert.Len(t, store.Jobs(), 1)
	})
}

func TestApproveOfficer_RejectsNonOfficers(t *testing.T) {
	store, svc := newUserFixture()
	citizen := store.AddUser(repository.User{Name: "Asha", Email: "asha@example.com", Role: "CITIZEN"})

	_, err := svc.ApproveOfficer(context.Background(), citizen.ID)

	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.False(t, store.User(citizen.ID).Enabled)
}

func TestApproveOfficer_EnqueueFailureRollsBack(t *testing.T) {
	store, svc := newUserFixture()
	officer := store.AddUser(repository.User{Name: "Ravi", Email: "ravi@example.com", Role: "OFFICER"})
	store.FailOn("EnqueueJob", assert.AnError)

	_, err := svc.ApproveOfficer(context.Background(), officer.ID)

	require.Error(t, err)
	assert.False(t, store.User(officer.ID).Enabled)
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	_, svc := newUserFixture()
	ctx := context.Background()

	first, created, err := svc.SeedAdmin(ctx, "", "admin@civicpulse.local", "municipal2024")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, first.Role)
	assert.Equal(t, "Administrator", first.Name)

	second, created, err := svc.SeedAdmin(ctx, "Admin", "ADMIN@civicpulse.local", "municipal2024")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}
