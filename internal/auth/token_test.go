package auth

import (
	"testing"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *domain.User {
	return &domain.User{ID: uuid.New(), Name: "Ravi", Email: "ravi@example.com", Role: domain.RoleOfficer}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	user := testUser()

	token, expires, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	p, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.UserID)
	assert.Equal(t, domain.RoleOfficer, p.Role)
	assert.Equal(t, "ravi@example.com", p.Email)
	assert.Equal(t, user.ID, *p.ActorID())
}

func TestTokenIssuer_Verify_Rejects(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("other-secret", time.Hour)
	require.NoError(t, err)

	foreign, _, err := other.Issue(testUser())
	require.NoError(t, err)

	expiredIssuer, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredIssuer.Issue(testUser())
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}
