package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found", NotFound("complaint.reject", "complaint", "42"), ENOTFOUND},
		{"locked", Locked("complaint.resolve", "blocked"), ELOCKED},
		{"geofence", Geofence("complaint.resolve", 250, 200), EGEOFENCE},
		{"storage", Storage(errors.New("disk full"), "complaint.resolve", "save proof"), ESTORAGE},
		{"validation", NewValidationError("complaint.file", "title", "Title is required"), EINVALID},
		{"wrapped", fmt.Errorf("outer: %w", Locked("op", "msg")), ELOCKED},
		{"plain", errors.New("boom"), EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestGeofence_CarriesDistance(t *testing.T) {
	err := fmt.Errorf("resolve: %w", Geofence("complaint.resolve", 231, 200))

	var ge *GeofenceError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, 231, ge.DistanceMeters)
	assert.Equal(t, 200, ge.LimitMeters)
	assert.Contains(t, ErrorMessage(err), "231m")
}

func TestErrorMessage_HidesServerFaults(t *testing.T) {
	generic := "An internal error occurred. Please try again later."

	assert.Equal(t, generic, ErrorMessage(Internal(errors.New("pq: deadlock"), "op", "failed")))
	assert.Equal(t, generic, ErrorMessage(Storage(errors.New("disk full"), "op", "failed")))
	assert.Equal(t, "Complaint with ID \"7\" not found", ErrorMessage(NotFound("op", "Complaint", "7")))
}
