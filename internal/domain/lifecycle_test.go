package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrFloat(f float64) *float64 { return &f }

func sampleComplaint() Complaint {
	return Complaint{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		CategoryID:  1,
		Title:       "Pothole on 5th Street",
		Description: "Deep pothole near the bus stop",
		Latitude:    ptrFloat(0),
		Longitude:   ptrFloat(0),
		Status:      ComplaintStatusPending,
		Priority:    PriorityMedium,
		CreatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFileComplaint(t *testing.T) {
	now := time.Now()
	reporter := uuid.New()
	id := uuid.New()

	tr := FileComplaint(id, FileComplaintParams{
		UserID:      reporter,
		CategoryID:  3,
		Title:       "Broken streetlight",
		Description: "Dark at night",
	}, "photo.jpg", now)

	assert.Equal(t, ComplaintStatusPending, tr.Complaint.Status)
	assert.Equal(t, PriorityMedium, tr.Complaint.Priority)
	assert.Equal(t, "photo.jpg", tr.Complaint.ImageURL)
	assert.Equal(t, now, tr.Complaint.CreatedAt)

	assert.Equal(t, ActionCreated, tr.Effects.Audit.Action)
	assert.Equal(t, reporter, *tr.Effects.Audit.ActorID)
	require.Len(t, tr.Effects.Notifications, 1)
	n := tr.Effects.Notifications[0]
	assert.True(t, n.IsBroadcast())
	assert.Equal(t, RoleAdmin, n.Role)
	assert.Equal(t, NotificationInfo, n.Type)
	assert.Equal(t, "New Complaint Filed: Broken streetlight", n.Message)
	assert.Empty(t, tr.Effects.Metrics)
}

func TestAssignComplaint(t *testing.T) {
	officerID := uuid.New()
	now := time.Now()

	tests := []struct {
		name         string
		officer      *User
		wantDetails  string
		wantNotified bool
	}{
		{"enabled officer", &User{ID: officerID, Name: "Ravi", Enabled: true}, "Assigned to Officer: Ravi", true},
		{"disabled officer", &User{ID: officerID, Name: "Ravi", Enabled: false}, "Assigned to Officer: Ravi", false},
		{"unknown officer", nil, "Assigned to Officer: " + officerID.String(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sampleComplaint()
			c.Status = ComplaintStatusReopened

			tr := AssignComplaint(c, officerID, tt.officer, nil, now)

			assert.Equal(t, ComplaintStatusInProgress, tr.Complaint.Status)
			require.NotNil(t, tr.Complaint.AssignedTo)
			assert.Equal(t, officerID, *tr.Complaint.AssignedTo)
			assert.Equal(t, now, *tr.Complaint.AssignedAt)
			assert.Equal(t, tt.wantDetails, tr.Effects.Audit.Details)
			assert.Nil(t, tr.Effects.Audit.ActorID)

			if tt.wantNotified {
				require.Len(t, tr.Effects.Notifications, 1)
				assert.Equal(t, officerID, *tr.Effects.Notifications[0].UserID)
				assert.Equal(t, "New Task Assigned: Pothole on 5th Street", tr.Effects.Notifications[0].Message)
			} else {
				assert.Empty(t, tr.Effects.Notifications)
			}
			// input untouched
			assert.Equal(t, ComplaintStatusReopened, c.Status)
			assert.Nil(t, c.AssignedTo)
		})
	}
}

func TestRejectComplaint_ClearsAssignee(t *testing.T) {
	c := sampleComplaint()
	officer := uuid.New()
	c.AssignedTo = &officer
	c.Status = ComplaintStatusInProgress

	tr := RejectComplaint(c, "Duplicate report", nil, time.Now())

	assert.Equal(t, ComplaintStatusRejected, tr.Complaint.Status)
	assert.Nil(t, tr.Complaint.AssignedTo)
	assert.Equal(t, "Duplicate report", tr.Complaint.AdminComment)
	assert.Equal(t, "Reason: Duplicate report", tr.Effects.Audit.Details)
	require.Len(t, tr.Effects.Notifications, 1)
	assert.Equal(t, c.UserID, *tr.Effects.Notifications[0].UserID)
	assert.Equal(t, NotificationAlert, tr.Effects.Notifications[0].Type)
}

func TestAddAdminComment_KeepsStatus(t *testing.T) {
	c := sampleComplaint()
	c.Status = ComplaintStatusResolved

	tr := AddAdminComment(c, "Verified on site", nil, time.Now())

	assert.Equal(t, ComplaintStatusResolved, tr.Complaint.Status)
	assert.Equal(t, "Verified on site", tr.Complaint.AdminComment)
	assert.Equal(t, ActionNoteAdded, tr.Effects.Audit.Action)
	assert.Equal(t, "Admin Note: Verified on site", tr.Effects.Audit.Details)
	assert.Empty(t, tr.Effects.Notifications)
}

func TestReopenComplaint(t *testing.T) {
	t.Run("with assigned officer", func(t *testing.T) {
		c := sampleComplaint()
		officer := uuid.New()
		c.AssignedTo = &officer
		c.Status = ComplaintStatusResolved

		tr := ReopenComplaint(c, nil, time.Now())

		assert.Equal(t, ComplaintStatusReopened, tr.Complaint.Status)
		assert.Equal(t, PriorityHigh, tr.Complaint.Priority)
		assert.Equal(t, officer, *tr.Complaint.AssignedTo)
		assert.Equal(t, []MetricEffect{{OfficerID: officer, Counter: CounterReopened}}, tr.Effects.Metrics)
		require.Len(t, tr.Effects.Notifications, 2)
		assert.Equal(t, officer, *tr.Effects.Notifications[0].UserID)
		assert.Equal(t, "Task Reopened: Pothole on 5th Street. Waiting for Admin.", tr.Effects.Notifications[0].Message)
		assert.Equal(t, RoleAdmin, tr.Effects.Notifications[1].Role)
		assert.Contains(t, tr.Effects.Notifications[1].Message, c.ID.String())
	})

	t.Run("without officer", func(t *testing.T) {
		tr := ReopenComplaint(sampleComplaint(), nil, time.Now())

		assert.Empty(t, tr.Effects.Metrics)
		require.Len(t, tr.Effects.Notifications, 1)
		assert.True(t, tr.Effects.Notifications[0].IsBroadcast())
	})
}

func TestChangePriority(t *testing.T) {
	tr := ChangePriority(sampleComplaint(), PriorityLow, nil, time.Now())

	assert.Equal(t, PriorityLow, tr.Complaint.Priority)
	assert.Equal(t, "Priority changed to LOW", tr.Effects.Audit.Details)
}

func TestCheckResolvable(t *testing.T) {
	tests := []struct {
		name     string
		status   ComplaintStatus
		hasSite  bool
		pos      Coordinates
		wantCode string
	}{
		{"within fence", ComplaintStatusInProgress, true, Coordinates{0, 0.0015}, ""},
		{"outside fence", ComplaintStatusInProgress, true, Coordinates{0, 0.0018}, EGEOFENCE},
		{"reopened near", ComplaintStatusReopened, true, Coordinates{0, 0}, ELOCKED},
		{"reopened far", ComplaintStatusReopened, true, Coordinates{10, 10}, ELOCKED},
		{"no site skips fence", ComplaintStatusInProgress, false, Coordinates{45, 90}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sampleComplaint()
			c.Status = tt.status
			if !tt.hasSite {
				c.Latitude, c.Longitude = nil, nil
			}

			err := CheckResolvable("complaint.resolve", c, tt.pos, DefaultGeofenceRadiusMeters)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, ErrorCode(err))
		})
	}
}

func TestResolveComplaint(t *testing.T) {
	now := time.Now()
	officer := uuid.New()

	t.Run("assigned officer is credited", func(t *testing.T) {
		c := sampleComplaint()
		c.Status = ComplaintStatusInProgress
		c.AssignedTo = &officer

		tr, err := ResolveComplaint("complaint.resolve", c, ResolveInput{
			OfficerID: &officer,
			Materials: "2 bags cement",
			Position:  Coordinates{0, 0.001},
			ProofURL:  "proof.jpg",
		}, DefaultGeofenceRadiusMeters, now)
		require.NoError(t, err)

		assert.Equal(t, ComplaintStatusResolved, tr.Complaint.Status)
		assert.Equal(t, officer, *tr.Complaint.AssignedTo)
		assert.Equal(t, "2 bags cement", tr.Complaint.MaterialsUsed)
		assert.Equal(t, "proof.jpg", tr.Complaint.ResolutionProofURL)
		assert.Equal(t, 0.001, *tr.Complaint.ResolvedLongitude)
		assert.Equal(t, officer, *tr.Effects.Audit.ActorID)
		assert.Equal(t, "Materials: 2 bags cement", tr.Effects.Audit.Details)
		assert.Equal(t, []MetricEffect{{OfficerID: officer, Counter: CounterResolved}}, tr.Effects.Metrics)
		require.Len(t, tr.Effects.Notifications, 1)
		assert.Equal(t, NotificationSuccess, tr.Effects.Notifications[0].Type)
		assert.Equal(t, c.UserID, *tr.Effects.Notifications[0].UserID)
	})

	t.Run("unassigned adopts resolving officer", func(t *testing.T) {
		c := sampleComplaint()

		tr, err := ResolveComplaint("complaint.resolve", c, ResolveInput{
			OfficerID: &officer,
			Materials: "none",
			Position:  Coordinates{0, 0},
		}, DefaultGeofenceRadiusMeters, now)
		require.NoError(t, err)
		assert.Equal(t, officer, *tr.Complaint.AssignedTo)
		assert.Empty(t, tr.Complaint.ResolutionProofURL)
	})

	t.Run("another officer is forbidden", func(t *testing.T) {
		c := sampleComplaint()
		c.Status = ComplaintStatusInProgress
		c.AssignedTo = &officer
		other := uuid.New()

		_, err := ResolveComplaint("complaint.resolve", c, ResolveInput{
			OfficerID: &other,
			Materials: "x",
			Position:  Coordinates{0, 0},
		}, DefaultGeofenceRadiusMeters, now)
		assert.Equal(t, EFORBIDDEN, ErrorCode(err))
	})

	t.Run("no officer at all is invalid", func(t *testing.T) {
		_, err := ResolveComplaint("complaint.resolve", sampleComplaint(), ResolveInput{
			Materials: "x",
			Position:  Coordinates{0, 0},
		}, DefaultGeofenceRadiusMeters, now)
		assert.Equal(t, EINVALID, ErrorCode(err))
	})

	t.Run("geofence error reports distance", func(t *testing.T) {
		c := sampleComplaint()
		c.AssignedTo = &officer

		_, err := ResolveComplaint("complaint.resolve", c, ResolveInput{
			Materials: "x",
			Position:  Coordinates{0, 0.0018},
		}, DefaultGeofenceRadiusMeters, now)

		var ge *GeofenceError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, 200, ge.DistanceMeters)
	})
}

func TestRecordFeedback_PreservesResolution(t *testing.T) {
	c := sampleComplaint()
	officer := uuid.New()
	c.AssignedTo = &officer
	resolved, err := ResolveComplaint("complaint.resolve", c, ResolveInput{
		Materials: "asphalt",
		Position:  Coordinates{0, 0.0005},
		ProofURL:  "proof.png",
	}, DefaultGeofenceRadiusMeters, time.Now())
	require.NoError(t, err)

	tr := RecordFeedback(resolved.Complaint, 4, "Quick fix", time.Now())

	assert.Equal(t, ComplaintStatusResolved, tr.Complaint.Status)
	assert.Equal(t, "asphalt", tr.Complaint.MaterialsUsed)
	assert.Equal(t, "proof.png", tr.Complaint.ResolutionProofURL)
	assert.Equal(t, 0.0005, *tr.Complaint.ResolvedLongitude)
	assert.Equal(t, int32(4), *tr.Complaint.CitizenRating)
	assert.Equal(t, c.UserID, *tr.Effects.Audit.ActorID)
	assert.Equal(t, "Rating: 4 Stars. Feedback: Quick fix", tr.Effects.Audit.Details)
}
