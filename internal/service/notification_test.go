package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/civicpulse/civicpulse/internal/repository/repotest"
	"github.com/civicpulse/civicpulse/internal/worker"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Notify_UnknownRecipientIsNoop(t *testing.T) {
	store := repotest.NewMemStore()
	n := NewNotifier(store, testLogger())

	note, err := n.Notify(context.Background(), nil, uuid.New(), "hello", domain.NotificationInfo, nil)

	require.NoError(t, err)
	assert.Nil(t, note)
	assert.Empty(t, store.Notifications())
}

func TestNotifier_NotifyAllWithRole(t *testing.T) {
	store := repotest.NewMemStore()
	store.AddUser(repository.User{Name: "A", Email: "a@example.com", Role: "ADMIN", Enabled: true})
	store.AddUser(repository.User{Name: "B", Email: "b@example.com", Role: "ADMIN", Enabled: true})
	store.AddUser(repository.User{Name: "C", Email: "c@example.com", Role: "OFFICER", Enabled: true})
	n := NewNotifier(store, testLogger())

	t.Run("fans out to every member", func(t *testing.T) {
		notes, err := n.NotifyAllWithRole(context.Background(), nil, domain.RoleAdmin, "New Complaint Filed: x", domain.NotificationInfo, nil)
		require.NoError(t, err)
		assert.Len(t, notes, 2)
	})

	t.Run("empty role is noop", func(t *testing.T) {
		notes, err := n.NotifyAllWithRole(context.Background(), nil, domain.RoleCitizen, "x", domain.NotificationInfo, nil)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})
}

func TestNotifier_MailMirror(t *testing.T) {
	store := repotest.NewMemStore()
	citizen := store.AddUser(repository.User{Name: "Asha", Email: "asha@example.com", Role: "CITIZEN", Enabled: true})
	n := NewNotifier(store, testLogger(), WithMailMirror(true))

	_, err := n.Notify(context.Background(), nil, citizen.ID, "Complaint Resolved: x", domain.NotificationSuccess, nil)
	require.NoError(t, err)

	jobs := store.Jobs()
	require.Len(t, jobs, 1)
	var payload worker.SendEmailPayload
	require.NoError(t, json.Unmarshal(jobs[0].Payload, &payload))
	assert.Equal(t, "asha@example.com", payload.To)
	assert.Equal(t, "Complaint Resolved: x", payload.Data["Message"])
}

func TestNotifier_Inbox(t *testing.T) {
	store := repotest.NewMemStore()
	citizen := store.AddUser(repository.User{Name: "Asha", Email: "asha@example.com", Role: "CITIZEN", Enabled: true})
	other := store.AddUser(repository.User{Name: "Ravi", Email: "ravi@example.com", Role: "OFFICER", Enabled: true})
	n := NewNotifier(store, testLogger())
	ctx := context.Background()

	first, err := n.Notify(ctx, nil, citizen.ID, "first", domain.NotificationInfo, nil)
	require.NoError(t, err)
	_, err = n.Notify(ctx, nil, citizen.ID, "second", domain.NotificationAlert, nil)
	require.NoError(t, err)

	notes, err := n.List(ctx, citizen.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "second", notes[0].Message)

	err = n.MarkRead(ctx, other.ID, first.ID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	require.NoError(t, n.MarkRead(ctx, citizen.ID, first.ID))
	unread, err := n.UnreadCount(ctx, citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	changed, err := n.MarkAllRead(ctx, citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
}

func TestAuditLog_RecordFailureIsStorageError(t *testing.T) {
	store := repotest.NewMemStore()
	store.FailOn("CreateComplaintHistory", assert.AnError)
	audit := NewAuditLog(store, testLogger())

	_, err := audit.Record(context.Background(), nil, domain.AuditRecord{
		ComplaintID: uuid.New(),
		Action:      domain.ActionCreated,
		Details:     "Complaint filed by citizen",
	})

	assert.Equal(t, domain.ESTORAGE, domain.ErrorCode(err))
}

func TestOfficerMetrics_UnknownOfficerIsNoop(t *testing.T) {
	store := repotest.NewMemStore()
	m := NewOfficerMetrics(testLogger())

	err := m.Apply(context.Background(), store, []domain.MetricEffect{
		{OfficerID: uuid.New(), Counter: domain.CounterResolved},
		{OfficerID: uuid.New(), Counter: domain.CounterReopened},
	})

	assert.NoError(t, err)
}

func TestOfficerMetrics_ConcurrentIncrements(t *testing.T) {
	store := repotest.NewMemStore()
	officer := store.AddUser(repository.User{Name: "Ravi", Email: "ravi@example.com", Role: "OFFICER", Enabled: true})
	m := NewOfficerMetrics(testLogger())
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.IncrementResolved(ctx, store, officer.ID))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, m.IncrementReopened(ctx, store, officer.ID))
		}()
	}
	wg.Wait()

	got := store.User(officer.ID)
	assert.Equal(t, int32(workers), got.TicketsResolved)
	assert.Equal(t, int32(workers), got.TicketsReopened)
}
