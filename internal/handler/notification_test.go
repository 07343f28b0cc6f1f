package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/civicpulse/civicpulse/internal/auth"
	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/realtime"
	"github.com/civicpulse/civicpulse/internal/service"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inboxFixture struct {
	*apiFixture
	notifier *service.Notifier
	hub      *realtime.Hub
	tokens   *auth.TokenIssuer
}

func newInboxFixture(t *testing.T) *inboxFixture {
	t.Helper()

	api := newAPIFixture(t)
	logger := discardLogger()
	hub := realtime.NewHub()
	notifier := service.NewNotifier(api.store, logger, service.WithPublisher(hub))

	tokens, err := auth.NewTokenIssuer("test-secret-with-enough-entropy", time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	NewNotificationHandler(ctx, notifier, hub, tokens, logger).RegisterRoutes(api.mux, testRequireUser)
	return &inboxFixture{apiFixture: api, notifier: notifier, hub: hub, tokens: tokens}
}

func TestNotificationAPI_Inbox(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	first, err := f.notifier.Notify(ctx, nil, f.citizen.UserID, "Complaint Rejected: Pothole", domain.NotificationAlert, nil)
	require.NoError(t, err)
	_, err = f.notifier.Notify(ctx, nil, f.citizen.UserID, "Complaint Resolved: Streetlight", domain.NotificationSuccess, nil)
	require.NoError(t, err)

	rec := f.doJSON(t, f.citizen, "GET", "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]NotificationResponse](t, rec), 2)

	rec = f.doJSON(t, f.officer, "PUT", "/api/notifications/"+first.ID.String()+"/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "another user's notification")

	rec = f.doJSON(t, f.citizen, "PUT", "/api/notifications/"+first.ID.String()+"/read", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.doJSON(t, f.citizen, "GET", "/api/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[unreadCountResponse](t, rec).Count)

	rec = f.doJSON(t, f.citizen, "PUT", "/api/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[markAllReadResponse](t, rec).Updated)
}

func TestNotificationAPI_StreamRequiresToken(t *testing.T) {
	f := newInboxFixture(t)

	rec := f.do(t, nil, "GET", "/api/notifications/stream?token=garbage", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotificationAPI_StreamPushesCommittedNotifications(t *testing.T) {
	f := newInboxFixture(t)
	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	user, err := f.store.GetUserByID(context.Background(), f.citizen.UserID)
	require.NoError(t, err)
	token, _, err := f.tokens.Issue(&domain.User{ID: user.ID, Email: user.Email, Name: user.Name, Role: domain.RoleCitizen})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/notifications/stream?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.Subscribers(f.citizen.UserID) == 1 }, time.Second, 10*time.Millisecond)

	note, err := f.notifier.Notify(context.Background(), nil, f.citizen.UserID, "Complaint Resolved: Pothole. Please rate us.", domain.NotificationSuccess, nil)
	require.NoError(t, err)
	f.notifier.Publish(context.Background(), []domain.Notification{*note})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got realtime.Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, note.ID, got.ID)
	assert.Equal(t, "SUCCESS", got.Type)
}
