package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRoutedSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		to      string
		want    string
	}{
		{"appends recipient", "ACCOUNT APPROVED", "officer@city.gov", "ACCOUNT APPROVED - officer@city.gov"},
		{"trims recipient", "CivicPulse Update", "  a@b.c ", "CivicPulse Update - a@b.c"},
		{"no recipient", "CivicPulse Update", "", "CivicPulse Update"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, routedSubject(tt.subject, tt.to))
		})
	}
}

func TestRenderer_Render(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	t.Run("notification labels type", func(t *testing.T) {
		html, text, err := r.Render(TemplateNotification, map[string]string{
			"Message": "Complaint Resolved: Pothole. Please rate us.",
			"Type":    "SUCCESS",
		})
		require.NoError(t, err)
		assert.Contains(t, html, "Complaint Resolved: Pothole. Please rate us.")
		assert.Contains(t, html, "Success")
		assert.Contains(t, text, "[Success] Complaint Resolved")
	})

	t.Run("officer approved", func(t *testing.T) {
		html, text, err := r.Render(TemplateOfficerApproved, map[string]string{
			"LoginURL": "http://localhost:5173/login?email=o@city.gov",
		})
		require.NoError(t, err)
		assert.Contains(t, html, "Dear Officer")
		assert.Contains(t, html, "Login Now")
		assert.Contains(t, text, "http://localhost:5173/login?email=o@city.gov")
	})

	t.Run("otp", func(t *testing.T) {
		_, text, err := r.Render(TemplateOTP, map[string]string{"Code": "042137", "ExpiresIn": "5 minutes"})
		require.NoError(t, err)
		assert.Contains(t, text, "042137")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, _, err := r.Render("missing", nil)
		assert.Error(t, err)
	})
}

func TestSMTPEmailService_Send(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	t.Run("delivers to ops mailbox", func(t *testing.T) {
		svc := NewSMTPEmailService(SMTPConfig{Host: "localhost", Port: 1025}, "ops@civicpulse.test", r, testLogger())
		var gotTo []string
		var gotMsg []byte
		svc.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotTo = to
			gotMsg = msg
			return nil
		}

		err := svc.Send(context.Background(), "citizen@city.gov", "CivicPulse Update", TemplateNotification, map[string]string{"Message": "hello"})
		require.NoError(t, err)
		assert.Equal(t, []string{"ops@civicpulse.test"}, gotTo)
		assert.Contains(t, string(gotMsg), "Subject: CivicPulse Update - citizen@city.gov")
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		svc := NewSMTPEmailService(SMTPConfig{Host: "localhost", Port: 1025}, "", r, testLogger())
		calls := 0
		svc.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
			calls++
			return &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
		}

		err := svc.Send(context.Background(), "x@y.z", "S", TemplateNotification, map[string]string{"Message": "m"})
		require.Error(t, err)
		assert.True(t, IsPermanent(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		svc := NewSMTPEmailService(SMTPConfig{Host: "localhost", Port: 1025}, "", r, testLogger())
		calls := 0
		svc.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
			calls++
			if calls < 2 {
				return &textproto.Error{Code: 421, Msg: "try again later"}
			}
			return nil
		}

		err := svc.Send(context.Background(), "x@y.z", "S", TemplateNotification, map[string]string{"Message": "m"})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}

func TestIsTransient(t *testing.T) {
	assert.False(t, isTransient(&PermanentError{Err: errors.New("bad key")}))
	assert.True(t, isTransient(&textproto.Error{Code: 451}))
	assert.False(t, isTransient(&textproto.Error{Code: 554}))
	assert.True(t, isTransient(errors.New("connection reset")))
}
