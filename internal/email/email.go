// Package email delivers CivicPulse mail.
//
// Every message is sent to a single operations mailbox. The intended
// recipient is appended to the subject so staff can forward or audit it.
// Implementations:
// - SMTPEmailService: plain SMTP (Mailhog in development)
// - SendGridEmailService: SendGrid v3 API
package email

import (
	"context"
	"strings"
)

// EmailService sends templated mail on behalf of a recipient.
type EmailService interface {
	// Send renders tmpl with data and delivers it. to is the intended
	// recipient; the message itself goes to the operations mailbox.
	Send(ctx context.Context, to, subject, tmpl string, data map[string]string) error
}

// Email represents a single rendered message.
type Email struct {
	To       string // Delivery address (the operations mailbox)
	Subject  string
	HTMLBody string
	TextBody string
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // Empty for Mailhog
	Password string
	From     string
	FromName string
}

// SendGridConfig holds SendGrid API configuration.
type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
}

const (
	// DefaultFromEmail is the default sender address.
	DefaultFromEmail = "noreply@civicpulse.local"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "CivicPulse"

	// DefaultOpsMailbox receives every outgoing message.
	DefaultOpsMailbox = "civicpulse.official@gmail.com"
)

// Provider names accepted by MAIL_PROVIDER.
const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

// routedSubject appends the intended recipient to subject.
func routedSubject(subject, to string) string {
	to = strings.TrimSpace(to)
	if to == "" {
		return subject
	}
	return subject + " - " + to
}
