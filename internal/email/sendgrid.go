package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridEmailService sends mail through the SendGrid v3 API.
type SendGridEmailService struct {
	client     *sendgrid.Client
	from       *mail.Email
	opsMailbox string
	renderer   *Renderer
	logger     *slog.Logger
}

// NewSendGridEmailService creates a SendGridEmailService delivering to
// opsMailbox.
func NewSendGridEmailService(config SendGridConfig, opsMailbox string, renderer *Renderer, logger *slog.Logger) (*SendGridEmailService, error) {
	if config.APIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}
	if opsMailbox == "" {
		opsMailbox = DefaultOpsMailbox
	}
	return &SendGridEmailService{
		client:     sendgrid.NewSendClient(config.APIKey),
		from:       mail.NewEmail(config.FromName, config.From),
		opsMailbox: opsMailbox,
		renderer:   renderer,
		logger:     logger,
	}, nil
}

// Send renders and delivers one message.
func (s *SendGridEmailService) Send(ctx context.Context, to, subject, tmpl string, data map[string]string) error {
	msg, err := s.renderer.compose(s.opsMailbox, to, subject, tmpl, data)
	if err != nil {
		return &PermanentError{Err: err}
	}

	message := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail("", msg.To), msg.TextBody, msg.HTMLBody)

	err = sendWithRetry(ctx, s.logger, msg.Subject, func() error {
		resp, err := s.client.SendWithContext(ctx, message)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
		default:
			return &PermanentError{Err: fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)}
		}
	})
	if err != nil {
		s.logger.Error("failed to send email", "to", to, "subject", msg.Subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", "to", to, "subject", msg.Subject, "provider", ProviderSendGrid)
	return nil
}

var _ EmailService = (*SendGridEmailService)(nil)
