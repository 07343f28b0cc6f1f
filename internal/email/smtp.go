package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"net/textproto"
)

// SMTPEmailService sends mail through an SMTP relay.
type SMTPEmailService struct {
	config     SMTPConfig
	opsMailbox string
	renderer   *Renderer
	sendMail   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger     *slog.Logger
}

// NewSMTPEmailService creates an SMTPEmailService delivering to opsMailbox.
func NewSMTPEmailService(config SMTPConfig, opsMailbox string, renderer *Renderer, logger *slog.Logger) *SMTPEmailService {
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}
	if opsMailbox == "" {
		opsMailbox = DefaultOpsMailbox
	}
	return &SMTPEmailService{
		config:     config,
		opsMailbox: opsMailbox,
		renderer:   renderer,
		sendMail:   smtp.SendMail,
		logger:     logger,
	}
}

// Send renders and delivers one message.
func (s *SMTPEmailService) Send(ctx context.Context, to, subject, tmpl string, data map[string]string) error {
	msg, err := s.renderer.compose(s.opsMailbox, to, subject, tmpl, data)
	if err != nil {
		return &PermanentError{Err: err}
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	raw := s.buildMessage(msg)

	err = sendWithRetry(ctx, s.logger, msg.Subject, func() error {
		err := s.sendMail(addr, auth, s.config.From, []string{msg.To}, raw)
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) && protoErr.Code >= 500 {
			return &PermanentError{Err: err}
		}
		return err
	})
	if err != nil {
		s.logger.Error("failed to send email", "to", to, "subject", msg.Subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", "to", to, "subject", msg.Subject, "provider", ProviderSMTP)
	return nil
}

// buildMessage constructs a multipart/alternative message.
func (s *SMTPEmailService) buildMessage(msg Email) []byte {
	const boundary = "===============CIVICPULSE_BOUNDARY==============="

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\r\n", s.config.FromName, s.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(msg.TextBody)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	buf.WriteString(msg.HTMLBody)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}

var _ EmailService = (*SMTPEmailService)(nil)
