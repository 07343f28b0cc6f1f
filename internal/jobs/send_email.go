package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/civicpulse/civicpulse/internal/email"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/worker"
)

// SendEmailHandler delivers queued mail: officer approvals and notification
// mirrors. Delivery retries within one attempt are handled by the email
// service; a failure that survives them is retried by the queue unless the
// provider rejected the message outright.
type SendEmailHandler struct {
	emailService email.EmailService
	provider     string
	logger       *slog.Logger
}

// NewSendEmailHandler creates a handler for outbound mail jobs. provider
// labels the emails_sent metric.
func NewSendEmailHandler(emailService email.EmailService, provider string, logger *slog.Logger) *SendEmailHandler {
	return &SendEmailHandler{
		emailService: emailService,
		provider:     provider,
		logger:       logger,
	}
}

// Type returns the job type identifier.
func (h *SendEmailHandler) Type() string {
	return worker.JobTypeSendEmail
}

// Handle renders and sends one message.
func (h *SendEmailHandler) Handle(ctx context.Context, payload []byte) error {
	p, err := worker.DecodePayload[worker.SendEmailPayload](payload)
	if err != nil {
		return err
	}
	if strings.TrimSpace(p.To) == "" {
		return worker.NewPermanentError(errors.New("missing recipient"))
	}
	if p.Template == "" {
		p.Template = email.TemplateNotification
	}

	if err := h.emailService.Send(ctx, p.To, p.Subject, p.Template, p.Data); err != nil {
		metrics.EmailsSent.WithLabelValues(h.provider, "error").Inc()
		if email.IsPermanent(err) {
			return worker.NewPermanentError(err)
		}
		return fmt.Errorf("send email to %s: %w", p.To, err)
	}

	metrics.EmailsSent.WithLabelValues(h.provider, "ok").Inc()
	h.logger.Info("Email sent", "to", p.To, "template", p.Template)
	return nil
}
