package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// mailClient is the slice of the SendGrid client the notifier uses.
type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*sendgridResponse, error)
}

type sendgridResponse struct {
	StatusCode int
	Body       string
}

type sendgridAdapter struct {
	client *sendgrid.Client
}

func (a sendgridAdapter) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*sendgridResponse, error) {
	resp, err := a.client.SendWithContext(ctx, email)
	if err != nil {
		return nil, err
	}
	return &sendgridResponse{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}

// EmailNotifier delivers notifications to e-mail contacts through SendGrid.
type EmailNotifier struct {
	client    mailClient
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewEmailNotifier returns nil when no API key is configured.
func NewEmailNotifier(cfg SendGridConfig, logger *logging.Logger) *EmailNotifier {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "VITA-Care"
	}
	return &EmailNotifier{
		client:    sendgridAdapter{client: sendgrid.NewSendClient(cfg.APIKey)},
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (e *EmailNotifier) Notify(ctx context.Context, contact, message string) error {
	if e == nil || e.client == nil {
		return apperr.New(apperr.Internal, "email notifier not configured")
	}
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return ErrMissingContact
	}

	from := mail.NewEmail(e.fromName, e.fromEmail)
	to := mail.NewEmail("", contact)
	msg := mail.NewSingleEmail(from, "VITA-Care notification", to, message, message)

	resp, err := e.client.SendWithContext(ctx, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperr.Wrap(apperr.Unavailable, "email provider timeout", err)
		}
		return apperr.Wrap(apperr.Unavailable, "email provider unreachable", err)
	}
	if resp.StatusCode == 429 || resp.StatusCode >= 500 {
		return apperr.New(apperr.Unavailable, fmt.Sprintf("email provider returned status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		e.logger.Error("sendgrid returned error status", "status", resp.StatusCode, "body", resp.Body)
		return apperr.New(apperr.Internal, fmt.Sprintf("email provider returned status %d", resp.StatusCode))
	}

	e.logger.Info("email notification sent", "to", maskContact(contact), "status", resp.StatusCode)
	return nil
}

// Router sends e-mail contacts through Email and everything else through Default.
type Router struct {
	Default Notifier
	Email   Notifier
}

func (r Router) Notify(ctx context.Context, contact, message string) error {
	if r.Email != nil && strings.Contains(contact, "@") {
		return r.Email.Notify(ctx, contact, message)
	}
	if r.Default == nil {
		return apperr.New(apperr.Internal, "no notifier configured")
	}
	return r.Default.Notify(ctx, contact, message)
}
