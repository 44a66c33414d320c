package email

import (
	"context"
	"errors"
	"fmt"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"
	"removal-agent/internal/infrastructure/prompts"
)

var ErrEmailSend = errors.New("send removal email")

type Dispatcher struct {
	sender       output.EmailSenderPort
	logger       output.LoggerPort
	bodyTemplate string
}

func NewDispatcher(sender output.EmailSenderPort, logger output.LoggerPort, bodyTemplate string) *Dispatcher {
	if bodyTemplate == "" {
		bodyTemplate = prompts.EmailBodyTemplate
	}
	return &Dispatcher{
		sender:       sender,
		logger:       logger,
		bodyTemplate: bodyTemplate,
	}
}

// Compose renders the subject and body for a removal request.
func (d *Dispatcher) Compose(profile entity.Profile) (string, string, error) {
	body, err := prompts.GenerateEmailBody(d.bodyTemplate, profile)
	if err != nil {
		return "", "", fmt.Errorf("render email body: %w", err)
	}
	return profile.Subject, body, nil
}

// Dispatch sends once. Failures are wrapped with ErrEmailSend and never
// retried here.
func (d *Dispatcher) Dispatch(ctx context.Context, to string, profile entity.Profile) error {
	if d.sender == nil {
		return fmt.Errorf("%w: no email sender configured", ErrEmailSend)
	}

	subject, body, err := d.Compose(profile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmailSend, err)
	}

	d.logger.Info("Sending removal email", "to", to, "subject", subject)
	if err := d.sender.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("%w to %s: %w", ErrEmailSend, to, err)
	}
	return nil
}
