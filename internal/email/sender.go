package email

import (
	"context"

	"classifieds_backend/platform/config"
)

type Sender interface {
	SendWelcomeEmail(ctx context.Context, toEmail, appURL string) error
	SendAdOnlineEmail(ctx context.Context, toEmail, adTitle, adURL string) error
}

type NoopSender struct{}

func (NoopSender) SendWelcomeEmail(ctx context.Context, toEmail, appURL string) error {
	return nil
}

func (NoopSender) SendAdOnlineEmail(ctx context.Context, toEmail, adTitle, adURL string) error {
	return nil
}

// NewSender returns an SMTP sender when SMTP is configured and a no-op sender otherwise.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetSMTPFromEmail(),
		cfg.GetSMTPFromName(),
	)
}
