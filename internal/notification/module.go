// Package notification provides event handlers for sending notifications
// in response to domain events.
// This module subscribes to events and inverts the dependency: domain modules
// no longer need to know about email providers or templates.
package notification

import (
	"context"
	"fmt"
	"strings"

	"classifieds_backend/internal/email"
	"classifieds_backend/internal/events"
	"classifieds_backend/platform/config"
	"classifieds_backend/platform/logger"
)

// Module sends mails for account and ad lifecycle events.
type Module struct {
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// New creates a new notification module.
func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		cfg:    cfg,
		log:    log,
	}
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	// Auth domain events
	bus.Subscribe(events.UserRegistered{}.EventName(), m)

	// Ads domain events
	bus.Subscribe(events.AdPublished{}.EventName(), m)
	bus.Subscribe(events.AdDeleted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.UserRegistered:
		return m.handleUserRegistered(ctx, e)
	case events.AdPublished:
		return m.handleAdPublished(ctx, e)
	case events.AdDeleted:
		m.log.Info("ad removed", "adId", e.AdID, "ownerId", e.OwnerID, "images", len(e.Images))
		return nil
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleUserRegistered(ctx context.Context, e events.UserRegistered) error {
	if err := m.sender.SendWelcomeEmail(ctx, e.Email, m.buildURL("/")); err != nil {
		m.log.Error("failed to send welcome email",
			"userId", e.UserID,
			"email", e.Email,
			"error", err,
		)
		return err
	}
	m.log.Info("welcome email sent", "userId", e.UserID, "email", e.Email)
	return nil
}

func (m *Module) handleAdPublished(ctx context.Context, e events.AdPublished) error {
	if e.OwnerMail == "" {
		m.log.Warn("ad published without owner email", "adId", e.AdID, "ownerId", e.OwnerID)
		return nil
	}

	adURL := m.buildURL(fmt.Sprintf("/ads/%d", e.AdID))
	if err := m.sender.SendAdOnlineEmail(ctx, e.OwnerMail, e.Title, adURL); err != nil {
		m.log.Error("failed to send ad online email",
			"adId", e.AdID,
			"email", e.OwnerMail,
			"error", err,
		)
		return err
	}
	m.log.Info("ad online email sent", "adId", e.AdID, "email", e.OwnerMail)
	return nil
}

func (m *Module) buildURL(path string) string {
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	return base + path
}

var _ events.Handler = (*Module)(nil)
