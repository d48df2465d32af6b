// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"classifieds_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserRegistered is published when a new account has been created.
type UserRegistered struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

func (e UserRegistered) EventName() string { return "auth.user.registered" }

// =============================================================================
// Ads Domain Events
// =============================================================================

// AdPublished is published after an ad has been stored.
type AdPublished struct {
	BaseEvent
	AdID      int64     `json:"adId"`
	Title     string    `json:"title"`
	OwnerID   uuid.UUID `json:"ownerId"`
	OwnerMail string    `json:"ownerEmail"`
	Category  string    `json:"category"`
}

func (e AdPublished) EventName() string { return "ads.ad.published" }

// AdDeleted is published after an ad has been removed. Images lists the
// object keys the ad referenced.
type AdDeleted struct {
	BaseEvent
	AdID    int64     `json:"adId"`
	OwnerID uuid.UUID `json:"ownerId"`
	Images  []string  `json:"images"`
}

func (e AdDeleted) EventName() string { return "ads.ad.deleted" }
