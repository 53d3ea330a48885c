package domain

import (
	"context"
	"time"
)

// Registration represents a user's attendance registration for an event.
// The (UserID, EventID) pair is the identity; ReminderSent records whether a
// reminder notification has been delivered for this registration. Unregistering
// removes the row entirely, so a later re-registration is eligible for a fresh
// reminder.
// swagger:model Registration
type Registration struct {
	UserID       string    `json:"user_id"`
	EventID      string    `json:"event_id"`
	ReminderSent bool      `json:"reminder_sent"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewRegistration creates a Registration with ReminderSent false.
func NewRegistration(userID, eventID string, createdAt time.Time) *Registration {
	return &Registration{
		UserID:    userID,
		EventID:   eventID,
		CreatedAt: createdAt,
	}
}

// RegistrationWithUser bundles a registration with its attendee.
type RegistrationWithUser struct {
	Registration *Registration `json:"registration"`
	User         *User         `json:"user"`
}

// RegistrationWithEvent bundles a registration with its event.
type RegistrationWithEvent struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *Registration) error
	Get(ctx context.Context, userID, eventID string) (*Registration, error)
	Delete(ctx context.Context, userID, eventID string) error
	// ListByUserID returns the user's registrations joined with their events,
	// newest registration first.
	ListByUserID(ctx context.Context, userID string) ([]*RegistrationWithEvent, error)
	// ListUnreminded returns the event's registrations whose reminder flag is
	// still false, joined with their users.
	ListUnreminded(ctx context.Context, eventID string) ([]*RegistrationWithUser, error)
	// MarkReminderSent flips the reminder flag to true for exactly the row
	// keyed by both userID and eventID. Returns ErrNotFound when no such row
	// exists or the flag was already set.
	MarkReminderSent(ctx context.Context, userID, eventID string) error
}

// AttendeeService defines attendee-facing registration operations.
type AttendeeService interface {
	RegisterForEvent(ctx context.Context, eventID, userID string) (*Registration, error)
	UnregisterFromEvent(ctx context.Context, eventID, userID string) error
	ListMyEvents(ctx context.Context, userID string) ([]*RegistrationWithEvent, error)
}
