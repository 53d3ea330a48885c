package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WelcomeEmailData holds data for the welcome email.
type WelcomeEmailData struct {
	Email    string
	Username string
}

// EventReminderEmailData holds data for the event reminder email.
type EventReminderEmailData struct {
	Email        string
	Username     string
	EventTitle   string
	EventDetails string
	Location     string
	StartsAt     time.Time
	MinutesUntil int
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendWelcomeMessage(ctx context.Context, data *WelcomeEmailData) error
	SendEventReminder(ctx context.Context, data *EventReminderEmailData) error
}
