package services

import (
	"context"
	"fmt"
	"time"

	"eventhorizon/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	loc      *time.Location
}

// NewEmailService returns an EmailService that uses the given Mailer and
// template renderer. It also implements domain.ReminderNotifier.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, loc *time.Location) *emailService {
	if loc == nil {
		loc = time.Local
	}
	return &emailService{mailer: mailer, renderer: renderer, loc: loc}
}

// SendWelcomeMessage sends a welcome email using the "welcome" template.
func (s *emailService) SendWelcomeMessage(ctx context.Context, data *domain.WelcomeEmailData) error {
	if data == nil {
		return fmt.Errorf("welcome email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("welcome", data)
	if err != nil {
		return fmt.Errorf("failed to render welcome template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

// SendEventReminder sends the event reminder email using the "reminder" template.
func (s *emailService) SendEventReminder(ctx context.Context, data *domain.EventReminderEmailData) error {
	if data == nil {
		return fmt.Errorf("reminder email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("reminder", data)
	if err != nil {
		return fmt.Errorf("failed to render reminder template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}
	return nil
}

// NotifyEventReminder implements domain.ReminderNotifier on top of SendEventReminder.
func (s *emailService) NotifyEventReminder(ctx context.Context, event *domain.Event, user *domain.User) error {
	startsAt := event.StartsAt(s.loc)
	minutes := int(time.Until(startsAt).Round(time.Minute).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return s.SendEventReminder(ctx, &domain.EventReminderEmailData{
		Email:        user.Email,
		Username:     user.Username,
		EventTitle:   event.Title,
		EventDetails: event.Details,
		Location:     event.Location,
		StartsAt:     startsAt,
		MinutesUntil: minutes,
	})
}
