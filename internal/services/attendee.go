package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhorizon/internal/domain"
)

type attendeeService struct {
	eventRepo domain.EventRepository
	regRepo   domain.RegistrationRepository
	loc       *time.Location
}

// NewAttendeeService creates an AttendeeService with the given repositories.
func NewAttendeeService(
	eventRepo domain.EventRepository,
	regRepo domain.RegistrationRepository,
	loc *time.Location,
) domain.AttendeeService {
	if loc == nil {
		loc = time.Local
	}
	return &attendeeService{
		eventRepo: eventRepo,
		regRepo:   regRepo,
		loc:       loc,
	}
}

func (s *attendeeService) RegisterForEvent(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.StartsAt(s.loc).After(time.Now()) {
		return nil, domain.ErrEventInPast
	}

	if _, err := s.regRepo.Get(ctx, userID, eventID); err == nil {
		return nil, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get registration: %w", err)
	}

	reg := domain.NewRegistration(userID, eventID, time.Now())
	if err := s.regRepo.Create(ctx, reg); err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}
	return reg, nil
}

func (s *attendeeService) UnregisterFromEvent(ctx context.Context, eventID, userID string) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if !event.StartsAt(s.loc).After(time.Now()) {
		return domain.ErrEventInPast
	}

	// Deleting the row discards reminder history on purpose: a later
	// re-registration is eligible for a fresh reminder.
	if err := s.regRepo.Delete(ctx, userID, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotRegistered
		}
		return fmt.Errorf("delete registration: %w", err)
	}
	return nil
}

func (s *attendeeService) ListMyEvents(ctx context.Context, userID string) ([]*domain.RegistrationWithEvent, error) {
	items, err := s.regRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return items, nil
}
