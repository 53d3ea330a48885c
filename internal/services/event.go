package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhorizon/internal/domain"
)

type eventService struct {
	eventRepo domain.EventRepository
	loc       *time.Location
}

// NewEventService creates an EventService. loc is the service-local time zone
// used to interpret event dates and times.
func NewEventService(eventRepo domain.EventRepository, loc *time.Location) domain.EventService {
	if loc == nil {
		loc = time.Local
	}
	return &eventService{eventRepo: eventRepo, loc: loc}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	if !event.StartsAt(s.loc).After(time.Now()) {
		return domain.ErrEventInPast
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *eventService) GetEventByID(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, opts domain.ListEventsOptions) ([]*domain.Event, error) {
	events, err := s.eventRepo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID, userID string, upd domain.EventUpdate) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.CreatorID != userID {
		return nil, domain.ErrForbidden
	}
	// Events that already started are frozen.
	if !event.StartsAt(s.loc).After(time.Now()) {
		return nil, domain.ErrEventInPast
	}
	updated, err := s.eventRepo.Update(ctx, eventID, upd)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID, userID string) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if event.CreatorID != userID {
		return domain.ErrForbidden
	}
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
