package domain

import (
	"context"
	"strings"
	"time"
)

// Event represents a planned event. EventDate carries the civil date and
// EventTime the time of day; together they denote the start instant in the
// service's local time zone.
// swagger:model Event
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Details   string    `json:"details"`
	Location  string    `json:"location"`
	EventDate time.Time `json:"event_date"`
	EventTime time.Time `json:"event_time"`
	CreatedAt time.Time `json:"created_at"`
	CreatorID string    `json:"creator_id"`
}

// NewEvent returns a new Event. ID is set by the repository on create.
func NewEvent(title, details, location string, eventDate, eventTime time.Time, creatorID string, createdAt time.Time) *Event {
	return &Event{
		Title:     title,
		Details:   details,
		Location:  location,
		EventDate: eventDate,
		EventTime: eventTime,
		CreatedAt: createdAt,
		CreatorID: creatorID,
	}
}

// StartsAt combines EventDate and EventTime into the event's start instant in loc.
func (e *Event) StartsAt(loc *time.Location) time.Time {
	return time.Date(
		e.EventDate.Year(), e.EventDate.Month(), e.EventDate.Day(),
		e.EventTime.Hour(), e.EventTime.Minute(), e.EventTime.Second(), 0,
		loc,
	)
}

// EventSort selects the ordering for event listings.
type EventSort string

const (
	SortNone         EventSort = ""
	SortDate         EventSort = "date"
	SortPopularity   EventSort = "popularity"
	SortCreationTime EventSort = "creation_time"
)

// ParseEventSort maps a query string value to an EventSort.
// Empty input means no ordering; unknown values return ErrInvalidSort.
func ParseEventSort(s string) (EventSort, error) {
	switch EventSort(strings.ToLower(strings.TrimSpace(s))) {
	case SortNone:
		return SortNone, nil
	case SortDate:
		return SortDate, nil
	case SortPopularity:
		return SortPopularity, nil
	case SortCreationTime:
		return SortCreationTime, nil
	default:
		return SortNone, ErrInvalidSort
	}
}

// ListEventsOptions holds the filter and ordering for event listings.
type ListEventsOptions struct {
	Location string
	SortBy   EventSort
}

// EventUpdate carries a partial event update. Nil fields are unchanged.
type EventUpdate struct {
	Title     *string
	Details   *string
	Location  *string
	EventDate *time.Time
	EventTime *time.Time
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, opts ListEventsOptions) ([]*Event, error)
	Update(ctx context.Context, eventID string, upd EventUpdate) (*Event, error)
	Delete(ctx context.Context, id string) error
	// ListStartingBetween returns events whose start instant lies in [from, to],
	// both boundaries inclusive.
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]*Event, error)
}

// EventService defines the business logic for event CRUD.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEventByID(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, opts ListEventsOptions) ([]*Event, error)
	UpdateEvent(ctx context.Context, eventID, userID string, upd EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, eventID, userID string) error
}
