package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventhorizon/internal/domain"
)

const eventColumns = "e.id, e.title, e.details, e.location, e.event_date, e.event_time, e.created_at, e.creator_id"

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, details, location, event_date, event_time, created_at, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Details, e.Location,
		e.EventDate.Format("2006-01-02"), e.EventTime.Format("15:04:05"),
		e.CreatedAt, e.CreatorID,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events e WHERE e.id = $1`, eventColumns)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, opts domain.ListEventsOptions) ([]*domain.Event, error) {
	var (
		sb   strings.Builder
		args []any
	)
	fmt.Fprintf(&sb, "SELECT %s FROM events e", eventColumns)
	if opts.SortBy == domain.SortPopularity {
		sb.WriteString(" LEFT JOIN registrations r ON r.event_id = e.id")
	}
	if opts.Location != "" {
		args = append(args, opts.Location)
		fmt.Fprintf(&sb, " WHERE e.location = $%d", len(args))
	}
	switch opts.SortBy {
	case domain.SortDate:
		sb.WriteString(" ORDER BY e.event_date, e.event_time")
	case domain.SortPopularity:
		sb.WriteString(" GROUP BY e.id ORDER BY COUNT(r.user_id) DESC, e.created_at")
	case domain.SortCreationTime:
		sb.WriteString(" ORDER BY e.created_at DESC")
	}

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *eventRepository) Update(ctx context.Context, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	setClauses := []string{}
	args := []any{}
	n := 1
	if upd.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", n))
		args = append(args, *upd.Title)
		n++
	}
	if upd.Details != nil {
		setClauses = append(setClauses, fmt.Sprintf("details = $%d", n))
		args = append(args, *upd.Details)
		n++
	}
	if upd.Location != nil {
		setClauses = append(setClauses, fmt.Sprintf("location = $%d", n))
		args = append(args, *upd.Location)
		n++
	}
	if upd.EventDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("event_date = $%d", n))
		args = append(args, upd.EventDate.Format("2006-01-02"))
		n++
	}
	if upd.EventTime != nil {
		setClauses = append(setClauses, fmt.Sprintf("event_time = $%d", n))
		args = append(args, upd.EventTime.Format("15:04:05"))
		n++
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, eventID)
	}
	args = append(args, eventID)
	query := fmt.Sprintf(`
		UPDATE events e SET %s
		WHERE e.id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), n, eventColumns)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]*domain.Event, error) {
	// BETWEEN is inclusive on both ends, which is exactly the look-ahead
	// window contract.
	query := fmt.Sprintf(`
		SELECT %s FROM events e
		WHERE e.event_date + e.event_time BETWEEN $1 AND $2
	`, eventColumns)
	rows, err := r.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var eventTime string
	err := row.Scan(&e.ID, &e.Title, &e.Details, &e.Location, &e.EventDate, &eventTime, &e.CreatedAt, &e.CreatorID)
	if err != nil {
		return nil, err
	}
	e.EventTime, err = parseTimeOfDay(eventTime)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func collectEvents(rows *sql.Rows) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// parseTimeOfDay parses a TIME column value. lib/pq hands TIME back as text.
func parseTimeOfDay(s string) (time.Time, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time of day %q", s)
}
