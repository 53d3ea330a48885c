package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventhorizon/internal/domain"
)

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	query := `
		INSERT INTO registrations (user_id, event_id, reminder_sent, created_at)
		VALUES ($1, $2, FALSE, $3)
	`
	_, err := r.DB.ExecContext(ctx, query, reg.UserID, reg.EventID, reg.CreatedAt)
	return err
}

func (r *registrationRepository) Get(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	query := `
		SELECT user_id, event_id, reminder_sent, created_at
		FROM registrations
		WHERE user_id = $1 AND event_id = $2
	`
	reg := &domain.Registration{}
	err := r.DB.QueryRowContext(ctx, query, userID, eventID).
		Scan(&reg.UserID, &reg.EventID, &reg.ReminderSent, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) Delete(ctx context.Context, userID, eventID string) error {
	query := `DELETE FROM registrations WHERE user_id = $1 AND event_id = $2`
	result, err := r.DB.ExecContext(ctx, query, userID, eventID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *registrationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.RegistrationWithEvent, error) {
	query := `
		SELECT r.user_id, r.event_id, r.reminder_sent, r.created_at,
		       e.id, e.title, e.details, e.location, e.event_date, e.event_time, e.created_at, e.creator_id
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.RegistrationWithEvent, 0)
	for rows.Next() {
		reg := &domain.Registration{}
		e := &domain.Event{}
		var eventTime string
		if err := rows.Scan(
			&reg.UserID, &reg.EventID, &reg.ReminderSent, &reg.CreatedAt,
			&e.ID, &e.Title, &e.Details, &e.Location, &e.EventDate, &eventTime, &e.CreatedAt, &e.CreatorID,
		); err != nil {
			return nil, err
		}
		if e.EventTime, err = parseTimeOfDay(eventTime); err != nil {
			return nil, err
		}
		items = append(items, &domain.RegistrationWithEvent{Registration: reg, Event: e})
	}
	return items, rows.Err()
}

func (r *registrationRepository) ListUnreminded(ctx context.Context, eventID string) ([]*domain.RegistrationWithUser, error) {
	query := `
		SELECT r.user_id, r.event_id, r.reminder_sent, r.created_at,
		       u.id, u.username, u.email, u.created_at
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1 AND r.reminder_sent = FALSE
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := make([]*domain.RegistrationWithUser, 0)
	for rows.Next() {
		reg := &domain.Registration{}
		u := &domain.User{}
		if err := rows.Scan(
			&reg.UserID, &reg.EventID, &reg.ReminderSent, &reg.CreatedAt,
			&u.ID, &u.Username, &u.Email, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		pairs = append(pairs, &domain.RegistrationWithUser{Registration: reg, User: u})
	}
	return pairs, rows.Err()
}

// MarkReminderSent flips the flag for exactly one row. The WHERE clause is a
// strict conjunction on both key columns; matching on a single column would
// touch every registration of that user or event.
func (r *registrationRepository) MarkReminderSent(ctx context.Context, userID, eventID string) error {
	query := `
		UPDATE registrations
		SET reminder_sent = TRUE
		WHERE user_id = $1 AND event_id = $2 AND reminder_sent = FALSE
	`
	result, err := r.DB.ExecContext(ctx, query, userID, eventID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
