package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventhorizon/internal/domain"
	"eventhorizon/internal/observability/metrics"
)

type reminderService struct {
	eventRepo domain.EventRepository
	regRepo   domain.RegistrationRepository
	notifier  domain.ReminderNotifier
	window    time.Duration
	loc       *time.Location
	logger    *slog.Logger
}

// NewReminderService creates the reminder scan pipeline. window is the
// look-ahead duration: registrations for events starting within [now, now+window]
// are eligible. loc is the service-local zone event dates and times are
// interpreted in.
func NewReminderService(
	eventRepo domain.EventRepository,
	regRepo domain.RegistrationRepository,
	notifier domain.ReminderNotifier,
	window time.Duration,
	loc *time.Location,
	logger *slog.Logger,
) domain.ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &reminderService{
		eventRepo: eventRepo,
		regRepo:   regRepo,
		notifier:  notifier,
		window:    window,
		loc:       loc,
		logger:    logger,
	}
}

// RunScan executes one scan. now must be the wall-clock instant at scan time;
// the window is re-evaluated from it on every invocation, so an event that
// slipped into the past since the previous scan is never selected again.
//
// Per pair the ordering is notify-then-commit: the reminder flag is only set
// after the notifier reports success. A failed notify leaves the pair eligible
// for the next scan; a failed flag commit means the pair may be notified once
// more next scan, which is the accepted at-least-once tradeoff.
func (s *reminderService) RunScan(ctx context.Context, now time.Time) (*domain.ScanResult, error) {
	res := &domain.ScanResult{}

	// Event start columns hold civil time in the service zone, and the driver
	// sends a timestamp as civil text in the value's own location. The window
	// bounds must therefore be converted to the service zone before they cross
	// the wire, or the comparison silently happens in the process-local zone.
	from := now.In(s.loc)
	events, err := s.eventRepo.ListStartingBetween(ctx, from, from.Add(s.window))
	if err != nil {
		return res, fmt.Errorf("list events in window: %w", err)
	}
	res.Events = len(events)

	for _, event := range events {
		pairs, err := s.regRepo.ListUnreminded(ctx, event.ID)
		if err != nil {
			return res, fmt.Errorf("list unreminded registrations for event %s: %w", event.ID, err)
		}

		for _, pair := range pairs {
			if err := s.notifier.NotifyEventReminder(ctx, event, pair.User); err != nil {
				// Transient transport failure: the flag stays false and the
				// pair is retried on the next scan.
				s.logger.WarnContext(ctx, "reminder notify failed",
					"event_id", event.ID, "user_id", pair.User.ID, "err", err)
				metrics.ReminderSendFailuresTotal.Inc()
				res.Failed++
				continue
			}

			if err := s.regRepo.MarkReminderSent(ctx, pair.Registration.UserID, event.ID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					// The attendee unregistered between selection and commit;
					// nothing left to flag.
					s.logger.InfoContext(ctx, "registration gone before reminder flag commit",
						"event_id", event.ID, "user_id", pair.User.ID)
					continue
				}
				// Store write failure aborts the remainder of the scan.
				// Flags already committed stay committed.
				return res, fmt.Errorf("mark reminder sent (user=%s, event=%s): %w",
					pair.Registration.UserID, event.ID, err)
			}

			metrics.RemindersSentTotal.Inc()
			res.Notified++
			s.logger.InfoContext(ctx, "reminder sent",
				"event_id", event.ID, "event_title", event.Title, "user_id", pair.User.ID)
		}
	}

	return res, nil
}
