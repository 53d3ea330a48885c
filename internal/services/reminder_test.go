package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhorizon/internal/domain"
)

const testWindow = 30 * time.Minute

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func registered(repo *fakeRegRepo, userID, eventID string) {
	repo.addUser(&domain.User{ID: userID, Username: userID, Email: userID + "@example.com"})
	repo.rows[pairKey{userID, eventID}] = &domain.Registration{
		UserID:    userID,
		EventID:   eventID,
		CreatedAt: time.Now(),
	}
}

func TestRunScan_NotifiesPendingPairsAndSetsFlag(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	eventRepo := newFakeEventRepo()
	regRepo := newFakeRegRepo()
	notifier := newFakeNotifier()

	event := eventStartingAt("ev-1", "Standup", now.Add(10*time.Minute))
	eventRepo.byID[event.ID] = event
	registered(regRepo, "alice", "ev-1")
	registered(regRepo, "bob", "ev-1")
	regRepo.rows[pairKey{"bob", "ev-1"}].ReminderSent = true

	svc := NewReminderService(eventRepo, regRepo, notifier, testWindow, time.Local, testLogger())
	res, err := svc.RunScan(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Events)
	assert.Equal(t, 1, res.Notified)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 1, notifier.callCount("alice", "ev-1"))
	assert.Equal(t, 0, notifier.callCount("bob", "ev-1"))
	assert.True(t, regRepo.rows[pairKey{"alice", "ev-1"}].ReminderSent)
}

func TestRunScan_WindowBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		offset   time.Duration
		eligible bool
	}{
		{"event already started", -time.Second, false},
		{"event starting right now", 0, true},
		{"event just inside window", 10 * time.Minute, true},
		{"event exactly at window edge", testWindow, true},
		{"event one second past window", testWindow + time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().Truncate(time.Second)

			eventRepo := newFakeEventRepo()
			regRepo := newFakeRegRepo()
			notifier := newFakeNotifier()

			event := eventStartingAt("ev-1", "Boundary", now.Add(tt.offset))
			eventRepo.byID[event.ID] = event
			registered(regRepo, "alice", "ev-1")

			svc := NewReminderService(eventRepo, regRepo, notifier, testWindow, time.Local, testLogger())
			res, err := svc.RunScan(ctx, now)
			require.NoError(t, err)

			if tt.eligible {
				assert.Equal(t, 1, res.Notified)
				assert.Equal(t, 1, notifier.callCount("alice", "ev-1"))
				assert.True(t, regRepo.rows[pairKey{"alice", "ev-1"}].ReminderSent)
			} else {
				assert.Equal(t, 0, res.Notified)
				assert.Empty(t, notifier.calls)
				assert.False(t, regRepo.rows[pairKey{"alice", "ev-1"}].ReminderSent)
			}
		})
	}
}

// The event start columns are civil values in the service zone, so the window
// bounds must be sent in that zone; bounds in the process-local zone would
// shift the window by the zone offset.
func TestRunScan_WindowBoundsInServiceZone(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)
	loc := time.FixedZone("UTC+9", 9*60*60)

	eventRepo := newFakeEventRepo()
	regRepo := newFakeRegRepo()
	notifier := newFakeNotifier()

	event := eventStartingAt("ev-1", "Offset", now.Add(10*time.Minute))
	eventRepo.byID[event.ID] = event
	registered(regRepo, "alice", "ev-1")

	svc := NewReminderService(eventRepo, regRepo, notifier, testWindow, loc, testLogger())
	res, err := svc.RunScan(ctx, now)
	require.NoError(t, err)

	assert.Same(t, loc, eventRepo.fromArg.Location())
	assert.Same(t, loc, eventRepo.toArg.Location())
	// Converting the bounds never moves the instants they denote.
	assert.True(t, eventRepo.fromArg.Equal(now))
	assert.True(t, eventRepo.toArg.Equal(now.Add(testWindow)))
	assert.Equal(t, 1, res.Notified)
}

func TestRunScan_RepeatedScansNeverRenotify(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	eventRepo := newFakeEventRepo()
	regRepo := newFakeRegRepo()
	notifier := newFakeNotifier()

	event := eventStartingAt("ev-1", "Workshop", now.Add(5*time.Minute))
	eventRepo.byID[event.ID] = event
	registered(regRepo, "alice", "ev-1")

	svc := NewReminderService(eventRepo, regRepo, notifier, testWindow, time.Local, testLogger())

	for i := 0; i < 3; i++ {
		_, err := svc.RunScan(ctx, now)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, notifier.callCount("alice", "ev-1"))
}

func TestRunScan_NotifyFailureLeavesPairEligible(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	eventRepo := newFakeEventRepo()
	regRepo := newFakeRegRepo()
	notifier := newFakeNotifier()

	event := eventStartingAt("ev-1", "Meetup", now.Add(15*time.Minute))
	eventRepo.byID[event.ID] = event
	registered(regRepo, "alice", "ev-1")
	registered(regRepo, "bob", "ev-1")
	notifier.failFor[pairKey{"alice", "ev-1"}] = errors.New("smtp timeout")

	svc := NewReminderService(eventRepo, regRepo, notifier, testWindow, time.Local, testLogger())

	res, err := svc.RunScan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Notified) // bob still got his reminder
	assert.False(t, regRepo.rows[pairKey{"alice", "ev-1"}].ReminderSent)
	assert.True(t, regRepo.rows[pairKey{"bob", "ev-1"}].ReminderSent)

	// Transport recovers: the next scan retries only the failed pair.
	delete(notifier.failFor, pairKey{"alice", "ev-1"})
	res, err = svc.RunScan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notified)
	assert.Equal(t, 2, notifier.callCount("alice", "ev-1"))
	assert.Equal(t, 1, notifier.callCount("bob", "ev-1"))
	assert.True(t, regRepo.rows[pairKey{"alice", "ev-1"}].ReminderSent)
}

func TestRunScan_StoreReadErrorAbortsScan(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	eventRepo := newFakeEventRepo()
	regRepo := newFakeRegRepo()
	notifier := newFakeNotifier()

	event := eventStartingAt("ev-1", "Talk", now.Add(5*time.Minute))
	eventRepo.byID[event.ID] = event
	registered(regRepo, "alice", "ev-1")
	regRepo.listErr = errors.New("connection refused")

	svc := NewReminderService(eventRepo, regRepo, notifier, testWindow, time.Local, testLogger())
	_, err := svc.RunScan(ctx, now)
	require.Error(t, err)
	assert.Empty(t, notifier.calls)

	// The next scan proceeds normally once the store recovers.
	regRepo.listErr = nil
	res, err := svc.RunScan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notified)
}

func TestRunScan_MarkFailureAbortsRemainder(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	eventRepo := newFakeEventRepo()
	regRepo := newFakeRegRepo()
	notifier := newFakeNotifier()

	event := eventStartingAt("ev-1", "Dinner", now.Add(20*time.Minute))
	eventRepo.byID[event.ID] = event
	registered(regRepo, "alice", "ev-1")
	registered(regRepo, "bob", "ev-1")
	regRepo.markErr = errors.New("write timeout")

	svc := NewReminderService(eventRepo, regRepo, notifier, testWindow, time.Local, testLogger())
	_, err := svc.RunScan(ctx, now)
	require.Error(t, err)

	// The first pair was notified but its commit failed; the scan stopped
	// before touching the second pair.
	assert.Len(t, notifier.calls, 1)
	assert.False(t, regRepo.rows[pairKey{"alice", "ev-1"}].ReminderSent)
	assert.False(t, regRepo.rows[pairKey{"bob", "ev-1"}].ReminderSent)
}

func TestRunScan_MarkOnlyTouchesTargetPair(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	eventRepo := newFakeEventRepo()
	regRepo := newFakeRegRepo()
	notifier := newFakeNotifier()

	inWindow := eventStartingAt("ev-1", "Soon", now.Add(10*time.Minute))
	farOut := eventStartingAt("ev-2", "Later", now.Add(6*time.Hour))
	eventRepo.byID[inWindow.ID] = inWindow
	eventRepo.byID[farOut.ID] = farOut

	registered(regRepo, "alice", "ev-1")
	registered(regRepo, "alice", "ev-2")
	registered(regRepo, "bob", "ev-1")

	svc := NewReminderService(eventRepo, regRepo, notifier, testWindow, time.Local, testLogger())
	res, err := svc.RunScan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Notified)

	// Flags for the in-window event's pairs flipped; alice's registration for
	// the far-out event is untouched.
	assert.True(t, regRepo.rows[pairKey{"alice", "ev-1"}].ReminderSent)
	assert.True(t, regRepo.rows[pairKey{"bob", "ev-1"}].ReminderSent)
	assert.False(t, regRepo.rows[pairKey{"alice", "ev-2"}].ReminderSent)
	assert.Equal(t, 0, notifier.callCount("alice", "ev-2"))
}

func TestRunScan_ReregistrationEligibleForFreshReminder(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	eventRepo := newFakeEventRepo()
	regRepo := newFakeRegRepo()
	notifier := newFakeNotifier()

	event := eventStartingAt("ev-1", "Concert", now.Add(10*time.Minute))
	eventRepo.byID[event.ID] = event
	registered(regRepo, "alice", "ev-1")

	svc := NewReminderService(eventRepo, regRepo, notifier, testWindow, time.Local, testLogger())

	_, err := svc.RunScan(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, notifier.callCount("alice", "ev-1"))

	// Unregister deletes the row; re-registering creates a fresh one with the
	// flag back at false.
	require.NoError(t, regRepo.Delete(ctx, "alice", "ev-1"))
	registered(regRepo, "alice", "ev-1")

	res, err := svc.RunScan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notified)
	assert.Equal(t, 2, notifier.callCount("alice", "ev-1"))
}

func TestRunScan_RegistrationGoneBeforeCommitIsSkipped(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	eventRepo := newFakeEventRepo()
	regRepo := newFakeRegRepo()
	notifier := newFakeNotifier()

	event := eventStartingAt("ev-1", "Picnic", now.Add(10*time.Minute))
	eventRepo.byID[event.ID] = event
	registered(regRepo, "alice", "ev-1")
	registered(regRepo, "bob", "ev-1")

	// alice unregisters between selection and flag commit.
	notifier.onNotify = func(e *domain.Event, u *domain.User) {
		if u.ID == "alice" {
			delete(regRepo.rows, pairKey{"alice", "ev-1"})
		}
	}

	svc := NewReminderService(eventRepo, regRepo, notifier, testWindow, time.Local, testLogger())
	res, err := svc.RunScan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notified)
	assert.True(t, regRepo.rows[pairKey{"bob", "ev-1"}].ReminderSent)
}

func TestRunScan_EmptyWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	svc := NewReminderService(newFakeEventRepo(), newFakeRegRepo(), newFakeNotifier(), testWindow, time.Local, testLogger())
	res, err := svc.RunScan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, &domain.ScanResult{}, res)
}
