package domain

import (
	"context"
	"time"
)

// ReminderNotifier is the outbound transport for reminder notifications
// (infrastructure port). A non-nil error means the attendee was not notified.
type ReminderNotifier interface {
	NotifyEventReminder(ctx context.Context, event *Event, user *User) error
}

// ScanResult summarizes one reminder scan.
type ScanResult struct {
	Events   int // events found inside the look-ahead window
	Notified int // reminders sent and committed
	Failed   int // notify attempts that failed and stay eligible
}

// ReminderService runs one reminder scan: select eligible (event, attendee)
// pairs inside the look-ahead window, notify each, and commit the reminder
// flag per pair.
type ReminderService interface {
	RunScan(ctx context.Context, now time.Time) (*ScanResult, error)
}
