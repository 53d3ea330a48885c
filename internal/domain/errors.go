package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrDuplicateEmail    = errors.New("email already in use")
	ErrDuplicateUsername = errors.New("username already in use")
	ErrEventInPast       = errors.New("event has already started")
	ErrAlreadyRegistered = errors.New("already registered for event")
	ErrNotRegistered     = errors.New("not registered for event")
	ErrInvalidSort       = errors.New("invalid sort key")
	ErrScanInProgress    = errors.New("reminder scan already in progress")
)
