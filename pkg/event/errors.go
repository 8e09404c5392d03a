package event

import "errors"

var (
	// ErrNotFound is returned when an event or subscription does not exist.
	ErrNotFound = errors.New("event: not found")

	// ErrInvalidSelector is returned when a selector has an unknown kind or empty value.
	ErrInvalidSelector = errors.New("event: invalid selector")

	// ErrStorage wraps failures of the backing store.
	ErrStorage = errors.New("event: storage failure")
)
