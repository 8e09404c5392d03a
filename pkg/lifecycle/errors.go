package lifecycle

import "errors"

var (
	// ErrNotActive is returned for signals and snapshots of an event without a running coordinator.
	ErrNotActive = errors.New("lifecycle: coordinator is not active")

	// ErrAlreadyRunning is returned when a coordinator for the event already runs here or holds the lease elsewhere.
	ErrAlreadyRunning = errors.New("lifecycle: coordinator already running")

	// ErrInvalidSignal wraps validator.ValidationErrors for a malformed signal.
	ErrInvalidSignal = errors.New("lifecycle: invalid signal")

	// ErrRateLimited is returned when manual notifications for an event exceed the configured rate.
	ErrRateLimited = errors.New("lifecycle: too many manual notifications")

	// ErrStateNotFound is returned by state stores for an unknown event.
	ErrStateNotFound = errors.New("lifecycle: state not found")

	// ErrShuttingDown is returned by Start after Shutdown was called.
	ErrShuttingDown = errors.New("lifecycle: registry is shutting down")
)
