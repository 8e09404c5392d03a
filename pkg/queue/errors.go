package queue

import "errors"

var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrInvalidPriority is returned when priority is outside valid range
	ErrInvalidPriority = errors.New("priority must be between 0 and 100")

	// ErrHandlerNotFound is returned when no handler is registered for a task
	ErrHandlerNotFound = errors.New("no handler registered for task type")

	// ErrNoHandlers is returned when worker has no handlers registered
	ErrNoHandlers = errors.New("no task handlers registered")

	// ErrTaskAlreadyRegistered is returned when trying to register a duplicate periodic task
	ErrTaskAlreadyRegistered = errors.New("task already registered")

	// ErrSchedulerNotConfigured is returned when scheduler has no tasks
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered tasks")

	// ErrNoTaskToClaim is returned by ClaimTask when nothing is due
	ErrNoTaskToClaim = errors.New("no task to claim")

	// ErrTaskAlreadyExists is returned when a live task with the same ID is stored
	ErrTaskAlreadyExists = errors.New("task already exists")

	// ErrTaskNotFound is returned when a task ID is unknown to the storage
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotProcessing is returned when completing or failing a task that is not claimed
	ErrTaskNotProcessing = errors.New("task is not in processing state")
)
