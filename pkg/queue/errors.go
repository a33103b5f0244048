package queue

import "errors"

var (
	// ErrRepositoryNil is returned when a nil repository is provided.
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload.
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrInvalidPriority is returned when priority is outside valid range.
	ErrInvalidPriority = errors.New("priority must be between 0 and 100")

	// ErrQueueUnavailable is returned when no queue backend is wired or the
	// backend rejects the submission. Callers are expected to surface this
	// to the submitter and may fall back to a synchronous path.
	ErrQueueUnavailable = errors.New("queue backend unavailable")

	// ErrNoTaskToClaim signals an empty queue; it is a normal condition,
	// not an error the worker reports.
	ErrNoTaskToClaim = errors.New("no task available to claim")

	// ErrTaskNotFound is returned when a task id does not exist in storage.
	ErrTaskNotFound = errors.New("task not found")

	// ErrHandlerNotFound is returned when no handler is registered for a task.
	ErrHandlerNotFound = errors.New("no handler registered for task type")

	// ErrNoHandlers is returned when a worker is started with no handlers.
	ErrNoHandlers = errors.New("no task handlers registered")
)
