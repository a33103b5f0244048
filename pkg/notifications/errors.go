package notifications

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification is not found.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrInvalidNotification is returned when a submitted notification is
	// missing required fields or carries unknown enum values.
	ErrInvalidNotification = errors.New("invalid notification")

	// ErrStorageNil is returned when a service is constructed without storage.
	ErrStorageNil = errors.New("storage cannot be nil")
)
