package notifications

import (
	"fmt"
	"time"
)

// Type represents the notification type/severity.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Valid reports whether the type is one of the known values.
func (t Type) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	}
	return false
}

// Priority represents the notification priority level.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether the priority is one of the known values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Notification is the core domain model. The ID doubles as the dedup key:
// storage saves are upserts on it, so executing the same delivery job
// twice persists one record.
type Notification struct {
	ID        string         `json:"id" bson:"_id"`
	UserID    string         `json:"user_id" bson:"user_id"`
	Type      Type           `json:"type" bson:"type"`
	Priority  Priority       `json:"priority" bson:"priority"`
	Title     string         `json:"title" bson:"title"`
	Message   string         `json:"message" bson:"message"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Read      bool           `json:"read" bson:"read"`
	ReadAt    *time.Time     `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// Validate checks the fields a caller must provide. ID, timestamps, and
// defaults are filled in by the service, not validated here.
func (n *Notification) Validate() error {
	if n.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidNotification)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidNotification)
	}
	if n.Message == "" {
		return fmt.Errorf("%w: missing message", ErrInvalidNotification)
	}
	if n.Type != "" && !n.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, n.Type)
	}
	if n.Priority != "" && !n.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidNotification, n.Priority)
	}
	return nil
}

// MarkAsRead marks the notification as read with the current timestamp.
func (n *Notification) MarkAsRead() {
	n.Read = true
	now := time.Now()
	n.ReadAt = &now
}
