package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// ConnID records the connection identifier under the key "conn_id".
func ConnID(id string) slog.Attr {
	return slog.String("conn_id", id)
}

// Room records a room name under the key "room".
func Room(room string) slog.Attr {
	return slog.String("room", room)
}

// Event records the wire event name under the key "event".
func Event(event string) slog.Attr {
	return slog.String("event", event)
}

// TaskID records the queue task identifier under the key "task_id".
// If id is nil, it returns an empty Attr.
func TaskID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("task_id", id)
}

// Role records a role name under the key "role".
// If role is nil, it returns an empty Attr.
func Role(role any) slog.Attr {
	if role == nil {
		return slog.Attr{}
	}
	return slog.Any("role", role)
}

// Component records a subsystem name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
