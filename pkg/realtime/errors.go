package realtime

import "errors"

var (
	// ErrAuthFailed is returned by resolvers when a credential is present
	// but invalid. The gateway refuses the connection.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrConnNotFound is returned when addressing a connection id that is
	// not registered with the hub.
	ErrConnNotFound = errors.New("connection not found")

	// ErrConnClosed is returned when writing to a connection that has been
	// closed or whose outbound buffer overflowed.
	ErrConnClosed = errors.New("connection closed")

	// ErrHubClosed is returned for operations on a shut-down hub.
	ErrHubClosed = errors.New("hub closed")

	// ErrSlowConsumer is returned when a connection's outbound buffer is
	// full. The hub responds by dropping the connection.
	ErrSlowConsumer = errors.New("outbound buffer full")

	// ErrRateLimited signals that an inbound event was dropped because the
	// connection exceeded its event rate budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)
