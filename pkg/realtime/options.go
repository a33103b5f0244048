package realtime

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the gateway logger.
func WithLogger(log *slog.Logger) HubOption {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// WithSendBuffer sets the per-connection outbound buffer size. A
// connection whose buffer fills is dropped as a slow consumer.
func WithSendBuffer(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.sendBuffer = size
		}
	}
}

// WithRateLimit bounds inbound events per connection. Events over the
// budget are answered with an error frame and discarded. A zero limit
// disables limiting.
func WithRateLimit(limit rate.Limit, burst int) HubOption {
	return func(h *Hub) {
		h.rateLimit = limit
		h.rateBurst = burst
	}
}

// WithCheckOrigin sets the upgrade origin policy. The default applies
// gorilla's same-origin check.
func WithCheckOrigin(check func(r *http.Request) bool) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = check
	}
}

// WithConnectHook runs a hook after a connection is registered and joined
// to its user room, before its pumps start.
func WithConnectHook(hook func(*Conn)) HubOption {
	return func(h *Hub) {
		if hook != nil {
			h.onConnect = append(h.onConnect, hook)
		}
	}
}

// WithDisconnectHook runs a hook after a connection's rooms are cleaned up,
// before the socket closes.
func WithDisconnectHook(hook func(*Conn)) HubOption {
	return func(h *Hub) {
		if hook != nil {
			h.onDisconnect = append(h.onDisconnect, hook)
		}
	}
}

// WithBroadcastObserver reports every outbound fan-out with its recipient
// count, for metrics.
func WithBroadcastObserver(observer func(event string, recipients int)) HubOption {
	return func(h *Hub) {
		h.observer = observer
	}
}
