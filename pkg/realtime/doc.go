// Package realtime provides the WebSocket connection gateway: connection
// lifecycle, identity resolution, room membership, and event fan-out.
//
// The package is domain-agnostic. Domain behavior is attached through the
// event mux (Hub.Handle) and through connect/disconnect hooks; persistence
// and authorization decisions live with the handlers, not here.
//
// # Architecture
//
//   - Resolver: maps a transport credential to an Identity
//   - Conn: one WebSocket connection with buffered outbound delivery
//   - Rooms: named connection groups with reverse membership tracking
//   - Hub: accepts connections, dispatches inbound events, fans out
//     outbound events to connections, rooms, or everyone
//   - Relay: optional cross-instance fan-out over Redis pub/sub
//
// # Wire format
//
// Frames are JSON envelopes:
//
//	{"event": "order:create", "data": {...}, "ack": "a1"}
//
// The ack field is optional. When present on an inbound frame, the handler
// may reply once with an ack frame echoing the same id:
//
//	{"event": "ack", "ack": "a1", "data": {"ok": true}}
//
// # Basic usage
//
//	hub := realtime.NewHub(resolver)
//	hub.Handle("echo", func(ctx context.Context, c *realtime.Conn, data json.RawMessage, ack realtime.AckFunc) {
//	    ack(map[string]any{"ok": true})
//	})
//	http.Handle("/ws", http.HandlerFunc(hub.Accept))
//
// Emitting from outside a handler goes through the Emitter interface, which
// Hub implements:
//
//	hub.To("user:42").Emit("notification:received", notif)
package realtime
