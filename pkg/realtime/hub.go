package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/storekit/storekit/pkg/logger"
)

// HandlerFunc processes one inbound event. The raw payload is handed over
// undecoded; handlers unmarshal into their own request types. The ack func
// is safe to call exactly once and is a no-op when the client did not
// request an acknowledgement. Handler errors never close the connection.
type HandlerFunc func(ctx context.Context, c *Conn, data json.RawMessage, ack AckFunc)

// RoomEmitter fans out events to the members of one room.
type RoomEmitter interface {
	// Emit sends an event to every member of the room.
	Emit(event string, payload any) error

	// EmitExcept sends an event to every member except one connection,
	// typically the originator.
	EmitExcept(except uuid.UUID, event string, payload any) error
}

// Emitter is the broadcast handle handed to code outside the gateway:
// domain services, the notification worker, HTTP handlers. Hub implements
// it directly; Relay wraps it for multi-instance deployments.
type Emitter interface {
	// Emit sends an event to every connection.
	Emit(event string, payload any) error

	// To returns an emitter scoped to one room.
	To(room string) RoomEmitter
}

// Hub is the connection gateway. It accepts WebSocket upgrades, resolves
// identities, tracks connections and rooms, dispatches inbound events to
// registered handlers, and fans out outbound events.
type Hub struct {
	resolver Resolver
	upgrader websocket.Upgrader
	rooms    *Rooms
	log      *slog.Logger

	mu       sync.RWMutex
	conns    map[uuid.UUID]*Conn
	handlers map[string]HandlerFunc
	closed   bool

	sendBuffer   int
	rateLimit    rate.Limit
	rateBurst    int
	onConnect    []func(*Conn)
	onDisconnect []func(*Conn)
	observer     func(event string, recipients int)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a gateway using the given identity resolver. A nil
// resolver admits every connection as anonymous.
func NewHub(resolver Resolver, opts ...HubOption) *Hub {
	if resolver == nil {
		resolver = AnonymousResolver
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		rooms:      NewRooms(),
		log:        slog.Default(),
		conns:      make(map[uuid.UUID]*Conn),
		handlers:   make(map[string]HandlerFunc),
		sendBuffer: 256,
		rateLimit:  rate.Limit(50),
		rateBurst:  100,
		ctx:        ctx,
		cancel:     cancel,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Handle registers a handler for an event name. Later registrations under
// the same name replace earlier ones. Must be called before Accept.
func (h *Hub) Handle(event string, handler HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[event] = handler
}

// OnConnect registers a hook that runs after a connection is registered
// and joined to its user room. Like Handle, call it before serving traffic.
func (h *Hub) OnConnect(hook func(*Conn)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = append(h.onConnect, hook)
}

// OnDisconnect registers a hook that runs after a connection's rooms are
// cleaned up, before the socket closes.
func (h *Hub) OnDisconnect(hook func(*Conn)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconnect = append(h.onDisconnect, hook)
}

// Rooms returns the room registry for membership queries.
func (h *Hub) Rooms() *Rooms { return h.rooms }

// ConnCount returns the number of live connections.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Accept handles a WebSocket upgrade request. The credential is resolved
// before upgrading: an invalid credential refuses the connection with 401,
// an absent one admits the peer as anonymous. Authenticated connections
// are auto-joined to their personal user room.
func (h *Hub) Accept(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	hubClosed := h.closed
	h.mu.RUnlock()
	if hubClosed {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	identity, err := h.resolver.Resolve(r.Context(), CredentialFromRequest(r))
	if err != nil {
		h.log.Warn("connection refused", logger.Error(err))
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Warn("websocket upgrade failed", logger.Error(err))
		return
	}

	var limiter *rate.Limiter
	if h.rateLimit > 0 {
		limiter = rate.NewLimiter(h.rateLimit, h.rateBurst)
	}
	conn := newConn(ws, identity, h.sendBuffer, limiter)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.close()
		_ = ws.Close()
		return
	}
	h.conns[conn.id] = conn
	h.mu.Unlock()

	if room := identity.UserRoom(); room != "" {
		h.rooms.Join(room, conn.id)
	}

	h.log.Info("connection accepted",
		logger.ConnID(conn.id.String()),
		logger.UserID(identity.ID),
		logger.Role(identity.Role))

	for _, hook := range h.onConnect {
		hook(conn)
	}

	go conn.writePump()
	conn.readPump(h)
}

// Send delivers an event to a single connection by id.
func (h *Hub) Send(connID uuid.UUID, event string, payload any) error {
	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnNotFound, connID)
	}

	if err := conn.Send(event, payload); err != nil {
		h.dropIfStalled(conn, err)
		return err
	}
	h.observe(event, 1)
	return nil
}

// Emit sends an event to every live connection.
func (h *Hub) Emit(event string, payload any) error {
	frame, err := encodeEnvelope(event, payload, "")
	if err != nil {
		return err
	}

	conns := h.snapshot()
	for _, conn := range conns {
		if err := conn.enqueue(frame); err != nil {
			h.dropIfStalled(conn, err)
		}
	}
	h.observe(event, len(conns))
	return nil
}

// To returns an emitter scoped to one room.
func (h *Hub) To(room string) RoomEmitter {
	return roomEmitter{hub: h, room: room}
}

// Disconnect closes a connection after cleaning up its room memberships.
func (h *Hub) Disconnect(connID uuid.UUID, reason string) error {
	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnNotFound, connID)
	}

	h.drop(conn, reason)
	return nil
}

// Close disconnects every connection and stops accepting new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()
	for _, conn := range h.snapshot() {
		h.drop(conn, "server shutting down")
	}
	return nil
}

// drop removes a connection: rooms first, then hooks, then the connection
// record, then the socket. Cleanup precedes discard so disconnect hooks
// still see a consistent registry.
func (h *Hub) drop(conn *Conn, reason string) {
	h.mu.Lock()
	if _, ok := h.conns[conn.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, conn.id)
	h.mu.Unlock()

	h.rooms.Cleanup(conn.id)

	for _, hook := range h.onDisconnect {
		hook(conn)
	}

	conn.close()

	h.log.Info("connection closed",
		logger.ConnID(conn.id.String()),
		logger.UserID(conn.identity.ID),
		slog.String("reason", reason))
}

// dispatch routes one inbound envelope to its handler. Unknown events and
// handler panics answer the ack (when requested) and leave the connection
// open; one connection's failure never reaches another.
func (h *Hub) dispatch(conn *Conn, env Envelope) {
	ack := h.ackFunc(conn, env.Ack)

	h.mu.RLock()
	handler, ok := h.handlers[env.Event]
	h.mu.RUnlock()

	if !ok {
		h.log.Debug("unknown event",
			logger.ConnID(conn.id.String()),
			logger.Event(env.Event))
		ack(AckError(fmt.Errorf("unknown event: %s", env.Event)))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.Error("event handler panicked",
				logger.ConnID(conn.id.String()),
				logger.Event(env.Event),
				slog.Any("panic", r))
			ack(AckError(fmt.Errorf("internal error")))
		}
	}()

	handler(h.ctx, conn, env.Data, ack)
}

// ackFunc builds the single-use acknowledgement reply for an inbound frame.
func (h *Hub) ackFunc(conn *Conn, ackID string) AckFunc {
	if ackID == "" {
		return func(any) {}
	}

	var once sync.Once
	return func(payload any) {
		once.Do(func() {
			if err := conn.sendAck(ackID, payload); err != nil {
				h.dropIfStalled(conn, err)
			}
		})
	}
}

func (h *Hub) snapshot() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]*Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	return conns
}

func (h *Hub) dropIfStalled(conn *Conn, err error) {
	if errors.Is(err, ErrSlowConsumer) {
		h.log.Warn("dropping slow consumer",
			logger.ConnID(conn.id.String()),
			logger.UserID(conn.identity.ID))
		h.drop(conn, "slow consumer")
	}
}

func (h *Hub) observe(event string, recipients int) {
	if h.observer != nil && recipients > 0 {
		h.observer(event, recipients)
	}
}

type roomEmitter struct {
	hub  *Hub
	room string
}

func (e roomEmitter) Emit(event string, payload any) error {
	return e.emit(event, payload, nil)
}

func (e roomEmitter) EmitExcept(except uuid.UUID, event string, payload any) error {
	return e.emit(event, payload, &except)
}

func (e roomEmitter) emit(event string, payload any, except *uuid.UUID) error {
	frame, err := encodeEnvelope(event, payload, "")
	if err != nil {
		return err
	}

	sent := 0
	for _, connID := range e.hub.rooms.MembersOf(e.room) {
		if except != nil && connID == *except {
			continue
		}

		e.hub.mu.RLock()
		conn, ok := e.hub.conns[connID]
		e.hub.mu.RUnlock()
		if !ok {
			continue
		}

		if err := conn.enqueue(frame); err != nil {
			e.hub.dropIfStalled(conn, err)
			continue
		}
		sent++
	}
	e.hub.observe(event, sent)
	return nil
}
