package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/storekit/storekit/pkg/logger"
	gw "github.com/storekit/storekit/pkg/realtime"
)

// Presence events.
const (
	EventPresenceUpdate = "presence:update"
	EventTyping         = "typing"
	EventJoined         = "joined"
	EventLeft           = "left"
)

// PresenceHandlers announces online/offline transitions, forwards typing
// indicators, and serves explicit room membership requests.
type PresenceHandlers struct {
	emitter gw.Emitter
	log     *slog.Logger
}

// NewPresenceHandlers creates the presence event handlers.
func NewPresenceHandlers(emitter gw.Emitter, log *slog.Logger) *PresenceHandlers {
	if log == nil {
		log = slog.Default()
	}
	return &PresenceHandlers{emitter: emitter, log: log}
}

// Register attaches the handlers to the gateway.
func (h *PresenceHandlers) Register(hub *gw.Hub) {
	hub.Handle("joinRoom", h.joinRoom(hub))
	hub.Handle("leaveRoom", h.leaveRoom(hub))
	hub.Handle(EventTyping, h.typing)
}

// OnConnect is the gateway connect hook: authenticated arrivals are
// announced to everyone.
func (h *PresenceHandlers) OnConnect(c *gw.Conn) {
	h.announce(c, "online")
}

// OnDisconnect is the gateway disconnect hook.
func (h *PresenceHandlers) OnDisconnect(c *gw.Conn) {
	h.announce(c, "offline")
}

func (h *PresenceHandlers) announce(c *gw.Conn, status string) {
	identity := c.Identity()
	if identity.IsAnonymous() {
		return
	}

	payload := map[string]any{
		"userId": identity.ID,
		"status": status,
		"at":     time.Now(),
	}
	if err := h.emitter.Emit(EventPresenceUpdate, payload); err != nil {
		h.log.Warn("failed to emit presence update",
			logger.UserID(identity.ID),
			logger.Error(err))
	}
}

// roomRequest accepts both a bare string payload and a {room} object.
type roomRequest struct {
	Room string `json:"room"`
}

func decodeRoom(data json.RawMessage) (string, error) {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if name == "" {
			return "", fmt.Errorf("%w: missing room name", ErrValidation)
		}
		return name, nil
	}

	var req roomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if req.Room == "" {
		return "", fmt.Errorf("%w: missing room name", ErrValidation)
	}
	return req.Room, nil
}

func (h *PresenceHandlers) joinRoom(hub *gw.Hub) gw.HandlerFunc {
	return func(ctx context.Context, c *gw.Conn, data json.RawMessage, ack gw.AckFunc) {
		room, err := decodeRoom(data)
		if err != nil {
			ack(gw.AckError(err))
			return
		}

		// The admin room is role-gated; every other name is caller-chosen.
		if room == gw.AdminRoom && !c.Identity().IsAdmin() {
			ack(gw.AckError(ErrUnauthorized))
			return
		}

		hub.Rooms().Join(room, c.ID())
		_ = c.Send(EventJoined, room)
		ack(gw.AckOK(map[string]any{"room": room}))

		h.log.Debug("room joined",
			logger.ConnID(c.ID().String()),
			logger.Room(room))
	}
}

func (h *PresenceHandlers) leaveRoom(hub *gw.Hub) gw.HandlerFunc {
	return func(ctx context.Context, c *gw.Conn, data json.RawMessage, ack gw.AckFunc) {
		room, err := decodeRoom(data)
		if err != nil {
			ack(gw.AckError(err))
			return
		}

		// Leaving a room never joined is a no-op, not an error.
		hub.Rooms().Leave(room, c.ID())
		_ = c.Send(EventLeft, room)
		ack(gw.AckOK(map[string]any{"room": room}))
	}
}

type typingRequest struct {
	Room     string `json:"room"`
	ToUserID string `json:"toUserId"`
}

// typing forwards a typing indicator to a room or directly to a user,
// excluding the typist's own connection.
func (h *PresenceHandlers) typing(ctx context.Context, c *gw.Conn, data json.RawMessage, ack gw.AckFunc) {
	identity := c.Identity()
	if identity.IsAnonymous() {
		ack(gw.AckError(ErrUnauthorized))
		return
	}

	var req typingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ack(gw.AckError(fmt.Errorf("%w: %w", ErrValidation, err)))
		return
	}

	var room string
	switch {
	case req.Room != "":
		room = req.Room
	case req.ToUserID != "":
		room = gw.UserRoom(req.ToUserID)
	default:
		ack(gw.AckError(fmt.Errorf("%w: need room or toUserId", ErrValidation)))
		return
	}

	payload := map[string]any{"userId": identity.ID, "at": time.Now()}
	if err := h.emitter.To(room).EmitExcept(c.ID(), EventTyping, payload); err != nil {
		h.log.Warn("failed to forward typing event",
			logger.Room(room),
			logger.Error(err))
	}
	ack(gw.AckOK())
}
