package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/storekit/storekit/pkg/logger"
)

const relayChannelPrefix = "rt:"

// relayFrame is the cross-instance wire format. An empty room means a
// global emit. The instance tag lets subscribers skip their own publishes.
type relayFrame struct {
	Instance string          `json:"instance"`
	Room     string          `json:"room,omitempty"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Relay extends a hub's fan-out across server instances over Redis
// pub/sub. Emits deliver locally first, then publish for the other
// instances; Run re-emits what other instances published. Publish
// failures degrade to local-only delivery and are never fatal.
type Relay struct {
	hub      *Hub
	client   redis.UniversalClient
	instance string
	log      *slog.Logger
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithRelayLogger sets the relay logger.
func WithRelayLogger(log *slog.Logger) RelayOption {
	return func(r *Relay) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRelay creates a relayed emitter over the given hub and Redis client.
func NewRelay(hub *Hub, client redis.UniversalClient, opts ...RelayOption) *Relay {
	r := &Relay{
		hub:      hub,
		client:   client,
		instance: uuid.New().String(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Emit sends an event to every connection on every instance.
func (r *Relay) Emit(event string, payload any) error {
	if err := r.hub.Emit(event, payload); err != nil {
		return err
	}
	r.publish("", event, payload)
	return nil
}

// To returns an emitter scoped to one room across all instances.
func (r *Relay) To(room string) RoomEmitter {
	return relayRoomEmitter{relay: r, room: room}
}

// Run consumes relayed frames from the other instances until the context
// is cancelled. It always returns nil on cancellation so it can run under
// an error group next to the HTTP server.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, relayChannelPrefix+"*")
	defer pubsub.Close()

	r.log.Info("relay subscribed", slog.String("instance", r.instance))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("relay subscription closed")
			}
			r.receive(msg.Payload)
		}
	}
}

func (r *Relay) publish(room, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Warn("relay cannot encode payload",
			logger.Event(event),
			logger.Error(err))
		return
	}

	frame, err := json.Marshal(relayFrame{
		Instance: r.instance,
		Room:     room,
		Event:    event,
		Data:     data,
	})
	if err != nil {
		r.log.Warn("relay cannot encode frame", logger.Error(err))
		return
	}

	if err := r.client.Publish(context.Background(), relayChannelPrefix+room, frame).Err(); err != nil {
		r.log.Warn("relay publish failed, delivered locally only",
			logger.Event(event),
			logger.Room(room),
			logger.Error(err))
	}
}

func (r *Relay) receive(payload string) {
	var frame relayFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		r.log.Warn("relay received malformed frame", logger.Error(err))
		return
	}
	if frame.Instance == r.instance {
		return
	}

	var err error
	if frame.Room == "" {
		err = r.hub.Emit(frame.Event, frame.Data)
	} else {
		err = r.hub.To(frame.Room).Emit(frame.Event, frame.Data)
	}
	if err != nil {
		r.log.Warn("relay local re-emit failed",
			logger.Event(frame.Event),
			logger.Room(frame.Room),
			logger.Error(err))
	}
}

type relayRoomEmitter struct {
	relay *Relay
	room  string
}

func (e relayRoomEmitter) Emit(event string, payload any) error {
	if err := e.relay.hub.To(e.room).Emit(event, payload); err != nil {
		return err
	}
	e.relay.publish(e.room, event, payload)
	return nil
}

// EmitExcept excludes a connection on this instance only; the excluded id
// has no meaning to the other instances.
func (e relayRoomEmitter) EmitExcept(except uuid.UUID, event string, payload any) error {
	if err := e.relay.hub.To(e.room).EmitExcept(except, event, payload); err != nil {
		return err
	}
	e.relay.publish(e.room, event, payload)
	return nil
}
