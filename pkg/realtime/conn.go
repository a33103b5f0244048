package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Ping period, must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size. Domain payloads are small JSON objects.
	maxMessageSize = 32 * 1024
)

// socket is the subset of *websocket.Conn the gateway uses. Tests substitute
// in-memory implementations.
type socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Conn is a single gateway connection. Outbound frames go through a
// buffered channel so emitters never block on a peer; the write pump is the
// only goroutine touching the socket for writes.
type Conn struct {
	id          uuid.UUID
	identity    Identity
	sock        socket
	send        chan []byte
	limiter     *rate.Limiter
	connectedAt time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(sock socket, identity Identity, sendBuffer int, limiter *rate.Limiter) *Conn {
	return &Conn{
		id:          uuid.New(),
		identity:    identity,
		sock:        sock,
		send:        make(chan []byte, sendBuffer),
		limiter:     limiter,
		connectedAt: time.Now(),
		closed:      make(chan struct{}),
	}
}

// ID returns the unique connection id assigned at accept time.
func (c *Conn) ID() uuid.UUID { return c.id }

// Identity returns the identity resolved during the handshake.
func (c *Conn) Identity() Identity { return c.identity }

// ConnectedAt returns when the connection was accepted.
func (c *Conn) ConnectedAt() time.Time { return c.connectedAt }

// Send queues an event frame for delivery to this connection.
func (c *Conn) Send(event string, payload any) error {
	frame, err := encodeEnvelope(event, payload, "")
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

func (c *Conn) sendAck(ackID string, payload any) error {
	frame, err := encodeEnvelope(AckEvent, payload, ackID)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

// enqueue hands a frame to the write pump without blocking. A full buffer
// means the peer stopped draining; the caller drops the connection.
func (c *Conn) enqueue(frame []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.closed:
		return ErrConnClosed
	default:
		return ErrSlowConsumer
	}
}

// close signals both pumps to stop. Idempotent.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// readPump reads frames from the peer and dispatches them through the hub.
// It owns the read side of the socket and runs until the peer goes away.
func (c *Conn) readPump(h *Hub) {
	defer h.drop(c, "connection closed")

	c.sock.SetReadLimit(maxMessageSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.sock.ReadMessage()
		if err != nil {
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			_ = c.Send("error", AckError(ErrRateLimited))
			continue
		}

		env, err := decodeEnvelope(frame)
		if err != nil {
			_ = c.Send("error", AckError(err))
			continue
		}

		h.dispatch(c, env)
	}
}

// writePump serializes all socket writes: queued frames, liveness pings,
// and the final close frame.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.sock.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.closed:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.sock.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
