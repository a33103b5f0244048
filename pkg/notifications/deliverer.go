package notifications

import (
	"context"
	"fmt"

	"github.com/storekit/storekit/pkg/realtime"
)

// EventReceived is the wire event carrying a delivered notification to the
// recipient's personal room.
const EventReceived = "notification:received"

// Deliverer handles real-time notification delivery.
type Deliverer interface {
	// Deliver sends a notification to its recipient.
	Deliver(ctx context.Context, notif Notification) error
}

// EmitterDeliverer delivers notifications through the gateway's broadcast
// handle: the notification is emitted to the recipient's user room, so
// every live connection of that user receives it.
type EmitterDeliverer struct {
	emitter realtime.Emitter
}

// NewEmitterDeliverer creates a deliverer over a gateway emitter.
func NewEmitterDeliverer(emitter realtime.Emitter) *EmitterDeliverer {
	return &EmitterDeliverer{emitter: emitter}
}

// receivedPayload is the wire shape of EventReceived. Delivery always
// follows persistence, hence the saved flag.
type receivedPayload struct {
	Notification
	Saved bool `json:"saved"`
}

func (d *EmitterDeliverer) Deliver(ctx context.Context, notif Notification) error {
	payload := receivedPayload{Notification: notif, Saved: true}
	if err := d.emitter.To(realtime.UserRoom(notif.UserID)).Emit(EventReceived, payload); err != nil {
		return fmt.Errorf("failed to emit notification %s: %w", notif.ID, err)
	}
	return nil
}

// NoOpDeliverer is a deliverer that does nothing. Used when no gateway is
// wired, and in tests.
type NoOpDeliverer struct{}

func (NoOpDeliverer) Deliver(ctx context.Context, notif Notification) error { return nil }
