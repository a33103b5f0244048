package realtime

import (
	"log/slog"

	"github.com/storekit/storekit/pkg/notifications"
	gw "github.com/storekit/storekit/pkg/realtime"
)

// Config holds the realtime module settings.
type Config struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}

// Deps is everything the module's handlers need. The emitter is injected
// rather than reached for globally so socket-originated and REST-originated
// publishes share one handle.
type Deps struct {
	Emitter       gw.Emitter
	Orders        OrderStore
	Products      ProductStore
	Notifications *notifications.Service
	LastSeen      *LastSeen // optional; nil disables last-seen stamping
	Logger        *slog.Logger
}

// Register attaches all domain event handlers and presence hooks to the
// gateway.
func Register(hub *gw.Hub, deps Deps) {
	NewOrderHandlers(deps.Orders, deps.Products, deps.Emitter, deps.Logger).Register(hub)
	NewNotifyHandlers(deps.Notifications, deps.Logger).Register(hub)

	presence := NewPresenceHandlers(deps.Emitter, deps.Logger)
	presence.Register(hub)
	hub.OnConnect(presence.OnConnect)
	hub.OnDisconnect(presence.OnDisconnect)

	if deps.LastSeen != nil {
		hook := deps.LastSeen.Hook()
		hub.OnConnect(hook)
		hub.OnDisconnect(hook)
	}
}
