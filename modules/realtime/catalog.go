package realtime

import (
	"log/slog"

	"github.com/storekit/storekit/pkg/logger"
	gw "github.com/storekit/storekit/pkg/realtime"
)

// Catalog events.
const (
	EventProductCreated      = "product:created"
	EventProductUpdated      = "product:updated"
	EventProductDeleted      = "product:deleted"
	EventProductStockUpdated = "product:stockUpdated"
)

// CatalogBroadcaster fans product changes out to interested connections. It
// has no socket-originated mutations: catalog writes come from the REST
// layer, which calls these methods after persisting.
type CatalogBroadcaster struct {
	emitter gw.Emitter
	log     *slog.Logger
}

// NewCatalogBroadcaster creates the product event broadcaster.
func NewCatalogBroadcaster(emitter gw.Emitter, log *slog.Logger) *CatalogBroadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogBroadcaster{emitter: emitter, log: log}
}

// Created announces a new product to everyone and to the admin room.
func (b *CatalogBroadcaster) Created(product *Product) {
	b.emitGlobal(EventProductCreated, product)
}

// Updated announces a product change globally and to the product's own room.
func (b *CatalogBroadcaster) Updated(product *Product) {
	if err := b.emitter.To(gw.ProductRoom(product.ID)).Emit(EventProductUpdated, product); err != nil {
		b.log.Warn("failed to emit product update to room",
			logger.Room(gw.ProductRoom(product.ID)),
			logger.Error(err))
	}
	b.emitGlobal(EventProductUpdated, product)
}

// Deleted announces a removal. Only the id is broadcast; the record is gone.
func (b *CatalogBroadcaster) Deleted(productID string) {
	b.emitGlobal(EventProductDeleted, map[string]any{"productId": productID})
}

// StockChanged announces an inventory delta, negative for sales.
func (b *CatalogBroadcaster) StockChanged(productID string, delta int) {
	b.emitGlobal(EventProductStockUpdated, map[string]any{
		"productId": productID,
		"delta":     delta,
	})
}

func (b *CatalogBroadcaster) emitGlobal(event string, payload any) {
	if err := b.emitter.Emit(event, payload); err != nil {
		b.log.Warn("failed to emit catalog event",
			logger.Event(event),
			logger.Error(err))
	}
}
