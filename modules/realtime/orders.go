package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storekit/storekit/pkg/logger"
	gw "github.com/storekit/storekit/pkg/realtime"
)

// Outbound order events.
const (
	EventOrderCreated       = "order:created"
	EventOrderUpdated       = "order:updated"
	EventOrderUpdatedPublic = "order:updated:public"
)

// OrderHandlers serves the socket-originated order operations. Socket input
// is untrusted: ownership and transitions are re-checked against the stored
// order, never against the payload.
type OrderHandlers struct {
	orders   OrderStore
	products ProductStore
	emitter  gw.Emitter
	log      *slog.Logger
}

// NewOrderHandlers creates the order event handlers.
func NewOrderHandlers(orders OrderStore, products ProductStore, emitter gw.Emitter, log *slog.Logger) *OrderHandlers {
	if log == nil {
		log = slog.Default()
	}
	return &OrderHandlers{
		orders:   orders,
		products: products,
		emitter:  emitter,
		log:      log,
	}
}

// Register attaches the handlers to the gateway.
func (h *OrderHandlers) Register(hub *gw.Hub) {
	hub.Handle("order:create", h.create)
	hub.Handle("order:updateStatus", h.updateStatus)
}

type createOrderRequest struct {
	Items []OrderItem `json:"items"`
}

func (h *OrderHandlers) create(ctx context.Context, c *gw.Conn, data json.RawMessage, ack gw.AckFunc) {
	identity := c.Identity()
	if identity.IsAnonymous() {
		ack(gw.AckError(ErrUnauthorized))
		return
	}

	var req createOrderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ack(gw.AckError(fmt.Errorf("%w: %w", ErrValidation, err)))
		return
	}

	order := &Order{
		ID:        uuid.New().String(),
		UserID:    identity.ID,
		Items:     req.Items,
		Status:    OrderPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := order.Validate(); err != nil {
		ack(gw.AckError(err))
		return
	}
	order.Total = order.ComputeTotal()

	if err := h.orders.Create(ctx, order); err != nil {
		h.log.Error("failed to create order",
			logger.UserID(identity.ID),
			logger.Error(err))
		ack(gw.AckError(fmt.Errorf("failed to create order")))
		return
	}

	h.emitOrder(EventOrderCreated, order)
	ack(gw.AckOK(map[string]any{"order": order}))

	h.log.Info("order created",
		slog.String("order_id", order.ID),
		logger.UserID(identity.ID),
		slog.Float64("total", order.Total))
}

type updateStatusRequest struct {
	OrderID string      `json:"orderId"`
	Status  OrderStatus `json:"status"`
}

func (h *OrderHandlers) updateStatus(ctx context.Context, c *gw.Conn, data json.RawMessage, ack gw.AckFunc) {
	identity := c.Identity()
	if identity.IsAnonymous() {
		ack(gw.AckError(ErrUnauthorized))
		return
	}

	var req updateStatusRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ack(gw.AckError(fmt.Errorf("%w: %w", ErrValidation, err)))
		return
	}
	if req.OrderID == "" {
		ack(gw.AckError(fmt.Errorf("%w: missing orderId", ErrValidation)))
		return
	}
	if !req.Status.Valid() {
		ack(gw.AckError(fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)))
		return
	}

	order, err := h.orders.Get(ctx, req.OrderID)
	if err != nil {
		ack(gw.AckError(ErrOrderNotFound))
		return
	}

	// Owner-or-admin, checked against the stored order.
	if order.UserID != identity.ID && !identity.IsAdmin() {
		ack(gw.AckError(ErrUnauthorized))
		return
	}

	if !order.Status.CanTransitionTo(req.Status) {
		ack(gw.AckError(fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, req.Status)))
		return
	}

	if err := h.orders.UpdateStatus(ctx, order.ID, req.Status); err != nil {
		h.log.Error("failed to update order status",
			slog.String("order_id", order.ID),
			logger.Error(err))
		ack(gw.AckError(fmt.Errorf("failed to update order")))
		return
	}
	order.Status = req.Status
	order.UpdatedAt = time.Now()

	// Paying reserves inventory: each line decrements its product's stock
	// and the change is announced globally.
	if req.Status == OrderPaid {
		h.decrementStock(ctx, order)
	}

	h.emitOrder(EventOrderUpdated, order)
	if err := h.emitter.Emit(EventOrderUpdatedPublic, order.Summary()); err != nil {
		h.log.Warn("failed to emit public order update", logger.Error(err))
	}
	ack(gw.AckOK(map[string]any{"order": order}))

	h.log.Info("order status updated",
		slog.String("order_id", order.ID),
		slog.String("status", string(order.Status)),
		logger.UserID(identity.ID))
}

// emitOrder fans an order event out to the owner's room, the order's own
// room, and the admin room.
func (h *OrderHandlers) emitOrder(event string, order *Order) {
	for _, room := range []string{
		gw.UserRoom(order.UserID),
		gw.OrderRoom(order.ID),
		gw.AdminRoom,
	} {
		if err := h.emitter.To(room).Emit(event, order); err != nil {
			h.log.Warn("failed to emit order event",
				logger.Event(event),
				logger.Room(room),
				logger.Error(err))
		}
	}
}

func (h *OrderHandlers) decrementStock(ctx context.Context, order *Order) {
	for _, item := range order.Items {
		if err := h.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			// The order is already paid; a stock shortfall is an
			// operational signal, not a reason to fail the payment.
			h.log.Warn("stock decrement failed",
				slog.String("order_id", order.ID),
				slog.String("product_id", item.ProductID),
				slog.Int("quantity", item.Quantity),
				logger.Error(err))
			continue
		}

		payload := map[string]any{"productId": item.ProductID, "delta": -item.Quantity}
		if err := h.emitter.Emit(EventProductStockUpdated, payload); err != nil {
			h.log.Warn("failed to emit stock update",
				slog.String("product_id", item.ProductID),
				logger.Error(err))
		}
	}
}
