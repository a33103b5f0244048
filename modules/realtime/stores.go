package realtime

import "context"

// OrderStore defines the order persistence operations the realtime module
// needs.
type OrderStore interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, orderID string) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, status OrderStatus) error
}

// ProductStore defines the catalog operations the realtime module needs.
type ProductStore interface {
	Get(ctx context.Context, productID string) (*Product, error)

	// DecrementStock atomically reduces stock by qty. It fails with
	// ErrInsufficientStock instead of going negative.
	DecrementStock(ctx context.Context, productID string, qty int) error
}

// UserStore confirms identity subjects still exist.
type UserStore interface {
	Get(ctx context.Context, userID string) (*User, error)
}
