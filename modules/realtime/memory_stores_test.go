package realtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	module "github.com/storekit/storekit/modules/realtime"
)

func TestMemoryOrderStore(t *testing.T) {
	t.Parallel()

	store := module.NewMemoryOrderStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, module.ErrOrderNotFound)
	assert.ErrorIs(t, store.UpdateStatus(ctx, "missing", module.OrderPaid), module.ErrOrderNotFound)

	order := &module.Order{
		ID:     "o1",
		UserID: "u1",
		Items:  []module.OrderItem{{ProductID: "p1", Price: 5, Quantity: 1}},
		Status: module.OrderPending,
	}
	require.NoError(t, store.Create(ctx, order))
	require.NoError(t, store.UpdateStatus(ctx, "o1", module.OrderPaid))

	got, err := store.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, module.OrderPaid, got.Status)

	// Mutating the returned copy must not leak into the store.
	got.Status = module.OrderCancelled
	again, err := store.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, module.OrderPaid, again.Status)
}

func TestMemoryProductStore_DecrementStock(t *testing.T) {
	t.Parallel()

	store := module.NewMemoryProductStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.DecrementStock(ctx, "missing", 1), module.ErrProductNotFound)

	store.Put(module.Product{ID: "p1", Name: "Widget", Stock: 5})

	require.NoError(t, store.DecrementStock(ctx, "p1", 3))
	product, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, product.Stock)

	// A shortfall leaves the stock untouched.
	assert.ErrorIs(t, store.DecrementStock(ctx, "p1", 3), module.ErrInsufficientStock)
	product, err = store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, product.Stock)

	require.NoError(t, store.DecrementStock(ctx, "p1", 2))
	product, err = store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)
}

func TestMemoryUserStore(t *testing.T) {
	t.Parallel()

	store := module.NewMemoryUserStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, module.ErrUserNotFound)

	store.Put(module.User{ID: "u1", Email: "u1@example.com", Role: "admin"})
	user, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)
}
