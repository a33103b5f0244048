package realtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	module "github.com/storekit/storekit/modules/realtime"
)

func TestOrderStatus_Transitions(t *testing.T) {
	t.Parallel()

	allowed := map[module.OrderStatus][]module.OrderStatus{
		module.OrderPending:   {module.OrderPaid, module.OrderCancelled},
		module.OrderPaid:      {module.OrderShipped, module.OrderCancelled},
		module.OrderShipped:   {module.OrderCompleted},
		module.OrderCompleted: {},
		module.OrderCancelled: {},
	}
	all := []module.OrderStatus{
		module.OrderPending, module.OrderPaid, module.OrderShipped,
		module.OrderCompleted, module.OrderCancelled,
	}

	for from, nexts := range allowed {
		for _, to := range all {
			want := false
			for _, n := range nexts {
				if n == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s to %s", from, to)
		}
	}
}

func TestOrder_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *module.Order {
		return &module.Order{
			UserID: "u1",
			Items:  []module.OrderItem{{ProductID: "p1", Name: "Widget", Price: 2.5, Quantity: 2}},
		}
	}

	require.NoError(t, valid().Validate())

	empty := valid()
	empty.Items = nil
	assert.ErrorIs(t, empty.Validate(), module.ErrValidation)

	noProduct := valid()
	noProduct.Items[0].ProductID = ""
	assert.ErrorIs(t, noProduct.Validate(), module.ErrValidation)

	zeroQty := valid()
	zeroQty.Items[0].Quantity = 0
	assert.ErrorIs(t, zeroQty.Validate(), module.ErrValidation)

	negPrice := valid()
	negPrice.Items[0].Price = -0.01
	assert.ErrorIs(t, negPrice.Validate(), module.ErrValidation)
}

func TestOrder_ComputeTotalAndSummary(t *testing.T) {
	t.Parallel()

	order := &module.Order{
		ID:     "o1",
		UserID: "u1",
		Status: module.OrderPending,
		Items: []module.OrderItem{
			{ProductID: "p1", Price: 2.5, Quantity: 2},
			{ProductID: "p2", Price: 10, Quantity: 1},
		},
	}

	assert.InDelta(t, 15.0, order.ComputeTotal(), 0.001)

	summary := order.Summary()
	assert.Equal(t, "o1", summary["id"])
	assert.NotContains(t, summary, "items")
	assert.NotContains(t, summary, "user_id")
}
