package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusCooking, true},
		{OrderStatusCooking, OrderStatusServing, true},
		{OrderStatusServing, OrderStatusServed, true},
		{OrderStatusServed, OrderStatusWaitingPayment, true},
		{OrderStatusWaitingPayment, OrderStatusCompleted, true},

		// No skipping forward or stepping back.
		{OrderStatusPending, OrderStatusServing, false},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusCooking, OrderStatusPending, false},
		{OrderStatusServed, OrderStatusCooking, false},

		// Cancellation is reachable from every non-terminal status.
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusCooking, OrderStatusCancelled, true},
		{OrderStatusServing, OrderStatusCancelled, true},
		{OrderStatusServed, OrderStatusCancelled, true},
		{OrderStatusWaitingPayment, OrderStatusCancelled, true},

		// Terminal statuses accept nothing.
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusCooking, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusCancelled, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusPending.Terminal())
	assert.False(t, OrderStatusWaitingPayment.Terminal())
}

func TestMenuItemUnlimited(t *testing.T) {
	assert.True(t, (&MenuItem{DailyStock: UnlimitedDailyStock}).Unlimited())
	assert.False(t, (&MenuItem{DailyStock: 0}).Unlimited())
	assert.False(t, (&MenuItem{DailyStock: 12}).Unlimited())
}
