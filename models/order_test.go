package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusProcessing, OrderStatusOutForDelivery},
		{OrderStatusShipped, OrderStatusOutForDelivery},
		{OrderStatusOutForDelivery, OrderStatusDelivered},
		{OrderStatusOutForDelivery, OrderStatusDeliveryFailed},
	}
	for _, tc := range allowed {
		assert.NoError(t, ValidateTransition(tc.from, tc.to),
			"%s -> %s should be allowed", tc.from, tc.to)
	}
}

func TestValidateTransitionRejectsBackward(t *testing.T) {
	rejected := []struct{ from, to OrderStatus }{
		{OrderStatusProcessing, OrderStatusPending},
		{OrderStatusShipped, OrderStatusProcessing},
		{OrderStatusOutForDelivery, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusCancelled},
		{OrderStatusPending, OrderStatusDelivered},
	}
	for _, tc := range rejected {
		err := ValidateTransition(tc.from, tc.to)
		require.Error(t, err, "%s -> %s should be rejected", tc.from, tc.to)
		assert.Contains(t, err.Error(), string(tc.from))
		assert.Contains(t, err.Error(), string(tc.to))
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	terminals := []OrderStatus{OrderStatusDelivered, OrderStatusDeliveryFailed, OrderStatusCancelled}
	all := []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusOutForDelivery, OrderStatusDelivered,
		OrderStatusDeliveryFailed, OrderStatusCancelled,
	}
	for _, from := range terminals {
		assert.True(t, from.IsTerminal())
		for _, to := range all {
			assert.Error(t, ValidateTransition(from, to),
				"terminal %s must reject transition to %s", from, to)
		}
	}
}

func TestValidateCourierTransitionSubset(t *testing.T) {
	assert.NoError(t, ValidateCourierTransition(OrderStatusProcessing, OrderStatusOutForDelivery))
	assert.NoError(t, ValidateCourierTransition(OrderStatusShipped, OrderStatusOutForDelivery))
	assert.NoError(t, ValidateCourierTransition(OrderStatusOutForDelivery, OrderStatusDelivered))
	assert.NoError(t, ValidateCourierTransition(OrderStatusOutForDelivery, OrderStatusDeliveryFailed))

	// Couriers cannot cancel, confirm, or skip ahead.
	assert.Error(t, ValidateCourierTransition(OrderStatusPending, OrderStatusProcessing))
	assert.Error(t, ValidateCourierTransition(OrderStatusPending, OrderStatusCancelled))
	assert.Error(t, ValidateCourierTransition(OrderStatusProcessing, OrderStatusShipped))
	assert.Error(t, ValidateCourierTransition(OrderStatusShipped, OrderStatusDelivered))
}

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("Out_For_Delivery")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusOutForDelivery, got)

	_, err = ParseOrderStatus("teleported")
	assert.Error(t, err)
}

func TestParsePaymentStatus(t *testing.T) {
	got, err := ParsePaymentStatus("PAID")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, got)

	_, err = ParsePaymentStatus("maybe")
	assert.Error(t, err)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleUser))
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleDelivery))
	assert.False(t, ValidRole(Role("superuser")))
}
