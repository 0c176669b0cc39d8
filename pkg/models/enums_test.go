package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForPayment(t *testing.T) {
	tests := []struct {
		gateway string
		want    OrderStatus
		ok      bool
	}{
		{"succeeded", StatusPaid, true},
		{"canceled", StatusCancelled, true},
		{"waiting_for_capture", StatusProcessing, true},
		{"processing", StatusProcessing, true},
		{"pending", "", false},
		{"refund.succeeded", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			got, ok := StatusForPayment(tt.gateway)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusPaid))
	assert.True(t, StatusPending.CanTransition(StatusProcessing))
	assert.True(t, StatusPending.CanTransition(StatusCancelled))
	assert.True(t, StatusProcessing.CanTransition(StatusPaid))
	assert.True(t, StatusProcessing.CanTransition(StatusCancelled))
	assert.True(t, StatusPaid.CanTransition(StatusPaid))

	assert.False(t, StatusProcessing.CanTransition(StatusPending))
	assert.False(t, StatusPaid.CanTransition(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransition(StatusPaid))

	assert.True(t, StatusPaid.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusProcessing.Terminal())
}

func TestParseModes(t *testing.T) {
	d, err := ParseDeliveryMode("pickup")
	require.NoError(t, err)
	assert.Equal(t, DeliveryPickup, d)

	_, err = ParseDeliveryMode("drone")
	assert.Error(t, err)

	p, err := ParsePaymentMode("online")
	require.NoError(t, err)
	assert.Equal(t, PaymentOnline, p)

	_, err = ParsePaymentMode("crypto")
	assert.Error(t, err)
}

func TestOrderItemLineTotal(t *testing.T) {
	item := OrderItem{ProductPrice: decimal.RequireFromString("0.10"), Quantity: 3}
	assert.Equal(t, "0.30", item.LineTotal().StringFixed(2))
}
