package models

import "fmt"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusPaid       OrderStatus = "paid"
	StatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusPaid, StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusPaid, StatusCancelled},
}

// Terminal reports whether no further transitions leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanTransition reports whether s -> to is an edge of the order state machine.
// Re-applying the current status counts as allowed.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s == to {
		return true
	}
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Gateway payment statuses reported by the payment processor.
const (
	PaymentPending           = "pending"
	PaymentWaitingForCapture = "waiting_for_capture"
	PaymentProcessing        = "processing"
	PaymentSucceeded         = "succeeded"
	PaymentCanceled          = "canceled"
)

// StatusForPayment maps a gateway payment status onto the local order status.
// ok is false for statuses that must leave the order untouched.
func StatusForPayment(gatewayStatus string) (status OrderStatus, ok bool) {
	switch gatewayStatus {
	case PaymentSucceeded:
		return StatusPaid, true
	case PaymentCanceled:
		return StatusCancelled, true
	case PaymentWaitingForCapture, PaymentProcessing:
		return StatusProcessing, true
	}
	return "", false
}

type DeliveryMode string

const (
	DeliveryCourier DeliveryMode = "delivery"
	DeliveryPickup  DeliveryMode = "pickup"
)

func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch m := DeliveryMode(s); m {
	case DeliveryCourier, DeliveryPickup:
		return m, nil
	}
	return "", fmt.Errorf("delivery_type must be 'delivery' or 'pickup', got %q", s)
}

type PaymentMode string

const (
	PaymentCash   PaymentMode = "cash"
	PaymentOnline PaymentMode = "online"
)

func ParsePaymentMode(s string) (PaymentMode, error) {
	switch m := PaymentMode(s); m {
	case PaymentCash, PaymentOnline:
		return m, nil
	}
	return "", fmt.Errorf("payment_type must be 'cash' or 'online', got %q", s)
}
