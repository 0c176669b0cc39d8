// Package notify delivers operator notifications about new orders. Delivery
// is best-effort: a failed send is logged and dropped.
package notify

import (
	"context"
	"errors"

	"github.com/example/storefront/pkg/models"
)

const EventOrderPlaced = "order.placed"

type Message struct {
	Event string
	Order *models.Order
	Text  string
}

// Sink delivers a rendered message to the storefront operator.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// MultiSink sends to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
