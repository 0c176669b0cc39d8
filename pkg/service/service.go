// Package service holds the order lifecycle: order placement, payment
// initiation against the gateway and webhook reconciliation.
package service

import (
	"context"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/yookassa"
	"go.uber.org/zap"
)

type OrderStore interface {
	CreateOrder(ctx context.Context, draft *models.OrderDraft) (*models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	// FindByIDFresh skips any read cache.
	FindByIDFresh(ctx context.Context, id int64) (*models.Order, error)
	FindByCustomer(ctx context.Context, customerID int64) ([]models.Order, error)
	FindByPaymentReference(ctx context.Context, ref string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error
	AttachPaymentReference(ctx context.Context, id int64, ref string) error
}

type ProductCatalog interface {
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}

// OrderNotifier is the post-commit hook for new cash orders.
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, order *models.Order) error
}

type Auditor interface {
	Record(ctx context.Context, action string, orderID int64, data map[string]interface{}) error
}

type PaymentGateway interface {
	CreatePayment(ctx context.Context, req yookassa.PaymentRequest) (*yookassa.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*yookassa.Payment, error)
}

type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// Audit actions.
const (
	AuditOrderCreated     = "order_created"
	AuditPaymentAttached  = "payment_attached"
	AuditStatusReconciled = "status_reconciled"
)

// audit writes the entry in the background; the request never waits on it.
func audit(auditor Auditor, logger *zap.Logger, action string, orderID int64, data map[string]interface{}) {
	if auditor == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := auditor.Record(ctx, action, orderID, data); err != nil {
			logger.Warn("Failed to write audit log",
				zap.String("action", action),
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
	}()
}
