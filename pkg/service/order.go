package service

import (
	"context"
	"strings"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/pricing"
	"go.uber.org/zap"
)

type ItemInput struct {
	ProductID int64
	Quantity  int
}

type CreateOrderInput struct {
	CustomerName    string
	CustomerPhone   string
	CustomerAddress *string
	DeliveryMode    models.DeliveryMode
	PaymentMode     models.PaymentMode
	Comment         *string
	Items           []ItemInput
}

type OrderService struct {
	orders   OrderStore
	catalog  ProductCatalog
	policy   pricing.Policy
	notifier OrderNotifier
	auditor  Auditor
	metrics  *metrics.Recorder
	logger   *zap.Logger
}

type OrderServiceOption func(*OrderService)

func WithNotifier(n OrderNotifier) OrderServiceOption {
	return func(s *OrderService) { s.notifier = n }
}

func WithOrderAuditor(a Auditor) OrderServiceOption {
	return func(s *OrderService) { s.auditor = a }
}

func WithOrderMetrics(m *metrics.Recorder) OrderServiceOption {
	return func(s *OrderService) { s.metrics = m }
}

func NewOrderService(orders OrderStore, catalog ProductCatalog, policy pricing.Policy, logger *zap.Logger, opts ...OrderServiceOption) *OrderService {
	s := &OrderService{
		orders:  orders,
		catalog: catalog,
		policy:  policy,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder prices the cart against the current catalog and persists the
// order in status pending. Cash orders notify the operator after commit; a
// failed notification never fails the call.
func (s *OrderService) CreateOrder(ctx context.Context, customerID int64, in CreateOrderInput) (*models.Order, error) {
	const op = "order.create"

	if err := validateOrderInput(&in); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(in.Items))
	seen := make(map[int64]bool, len(in.Items))
	for _, item := range in.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	lines := make([]pricing.Line, 0, len(in.Items))
	for _, item := range in.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, apperr.New(apperr.NotFound, op, "Product with id %d not found", item.ProductID)
		}
		items = append(items, models.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Title,
			ProductPrice: product.Price,
			Quantity:     item.Quantity,
		})
		lines = append(lines, pricing.Line{UnitPrice: product.Price, Quantity: item.Quantity})
	}

	quote := s.policy.Price(lines, in.DeliveryMode)

	order, err := s.orders.CreateOrder(ctx, &models.OrderDraft{
		CustomerID:      customerID,
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerAddress: in.CustomerAddress,
		DeliveryMode:    in.DeliveryMode,
		PaymentMode:     in.PaymentMode,
		Comment:         in.Comment,
		Subtotal:        quote.Subtotal,
		DeliveryCost:    quote.DeliveryCost,
		Total:           quote.Total,
		Items:           items,
	})
	if err != nil {
		s.logger.Error("Failed to create order", zap.Int64("customer_id", customerID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", customerID),
		zap.String("payment_type", string(order.PaymentMode)),
		zap.String("total", order.Total.StringFixed(2)))
	s.metrics.OrderCreated(string(order.PaymentMode))

	audit(s.auditor, s.logger, AuditOrderCreated, order.ID, map[string]interface{}{
		"customer_id":  customerID,
		"payment_type": string(order.PaymentMode),
		"total_amount": order.Total.StringFixed(2),
	})

	if order.PaymentMode == models.PaymentCash {
		s.notifyPlaced(ctx, order)
	}

	return order, nil
}

func (s *OrderService) notifyPlaced(ctx context.Context, order *models.Order) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.metrics.NotificationFailed()
			s.logger.Error("Notification hook panicked", zap.Int64("order_id", order.ID), zap.Any("panic", r))
		}
	}()
	if err := s.notifier.OrderPlaced(ctx, order); err != nil {
		s.metrics.NotificationFailed()
		s.logger.Error("Failed to send order notification", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// ListOrders returns the customer's orders, most recent first.
func (s *OrderService) ListOrders(ctx context.Context, customerID int64) ([]models.Order, error) {
	return s.orders.FindByCustomer(ctx, customerID)
}

// GetOrder reports another customer's order as not found.
func (s *OrderService) GetOrder(ctx context.Context, id, customerID int64) (*models.Order, error) {
	return loadOwnedOrder(ctx, s.orders.FindByID, id, customerID)
}

func loadOwnedOrder(ctx context.Context, find func(context.Context, int64) (*models.Order, error), id, customerID int64) (*models.Order, error) {
	order, err := find(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, apperr.New(apperr.NotFound, "order.get", "Order not found")
	}
	return order, nil
}

func validateOrderInput(in *CreateOrderInput) error {
	const op = "order.validate"

	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerAddress = trimmedOrNil(in.CustomerAddress)
	in.Comment = trimmedOrNil(in.Comment)

	if in.CustomerName == "" {
		return apperr.New(apperr.Validation, op, "customer_name is required")
	}
	if in.CustomerPhone == "" {
		return apperr.New(apperr.Validation, op, "customer_phone is required")
	}
	if _, err := models.ParseDeliveryMode(string(in.DeliveryMode)); err != nil {
		return apperr.Wrap(apperr.Validation, op, err, "invalid delivery type")
	}
	if _, err := models.ParsePaymentMode(string(in.PaymentMode)); err != nil {
		return apperr.Wrap(apperr.Validation, op, err, "invalid payment type")
	}
	if in.DeliveryMode == models.DeliveryCourier && in.CustomerAddress == nil {
		return apperr.New(apperr.Validation, op, "Address is required for delivery")
	}
	if len(in.Items) == 0 {
		return apperr.New(apperr.Validation, op, "order must contain at least one item")
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return apperr.New(apperr.Validation, op, "quantity for product %d must be at least 1", item.ProductID)
		}
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
