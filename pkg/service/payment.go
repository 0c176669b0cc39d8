package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/yookassa"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultLockTTL = time.Minute

type PaymentResult struct {
	PaymentID  string          `json:"payment_id"`
	PaymentURL string          `json:"payment_url"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
}

// WebhookAck is returned to the gateway after reconciliation. Status is the
// order status after the webhook was applied.
type WebhookAck struct {
	OrderID        int64              `json:"order_id"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status"`
	PaymentStatus  string             `json:"payment_status"`
	Applied        bool               `json:"applied"`
}

type PaymentService struct {
	orders    OrderStore
	gateway   PaymentGateway
	locker    Locker
	lockTTL   time.Duration
	returnURL string
	auditor   Auditor
	metrics   *metrics.Recorder
	logger    *zap.Logger
}

type PaymentServiceOption func(*PaymentService)

func WithPaymentAuditor(a Auditor) PaymentServiceOption {
	return func(s *PaymentService) { s.auditor = a }
}

func WithPaymentMetrics(m *metrics.Recorder) PaymentServiceOption {
	return func(s *PaymentService) { s.metrics = m }
}

func WithLockTTL(ttl time.Duration) PaymentServiceOption {
	return func(s *PaymentService) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// NewPaymentService accepts a nil gateway; payment initiation then fails with
// a configuration error while webhooks keep working.
func NewPaymentService(orders OrderStore, gateway PaymentGateway, locker Locker, returnURL string, logger *zap.Logger, opts ...PaymentServiceOption) *PaymentService {
	if locker == nil {
		locker = repository.NewLocalLocker()
	}
	s := &PaymentService{
		orders:    orders,
		gateway:   gateway,
		locker:    locker,
		lockTTL:   defaultLockTTL,
		returnURL: returnURL,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func paymentLockKey(orderID int64) string {
	return fmt.Sprintf("payment:order:%d", orderID)
}

// InitiatePayment creates a redirect payment for an online order that is still
// pending. The order status is left untouched; only the webhook settles it.
// Calls for the same order are serialized, and a retry while the previous
// payment is still open returns that payment instead of creating another.
func (s *PaymentService) InitiatePayment(ctx context.Context, orderID, customerID int64) (*PaymentResult, error) {
	const op = "payment.initiate"

	order, err := loadOwnedOrder(ctx, s.orders.FindByID, orderID, customerID)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(op, order); err != nil {
		s.metrics.PaymentInitiated("rejected")
		return nil, err
	}
	if s.gateway == nil || s.returnURL == "" {
		s.metrics.PaymentInitiated("not_configured")
		return nil, apperr.New(apperr.Configuration, op, "Payment service is not configured")
	}

	release, err := s.locker.Lock(ctx, paymentLockKey(order.ID), s.lockTTL)
	if err != nil {
		if errors.Is(err, repository.ErrLockHeld) {
			s.metrics.PaymentInitiated("rejected")
			return nil, apperr.New(apperr.InvalidState, op, "payment initiation already in progress")
		}
		return nil, apperr.Wrap(apperr.Internal, op, err, "failed to acquire payment lock")
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.logger.Warn("Failed to release payment lock", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}()

	// Re-read from the database under the lock; a concurrent webhook may have
	// settled the order and the cached copy can lag behind.
	order, err = loadOwnedOrder(ctx, s.orders.FindByIDFresh, orderID, customerID)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(op, order); err != nil {
		s.metrics.PaymentInitiated("rejected")
		return nil, err
	}

	if order.HasPaymentReference() {
		if res, ok := s.reuseOpenPayment(ctx, order); ok {
			s.metrics.PaymentInitiated("reused")
			return res, nil
		}
	}

	payment, err := s.gateway.CreatePayment(ctx, paymentRequest(order, s.returnURL))
	if err != nil {
		s.metrics.PaymentInitiated("gateway_error")
		s.logger.Error("Failed to create payment",
			zap.Int64("order_id", order.ID),
			zap.String("kind", apperr.KindOf(err).String()),
			zap.Error(err))
		return nil, err
	}

	if err := s.orders.AttachPaymentReference(ctx, order.ID, payment.ID); err != nil {
		s.metrics.PaymentInitiated("store_error")
		s.logger.Error("Failed to attach payment to order",
			zap.Int64("order_id", order.ID),
			zap.String("payment_id", payment.ID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Payment initiated",
		zap.Int64("order_id", order.ID),
		zap.String("payment_id", payment.ID),
		zap.String("status", payment.Status))
	s.metrics.PaymentInitiated("created")

	audit(s.auditor, s.logger, AuditPaymentAttached, order.ID, map[string]interface{}{
		"payment_id":     payment.ID,
		"payment_status": payment.Status,
		"amount":         order.Total.StringFixed(2),
	})

	return &PaymentResult{
		PaymentID:  payment.ID,
		PaymentURL: payment.ConfirmationURL(),
		Status:     payment.Status,
		Amount:     order.Total,
	}, nil
}

func (s *PaymentService) reuseOpenPayment(ctx context.Context, order *models.Order) (*PaymentResult, bool) {
	existing, err := s.gateway.GetPayment(ctx, *order.PaymentID)
	if err != nil {
		s.logger.Warn("Failed to look up existing payment, creating a new one",
			zap.Int64("order_id", order.ID),
			zap.String("payment_id", *order.PaymentID),
			zap.Error(err))
		return nil, false
	}
	if existing.Status != models.PaymentPending || existing.ConfirmationURL() == "" {
		return nil, false
	}
	s.logger.Info("Reusing open payment",
		zap.Int64("order_id", order.ID),
		zap.String("payment_id", existing.ID))
	return &PaymentResult{
		PaymentID:  existing.ID,
		PaymentURL: existing.ConfirmationURL(),
		Status:     existing.Status,
		Amount:     order.Total,
	}, true
}

func checkPayable(op string, order *models.Order) error {
	if order.PaymentMode != models.PaymentOnline {
		return apperr.New(apperr.InvalidState, op, "Order is not for online payment")
	}
	if order.Status != models.StatusPending {
		return apperr.New(apperr.InvalidState, op, "Order already paid or processing")
	}
	return nil
}

// webhookStatusLabel keeps the metric label set closed; the webhook body is
// caller supplied.
func webhookStatusLabel(paymentStatus string) string {
	if _, ok := models.StatusForPayment(paymentStatus); ok || paymentStatus == models.PaymentPending {
		return paymentStatus
	}
	return "other"
}

func paymentRequest(order *models.Order, returnURL string) yookassa.PaymentRequest {
	return yookassa.PaymentRequest{
		Amount:      order.Total,
		Description: fmt.Sprintf("Order #%d", order.ID),
		ReturnURL:   returnURL,
		Metadata: map[string]string{
			"order_id":         strconv.FormatInt(order.ID, 10),
			"telegram_user_id": strconv.FormatInt(order.CustomerID, 10),
		},
	}
}

// HandleWebhook reconciles a gateway callback into the order status. Unknown
// gateway statuses are acknowledged without a change. The mapped status is
// applied even when it is not a valid edge from the current one; duplicates
// are harmless since the mapping depends only on the reported status.
func (s *PaymentService) HandleWebhook(ctx context.Context, paymentID, paymentStatus string) (*WebhookAck, error) {
	const op = "payment.webhook"

	paymentID = strings.TrimSpace(paymentID)
	paymentStatus = strings.TrimSpace(paymentStatus)
	if paymentID == "" || paymentStatus == "" {
		return nil, apperr.New(apperr.Validation, op, "payment id and status are required")
	}

	order, err := s.orders.FindByPaymentReference(ctx, paymentID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			s.logger.Warn("Webhook for unknown payment", zap.String("payment_id", paymentID))
		}
		return nil, err
	}

	s.metrics.WebhookReceived(webhookStatusLabel(paymentStatus))

	ack := &WebhookAck{
		OrderID:        order.ID,
		Status:         order.Status,
		PreviousStatus: order.Status,
		PaymentStatus:  paymentStatus,
	}

	next, ok := models.StatusForPayment(paymentStatus)
	if !ok {
		s.logger.Info("Ignoring payment status",
			zap.Int64("order_id", order.ID),
			zap.String("payment_id", paymentID),
			zap.String("payment_status", paymentStatus))
		return ack, nil
	}

	if !order.Status.CanTransition(next) {
		s.logger.Warn("Webhook overrides settled order",
			zap.Int64("order_id", order.ID),
			zap.String("from", string(order.Status)),
			zap.String("to", string(next)),
			zap.String("payment_status", paymentStatus))
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, next); err != nil {
		s.logger.Error("Failed to update order status",
			zap.Int64("order_id", order.ID),
			zap.String("status", string(next)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order status reconciled",
		zap.Int64("order_id", order.ID),
		zap.String("payment_id", paymentID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next)))

	audit(s.auditor, s.logger, AuditStatusReconciled, order.ID, map[string]interface{}{
		"payment_id":      paymentID,
		"payment_status":  paymentStatus,
		"previous_status": string(order.Status),
		"status":          string(next),
	})

	ack.Status = next
	ack.Applied = true
	return ack, nil
}
