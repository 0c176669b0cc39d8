package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder writes the order and all of its items in one transaction.
func (r *OrderRepository) CreateOrder(ctx context.Context, draft *models.OrderDraft) (*models.Order, error) {
	if len(draft.Items) == 0 {
		return nil, apperr.New(apperr.NotFound, "order.create", "order has no items")
	}

	order := &models.Order{
		CustomerID:      draft.CustomerID,
		CustomerName:    draft.CustomerName,
		CustomerPhone:   draft.CustomerPhone,
		CustomerAddress: draft.CustomerAddress,
		DeliveryMode:    draft.DeliveryMode,
		PaymentMode:     draft.PaymentMode,
		Comment:         draft.Comment,
		Subtotal:        draft.Subtotal,
		DeliveryCost:    draft.DeliveryCost,
		Total:           draft.Total,
		Status:          models.StatusPending,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		items := make([]models.OrderItem, len(draft.Items))
		for i, item := range draft.Items {
			item.ID = 0
			item.OrderID = order.ID
			items[i] = item
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	return r.findOne(ctx, "order.find", "id = ?", id)
}

// FindByIDFresh is FindByID; wrappers that cache keep it on the database path.
func (r *OrderRepository) FindByIDFresh(ctx context.Context, id int64) (*models.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *OrderRepository) FindByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	return r.findOne(ctx, "order.find_by_payment", "payment_id = ?", ref)
}

// FindByCustomer returns the customer's orders, most recent first.
func (r *OrderRepository) FindByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", itemsInOrder).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	return r.updateColumns(ctx, "order.update_status", id, map[string]interface{}{"status": status})
}

func (r *OrderRepository) AttachPaymentReference(ctx context.Context, id int64, ref string) error {
	return r.updateColumns(ctx, "order.attach_payment", id, map[string]interface{}{"payment_id": ref})
}

func (r *OrderRepository) findOne(ctx context.Context, op string, query string, args ...interface{}) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", itemsInOrder).
		Where(query, args...).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, op, "order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// updateColumns is a single-row update that also refreshes updated_at.
func (r *OrderRepository) updateColumns(ctx context.Context, op string, id int64, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update order: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when the values did not change.
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if count == 0 {
		return apperr.New(apperr.NotFound, op, "order %d not found", id)
	}
	return nil
}

func itemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
