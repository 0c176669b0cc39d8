package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a committed purchase. Its commercial terms (items, subtotal,
// delivery cost, total) never change after creation; only Status and
// PaymentID are updated afterwards.
type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID      int64           `gorm:"not null;index" json:"telegram_user_id"`
	CustomerName    string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone   string          `gorm:"type:varchar(50);not null" json:"customer_phone"`
	CustomerAddress *string         `gorm:"type:text" json:"customer_address"`
	DeliveryMode    DeliveryMode    `gorm:"type:varchar(20);not null" json:"delivery_type"`
	PaymentMode     PaymentMode     `gorm:"type:varchar(20);not null" json:"payment_type"`
	Comment         *string         `gorm:"type:text" json:"comment"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DeliveryCost    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"delivery_cost"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentID       *string         `gorm:"type:varchar(255);index" json:"payment_id"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem belongs to exactly one Order. ProductID is kept for traceability
// only; name and price are copies taken when the order was placed.
type OrderItem struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      int64           `gorm:"not null;index" json:"order_id"`
	ProductID    int64           `gorm:"not null;index" json:"product_id"`
	ProductName  string          `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"product_price"`
	Quantity     int             `gorm:"not null" json:"quantity"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (o *Order) HasPaymentReference() bool {
	return o.PaymentID != nil && *o.PaymentID != ""
}

// OrderDraft is a validated, priced order that has not been persisted yet.
type OrderDraft struct {
	CustomerID      int64
	CustomerName    string
	CustomerPhone   string
	CustomerAddress *string
	DeliveryMode    DeliveryMode
	PaymentMode     PaymentMode
	Comment         *string
	Subtotal        decimal.Decimal
	DeliveryCost    decimal.Decimal
	Total           decimal.Decimal
	Items           []OrderItem
}
