// Package pricing computes order totals. Every function here is pure: the same
// cart and delivery mode always price the same way.
package pricing

import (
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places of the storefront currency.
const MinorUnits = 2

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Quote struct {
	Subtotal     decimal.Decimal
	DeliveryCost decimal.Decimal
	Total        decimal.Decimal
}

type Policy struct {
	FreeDeliveryThreshold decimal.Decimal
	DeliveryFee           decimal.Decimal
}

func NewPolicy(cfg config.PricingConfig) Policy {
	return Policy{
		FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
		DeliveryFee:           cfg.DeliveryFee,
	}
}

// Subtotal sums price x quantity over the lines.
func Subtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return subtotal
}

// DeliveryCost is zero for pickup and for deliveries reaching the free threshold.
func (p Policy) DeliveryCost(mode models.DeliveryMode, subtotal decimal.Decimal) decimal.Decimal {
	if mode == models.DeliveryPickup {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(p.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return p.DeliveryFee
}

// Price quotes a non-empty cart. Callers reject empty carts and quantities
// below one before calling it.
func (p Policy) Price(lines []Line, mode models.DeliveryMode) Quote {
	subtotal := Subtotal(lines).Round(MinorUnits)
	delivery := p.DeliveryCost(mode, subtotal).Round(MinorUnits)
	return Quote{
		Subtotal:     subtotal,
		DeliveryCost: delivery,
		Total:        subtotal.Add(delivery).Round(MinorUnits),
	}
}
