package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/storefront/pkg/models"
)

var paymentLabels = map[models.PaymentMode]string{
	models.PaymentCash:   "Cash",
	models.PaymentOnline: "Online",
}

var deliveryLabels = map[models.DeliveryMode]string{
	models.DeliveryCourier: "Delivery",
	models.DeliveryPickup:  "Pickup",
}

// RenderOrderPlaced formats an order as Telegram HTML for the operator chat.
func RenderOrderPlaced(order *models.Order, currency string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>New order #%d (%s)</b>\n\n", order.ID, paymentLabels[order.PaymentMode])
	fmt.Fprintf(&b, "<b>Customer:</b> %s\n", html.EscapeString(order.CustomerName))
	fmt.Fprintf(&b, "<b>Phone:</b> %s\n", html.EscapeString(order.CustomerPhone))
	fmt.Fprintf(&b, "<b>Delivery type:</b> %s\n", deliveryLabels[order.DeliveryMode])
	if order.DeliveryMode == models.DeliveryCourier && order.CustomerAddress != nil {
		fmt.Fprintf(&b, "<b>Address:</b> %s\n", html.EscapeString(*order.CustomerAddress))
	}
	if order.Comment != nil && *order.Comment != "" {
		fmt.Fprintf(&b, "<b>Comment:</b> %s\n", html.EscapeString(*order.Comment))
	}

	b.WriteString("\n<b>Items:</b>\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s x %d (%s %s each) = %s %s\n",
			html.EscapeString(item.ProductName), item.Quantity, item.ProductPrice.StringFixed(2), currency,
			item.LineTotal().StringFixed(2), currency)
	}

	fmt.Fprintf(&b, "\n<b>Subtotal:</b> %s %s\n", order.Subtotal.StringFixed(2), currency)
	fmt.Fprintf(&b, "<b>Delivery:</b> %s %s\n", order.DeliveryCost.StringFixed(2), currency)
	fmt.Fprintf(&b, "<b>Total:</b> %s %s\n", order.Total.StringFixed(2), currency)
	fmt.Fprintf(&b, "<b>Status:</b> %s", order.Status)

	return b.String()
}
