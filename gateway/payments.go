package gateway

import (
	"io"
	"net/http"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/yookassa"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// paymentWebhook godoc
// @Summary  YooKassa payment notification
// @Tags     payments
// @Accept   json
// @Produce  json
// @Param    X-Webhook-Signature header string false "hex HMAC-SHA256 of the body"
// @Success  200 {object} map[string]interface{}
// @Failure  400,401,404 {object} errorResponse
// @Router   /api/payments/webhook [post]
func (g *Gateway) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		g.respondError(c, apperr.Wrap(apperr.Validation, "webhook.read", err, "invalid webhook payload"))
		return
	}

	if !yookassa.VerifySignature(g.config.Payment.WebhookSecret, body, c.GetHeader(yookassa.SignatureHeader)) {
		g.logger.Warn("Rejected webhook with bad signature", zap.String("remote", c.ClientIP()))
		g.respondError(c, apperr.New(apperr.Unauthorized, "webhook.verify", "invalid webhook signature"))
		return
	}

	n, err := yookassa.ParseNotification(body)
	if err != nil {
		g.respondError(c, err)
		return
	}

	ack, err := g.deps.Payments.HandleWebhook(c.Request.Context(), n.Object.ID, n.Object.Status)
	if err != nil {
		g.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"order_id":        ack.OrderID,
		"new_status":      ack.Status,
		"previous_status": ack.PreviousStatus,
		"payment_status":  ack.PaymentStatus,
	})
}
