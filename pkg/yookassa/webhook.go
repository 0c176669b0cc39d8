package yookassa

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/example/storefront/pkg/apperr"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Webhook-Signature"

// Notification is the body of a YooKassa HTTP notification.
type Notification struct {
	Type   string  `json:"type"`
	Event  string  `json:"event"`
	Object Payment `json:"object"`
}

// ParseNotification decodes a webhook body. Both the payment id and status
// must be present.
func ParseNotification(body []byte) (*Notification, error) {
	const op = "yookassa.parse_notification"

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, apperr.Wrap(apperr.Validation, op, err, "invalid webhook payload")
	}
	if n.Object.ID == "" || n.Object.Status == "" {
		return nil, apperr.New(apperr.Validation, op, "Missing payment_id or status in webhook data")
	}
	return &n, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against body in constant time. An empty
// secret disables verification.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return false
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	return hmac.Equal(got, want)
}
