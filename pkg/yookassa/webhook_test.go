package yookassa

import (
	"testing"

	"github.com/example/storefront/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotification(t *testing.T) {
	n, err := ParseNotification([]byte(`{
		"type": "notification",
		"event": "payment.succeeded",
		"object": {"id": "p-1", "status": "succeeded", "metadata": {"order_id": "3"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "payment.succeeded", n.Event)
	assert.Equal(t, "p-1", n.Object.ID)
	assert.Equal(t, "succeeded", n.Object.Status)
	assert.Equal(t, "3", n.Object.Metadata["order_id"])
}

func TestParseNotificationRejectsMalformed(t *testing.T) {
	bodies := []string{
		`{"object": {"status": "succeeded"}}`,
		`{"object": {"id": "p-1"}}`,
		`{}`,
		`[1,2]`,
		`garbage`,
	}
	for _, body := range bodies {
		_, err := ParseNotification([]byte(body))
		assert.True(t, apperr.Is(err, apperr.Validation), body)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":{"id":"p-1","status":"succeeded"}}`)
	sig := Sign("whsec", body)

	assert.True(t, VerifySignature("whsec", body, sig))
	assert.True(t, VerifySignature("whsec", body, "sha256="+sig))
	assert.False(t, VerifySignature("whsec", body, Sign("other", body)))
	assert.False(t, VerifySignature("whsec", append(body, ' '), sig))
	assert.False(t, VerifySignature("whsec", body, ""))
	assert.False(t, VerifySignature("whsec", body, "zz"))
	assert.True(t, VerifySignature("", body, ""))
}
