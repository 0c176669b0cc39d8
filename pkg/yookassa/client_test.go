package yookassa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	client, err := NewClient(config.PaymentConfig{
		BaseURL:   baseURL,
		ShopID:    "shop-1",
		SecretKey: "secret",
		Timeout:   timeout,
	}, "RUB", zaptest.NewLogger(t))
	require.NoError(t, err)
	return client
}

func sampleRequest() PaymentRequest {
	return PaymentRequest{
		Amount:      decimal.NewFromInt(2000),
		Description: "Order #12",
		ReturnURL:   "https://t.me/shop_bot",
		Metadata:    map[string]string{"order_id": "12", "telegram_user_id": "5"},
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.PaymentConfig{ShopID: "shop-1"}, "RUB", zaptest.NewLogger(t))
	assert.True(t, apperr.Is(err, apperr.Configuration))

	_, err = NewClient(config.PaymentConfig{SecretKey: "x"}, "RUB", zaptest.NewLogger(t))
	assert.True(t, apperr.Is(err, apperr.Configuration))
}

func TestCreatePayment(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "shop-1", user)
		assert.Equal(t, "secret", pass)

		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotence-Key"))
		mu.Unlock()

		var body createPaymentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2000.00", body.Amount.Value)
		assert.Equal(t, "RUB", body.Amount.Currency)
		assert.Equal(t, "redirect", body.Confirmation.Type)
		assert.Equal(t, "https://t.me/shop_bot", body.Confirmation.ReturnURL)
		assert.True(t, body.Capture)
		assert.Equal(t, "12", body.Metadata["order_id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "2d1c-pay",
			"status": "pending",
			"paid": false,
			"amount": {"value": "2000.00", "currency": "RUB"},
			"confirmation": {"type": "redirect", "confirmation_url": "https://yoomoney.ru/checkout/payments/v2/contract?orderId=2d1c"}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, time.Second)

	first, err := client.CreatePayment(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "2d1c-pay", first.ID)
	assert.Equal(t, "pending", first.Status)
	assert.Equal(t, "https://yoomoney.ru/checkout/payments/v2/contract?orderId=2d1c", first.ConfirmationURL())

	_, err = client.CreatePayment(context.Background(), sampleRequest())
	require.NoError(t, err)

	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.NotEqual(t, keys[0], keys[1])
}

func TestCreatePaymentGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","code":"invalid_request","description":"Invalid amount"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Second).CreatePayment(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Gateway))
	assert.Contains(t, apperr.Message(err), "400")
	assert.Contains(t, apperr.Message(err), "Invalid amount")
}

func TestCreatePaymentMissingRedirect(t *testing.T) {
	responses := []string{
		`{"id":"p1","status":"pending"}`,
		`{"id":"p1","status":"pending","confirmation":{"type":"redirect","confirmation_url":"not a url"}}`,
		`{"status":"pending","confirmation":{"type":"redirect","confirmation_url":"https://pay.example/x"}}`,
		`{not json`,
	}

	for _, body := range responses {
		body := body
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		_, err := newTestClient(t, srv.URL, time.Second).CreatePayment(context.Background(), sampleRequest())
		assert.True(t, apperr.Is(err, apperr.GatewayProtocol), "body %s: %v", body, err)
		srv.Close()
	}
}

func TestCreatePaymentUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, time.Second).CreatePayment(context.Background(), sampleRequest())
	assert.True(t, apperr.Is(err, apperr.GatewayUnavailable))
}

func TestCreatePaymentTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(t, srv.URL, 50*time.Millisecond).CreatePayment(context.Background(), sampleRequest())
	assert.True(t, apperr.Is(err, apperr.GatewayUnavailable))
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/p-77", r.URL.Path)
		assert.Empty(t, r.Header.Get("Idempotence-Key"))
		_, _ = w.Write([]byte(`{"id":"p-77","status":"succeeded","paid":true}`))
	}))
	defer srv.Close()

	payment, err := newTestClient(t, srv.URL, time.Second).GetPayment(context.Background(), "p-77")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", payment.Status)
	assert.True(t, payment.Paid)
	assert.Empty(t, payment.ConfirmationURL())
}
