// Package yookassa is the HTTP adapter for the YooKassa payments API.
package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://api.yookassa.ru/v3"
	idempotenceHeader = "Idempotence-Key"
)

type Client struct {
	baseURL    string
	shopID     string
	secretKey  string
	currency   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient fails with an apperr.Configuration error when the shop
// credentials are missing.
func NewClient(cfg config.PaymentConfig, currency string, logger *zap.Logger) (*Client, error) {
	if cfg.ShopID == "" || cfg.SecretKey == "" {
		return nil, apperr.New(apperr.Configuration, "yookassa.new", "YooKassa credentials not configured")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger.Info("YooKassa client initialized",
		zap.String("shop_id", cfg.ShopID),
		zap.String("base_url", baseURL))

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		shopID:     cfg.ShopID,
		secretKey:  cfg.SecretKey,
		currency:   currency,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type createPaymentRequest struct {
	Amount       Amount            `json:"amount"`
	Confirmation Confirmation      `json:"confirmation"`
	Capture      bool              `json:"capture"`
	Description  string            `json:"description"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Payment is the subset of the YooKassa payment object the storefront reads.
type Payment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       Amount            `json:"amount"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (p *Payment) ConfirmationURL() string {
	if p.Confirmation == nil {
		return ""
	}
	return p.Confirmation.ConfirmationURL
}

type PaymentRequest struct {
	Amount      decimal.Decimal
	Description string
	ReturnURL   string
	Metadata    map[string]string
}

type errorResponse struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CreatePayment creates a redirect-confirmed, auto-captured payment. Each call
// sends a fresh Idempotence-Key; it de-duplicates transport retries only.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	const op = "yookassa.create_payment"

	body := createPaymentRequest{
		Amount: Amount{
			Value:    req.Amount.StringFixed(2),
			Currency: c.currency,
		},
		Confirmation: Confirmation{
			Type:      "redirect",
			ReturnURL: req.ReturnURL,
		},
		Capture:     true,
		Description: req.Description,
		Metadata:    req.Metadata,
	}

	var payment Payment
	if err := c.do(ctx, op, http.MethodPost, "/payments", body, uuid.NewString(), &payment); err != nil {
		return nil, err
	}

	if payment.ID == "" {
		return nil, apperr.New(apperr.GatewayProtocol, op, "payment id not received from YooKassa")
	}
	if !validRedirect(payment.ConfirmationURL()) {
		return nil, apperr.New(apperr.GatewayProtocol, op, "payment URL not received from YooKassa")
	}

	c.logger.Info("Payment created",
		zap.String("payment_id", payment.ID),
		zap.String("status", payment.Status))

	return &payment, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	const op = "yookassa.get_payment"

	var payment Payment
	if err := c.do(ctx, op, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, "", &payment); err != nil {
		return nil, err
	}
	if payment.ID == "" {
		return nil, apperr.New(apperr.GatewayProtocol, op, "payment id not received from YooKassa")
	}
	return &payment, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in interface{}, idempotenceKey string, out interface{}) error {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.shopID, c.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotenceKey != "" {
		req.Header.Set(idempotenceHeader, idempotenceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("YooKassa unreachable",
			zap.String("op", op),
			zap.Bool("timeout", isTimeout(err)),
			zap.Error(err))
		return apperr.Wrap(apperr.GatewayUnavailable, op, err, "payment service unavailable")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.GatewayUnavailable, op, err, "payment service unavailable")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := fmt.Sprintf("YooKassa API error: %d", resp.StatusCode)
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Description != "" {
			detail += " - " + apiErr.Description
		}
		c.logger.Warn("YooKassa request failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code))
		return apperr.New(apperr.Gateway, op, "%s", detail)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.GatewayProtocol, op, err, "malformed response from YooKassa")
	}
	return nil
}

func validRedirect(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
