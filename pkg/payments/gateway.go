// Package payments integrates with the external asynchronous payment
// service. The gateway accepts a payment request and later POSTs a terminal
// outcome (SUCCESS / FAILURE / TIMEOUT) to the callback URL; this package
// never waits for that outcome.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Gateway defines the interface for requesting an asynchronous payment.
type Gateway interface {
	// RequestPayment submits a payment request. The terminal outcome arrives
	// later on the callback URL; an error here only means the request itself
	// could not be submitted.
	RequestPayment(ctx context.Context, req *PaymentRequest) error

	// GetName returns the name of the gateway implementation
	GetName() string
}

// PaymentRequest describes one payment to collect.
type PaymentRequest struct {
	BookingID   string  `json:"booking_id"`
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	CallbackURL string  `json:"callback_url"`
}

// HTTPGateway talks to a real payment service over HTTP.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// HTTPConfig holds configuration for the HTTP payment gateway
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewHTTPGateway creates a gateway client for the payment service.
func NewHTTPGateway(cfg HTTPConfig, logger *logrus.Logger) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// RequestPayment submits the payment request to the gateway.
func (g *HTTPGateway) RequestPayment(ctx context.Context, req *PaymentRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("payment gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payment gateway rejected request: status %d: %s", resp.StatusCode, string(respBody))
	}

	g.logger.WithFields(logrus.Fields{
		"booking_id": req.BookingID,
		"amount":     req.Amount,
	}).Info("Payment requested")

	return nil
}

// GetName returns the gateway name
func (g *HTTPGateway) GetName() string {
	return "http"
}

// NoopGateway is used when no payment service is configured (local
// development). It logs the request and does nothing; bookings then time out
// through the reconciler unless a callback is delivered manually.
type NoopGateway struct {
	logger *logrus.Logger
}

// NewNoopGateway creates a placeholder gateway.
func NewNoopGateway(logger *logrus.Logger) *NoopGateway {
	return &NoopGateway{logger: logger}
}

// RequestPayment logs the request without calling any service.
func (g *NoopGateway) RequestPayment(ctx context.Context, req *PaymentRequest) error {
	g.logger.WithFields(logrus.Fields{
		"booking_id": req.BookingID,
		"amount":     req.Amount,
		"mode":       "placeholder",
	}).Info("Payment requested (no gateway configured)")
	return nil
}

// GetName returns the gateway name
func (g *NoopGateway) GetName() string {
	return "noop"
}
