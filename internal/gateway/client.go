package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"checkout-service/config"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// ErrUnavailable indicates a network failure or a 5xx from the gateway.
// Safe for the caller to retry.
var ErrUnavailable = errors.New("payment gateway unavailable")

// RejectedError indicates the gateway refused the order request (4xx).
// Not retryable without changing the request.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment gateway rejected request (status %d): %s", e.StatusCode, e.Message)
}

// OrderRequest is the remote order creation payload. Amount is in the
// gateway's smallest currency unit.
type OrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

// RemoteOrder is the order record created inside the gateway's system.
type RemoteOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type gatewayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client wraps calls to the external payment gateway. Pure boundary
// calls, no business logic.
type Client struct {
	cfg    config.GatewayConfig
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a gateway client with injected credentials.
func NewClient(cfg config.GatewayConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: util.GetLogger(),
	}
}

// CreateRemoteOrder creates an order inside the gateway's system and
// returns its handle.
func (c *Client) CreateRemoteOrder(ctx context.Context, req *OrderRequest) (*RemoteOrder, error) {
	ctx, span := util.StartSpan(ctx, "Gateway.CreateRemoteOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.GatewayRequestLatency.Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		util.GatewayErrorsTotal.WithLabelValues("server_error").Inc()
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)

	case resp.StatusCode >= 400:
		util.GatewayErrorsTotal.WithLabelValues("rejected").Inc()
		var errBody gatewayErrorBody
		_ = json.Unmarshal(respBody, &errBody)
		c.logger.Warn("Gateway rejected order request",
			zap.Int("status", resp.StatusCode),
			zap.String("code", errBody.Error.Code))
		return nil, &RejectedError{
			StatusCode: resp.StatusCode,
			Message:    errBody.Error.Description,
		}
	}

	var order RemoteOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("gateway returned order without id")
	}

	c.logger.Info("Remote order created",
		zap.String("remote_order_id", order.ID),
		zap.Int64("amount", order.Amount))

	return &order, nil
}

// KeyID returns the public key identifier handed to the client-side
// gateway widget.
func (c *Client) KeyID() string {
	return c.cfg.KeyID
}
