package service

import (
	"context"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
)

// Store is the persistence surface the checkout flow needs.
// Implemented by *store.Store.
type Store interface {
	CreateAttempt(ctx context.Context, attempt *models.CheckoutAttempt) error
	GetAttemptByRemoteOrderID(ctx context.Context, remoteOrderID string) (*models.CheckoutAttempt, error)
	AdvanceAttemptStatus(ctx context.Context, attemptID, from, to string) (bool, error)
	CreateOrder(ctx context.Context, order *models.Order, items []models.LineItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByRemoteOrderID(ctx context.Context, remoteOrderID string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetOrdersByBuyerID(ctx context.Context, buyerID int64) ([]models.Order, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) (int, error)
}

// GatewayClient is the outbound payment gateway boundary.
// Implemented by *gateway.Client.
type GatewayClient interface {
	CreateRemoteOrder(ctx context.Context, req *gateway.OrderRequest) (*gateway.RemoteOrder, error)
	KeyID() string
}

// EventPublisher publishes checkout domain events.
// Implemented by *broker.EventPublisher.
type EventPublisher interface {
	PublishCheckoutStarted(ctx context.Context, event *models.CheckoutStartedEvent) error
	PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error
	PublishPaymentRejected(ctx context.Context, event *models.PaymentRejectedEvent) error
	PublishOrderCommitted(ctx context.Context, event *models.OrderCommittedEvent) error
	PublishStockDiscrepancy(ctx context.Context, event *models.StockDiscrepancyEvent) error
}

// ResultCache caches confirm outcomes and mirrors stock levels.
// Implemented by *redisclient.Client. All uses are best-effort: the
// database stays authoritative and cache failures never fail a checkout.
type ResultCache interface {
	SetConfirmResult(ctx context.Context, remoteOrderID string, orderID int64, ttl time.Duration) error
	GetConfirmResult(ctx context.Context, remoteOrderID string) (int64, bool, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) (int, bool, error)
}
