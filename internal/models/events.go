package models

import "time"

// Event types
const (
	EventTypeCheckoutStarted  = "CHECKOUT_STARTED"
	EventTypePaymentVerified  = "PAYMENT_VERIFIED"
	EventTypePaymentRejected  = "PAYMENT_REJECTED"
	EventTypeOrderCommitted   = "ORDER_COMMITTED"
	EventTypeStockDiscrepancy = "STOCK_DISCREPANCY"
	EventTypeAttemptExpired   = "ATTEMPT_EXPIRED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutStartedEvent published when a remote order has been created
// and the attempt is awaiting payment
type CheckoutStartedEvent struct {
	BaseEvent
	AttemptID     string `json:"attempt_id"`
	BuyerID       int64  `json:"buyer_id"`
	RemoteOrderID string `json:"remote_order_id"`
	TotalAmount   int64  `json:"total_amount"`
	Currency      string `json:"currency"`
}

// PaymentVerifiedEvent published when a confirmation signature checks out
type PaymentVerifiedEvent struct {
	BaseEvent
	AttemptID     string `json:"attempt_id"`
	RemoteOrderID string `json:"remote_order_id"`
	PaymentID     string `json:"payment_id"`
}

// PaymentRejectedEvent published when verification fails and the
// attempt is closed
type PaymentRejectedEvent struct {
	BaseEvent
	AttemptID     string `json:"attempt_id"`
	RemoteOrderID string `json:"remote_order_id"`
	Reason        string `json:"reason"`
}

// OrderCommittedEvent published when the order record is durably written
type OrderCommittedEvent struct {
	BaseEvent
	OrderID       int64  `json:"order_id"`
	AttemptID     string `json:"attempt_id"`
	BuyerID       int64  `json:"buyer_id"`
	RemoteOrderID string `json:"remote_order_id"`
	PaymentID     string `json:"payment_id"`
	TotalAmount   int64  `json:"total_amount"`
}

// StockDiscrepancyEvent published when an inventory decrement could not
// be applied cleanly; consumed by the reconciliation worker
type StockDiscrepancyEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// AttemptExpiredEvent published when an attempt passes the payment
// window without a confirmation
type AttemptExpiredEvent struct {
	BaseEvent
	AttemptID     string `json:"attempt_id"`
	RemoteOrderID string `json:"remote_order_id"`
}
