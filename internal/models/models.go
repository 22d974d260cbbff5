package models

import "time"

// LineItem is a single cart line submitted to a checkout attempt.
// Immutable once the attempt is created.
type LineItem struct {
	ProductID         int64  `db:"product_id" json:"product_id"`
	SellerID          int64  `db:"seller_id" json:"seller_id"`
	Name              string `db:"name" json:"name"`
	Image             string `db:"image" json:"image,omitempty"`
	Brand             string `db:"brand" json:"brand,omitempty"`
	UnitPrice         int64  `db:"unit_price" json:"unit_price"`
	DiscountUnitPrice int64  `db:"discount_unit_price" json:"discount_unit_price"`
	Quantity          int    `db:"quantity" json:"quantity"`
}

// ShippingInfo is the delivery contact attached to an order.
type ShippingInfo struct {
	Address  string `db:"ship_address" json:"address"`
	City     string `db:"ship_city" json:"city"`
	State    string `db:"ship_state" json:"state"`
	Country  string `db:"ship_country" json:"country"`
	Pincode  string `db:"ship_pincode" json:"pincode"`
	PhoneNo  string `db:"ship_phone_no" json:"phone_no"`
	Landmark string `db:"ship_landmark" json:"landmark,omitempty"`
}

// CheckoutAttempt is one checkout lifecycle instance, from cart
// submission to a terminal outcome. Attempts are never deleted, only
// terminated, so duplicate confirmations can be answered from them.
// RemoteOrderID is assigned exactly once by the gateway and is the
// idempotency key for the whole attempt.
type CheckoutAttempt struct {
	ID            string `db:"id" json:"id"`
	BuyerID       int64  `db:"buyer_id" json:"buyer_id"`
	TotalAmount   int64  `db:"total_amount" json:"total_amount"`
	Currency      string `db:"currency" json:"currency"`
	RemoteOrderID string `db:"remote_order_id" json:"remote_order_id"`
	Receipt       string `db:"receipt" json:"receipt"`
	Status        string `db:"status" json:"status"`
	ShippingInfo
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	Items     []LineItem `db:"-" json:"items"`
}

// Attempt statuses. Transitions only advance, never regress.
const (
	AttemptStatusDraft           = "DRAFT"
	AttemptStatusAwaitingPayment = "AWAITING_PAYMENT"
	AttemptStatusVerifying       = "VERIFYING"
	AttemptStatusCommitted       = "COMMITTED"
	AttemptStatusRejected        = "REJECTED"
	AttemptStatusExpired         = "EXPIRED"
)

// PaymentConfirmation is the gateway confirmation as relayed by the
// caller after the external payment flow. Untrusted until verified.
type PaymentConfirmation struct {
	RemoteOrderID   string `json:"remote_order_id"`
	RemotePaymentID string `json:"remote_payment_id"`
	Signature       string `json:"signature"`
}

// Order is the persisted purchase record. Append-only: created exactly
// once per verified attempt, never mutated afterwards.
type Order struct {
	ID            int64  `db:"id" json:"id"`
	AttemptID     string `db:"attempt_id" json:"attempt_id"`
	BuyerID       int64  `db:"buyer_id" json:"buyer_id"`
	RemoteOrderID string `db:"remote_order_id" json:"remote_order_id"`
	PaymentID     string `db:"payment_id" json:"payment_id"`
	TotalAmount   int64  `db:"total_amount" json:"total_amount"`
	ShippingInfo
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrderItem is a purchased line item persisted with its order.
type OrderItem struct {
	ID      int64 `db:"id" json:"id"`
	OrderID int64 `db:"order_id" json:"order_id"`
	LineItem
}

// StockRecord is the catalog collaborator's per-product inventory row.
type StockRecord struct {
	ProductID int64     `db:"product_id" json:"product_id"`
	Stock     int       `db:"stock" json:"stock"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StockDiscrepancy is an inventory anomaly noticed during commit and
// left for the downstream audit process. Recording one never fails the
// checkout: the buyer has already paid.
type StockDiscrepancy struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Discrepancy reasons.
const (
	DiscrepancyMissingRecord   = "missing_record"
	DiscrepancyOversold        = "oversold"
	DiscrepancyDecrementFailed = "decrement_failed"
)

// ProcessedEvent for consumer-side event idempotency.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
