package service

import (
	"fmt"
	"strings"
	"time"

	"checkout-service/config"
	"checkout-service/internal/gateway"
	"checkout-service/internal/models"

	"github.com/google/uuid"
)

// OrderDraft is a validated cart with its authoritative total and the
// gateway order request derived from it.
type OrderDraft struct {
	Items      []models.LineItem
	Total      int64
	Receipt    string
	Request    *gateway.OrderRequest
	SuccessURL string
	FailureURL string
}

// CustomerContact is forwarded to the gateway as order notes.
type CustomerContact struct {
	Name  string
	Email string
	Phone string
}

// DraftBuilder validates proposed line items and computes the
// authoritative total. The total is computed here, once, and never
// recomputed from client-supplied numbers at commit time.
type DraftBuilder struct {
	currency  string
	minAmount int64
}

// NewDraftBuilder creates a draft builder with the gateway's currency
// and minimum chargeable amount.
func NewDraftBuilder(cfg config.GatewayConfig) *DraftBuilder {
	return &DraftBuilder{
		currency:  cfg.Currency,
		minAmount: cfg.MinAmount,
	}
}

// Build validates the line items, computes the total and produces the
// gateway order request.
func (b *DraftBuilder) Build(items []models.LineItem, contact CustomerContact, frontendURL string) (*OrderDraft, error) {
	if len(items) == 0 {
		return nil, &InvalidCartError{Index: -1, Reason: "no line items"}
	}

	var total int64
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, &InvalidCartError{Index: i, Reason: "quantity must be positive"}
		}
		if item.DiscountUnitPrice < 0 || item.UnitPrice < 0 {
			return nil, &InvalidCartError{Index: i, Reason: "price must be non-negative"}
		}
		total += item.DiscountUnitPrice * int64(item.Quantity)
	}

	if total < b.minAmount {
		return nil, fmt.Errorf("%w: total %d, minimum %d", ErrBelowMinimumAmount, total, b.minAmount)
	}

	receipt := newReceipt()

	notes := map[string]string{}
	if contact.Name != "" {
		notes["customer_name"] = contact.Name
	}
	if contact.Email != "" {
		notes["customer_email"] = contact.Email
	}
	if contact.Phone != "" {
		notes["customer_phone"] = contact.Phone
	}

	draft := &OrderDraft{
		Items:   items,
		Total:   total,
		Receipt: receipt,
		Request: &gateway.OrderRequest{
			Amount:         total,
			Currency:       b.currency,
			Receipt:        receipt,
			PaymentCapture: 1,
			Notes:          notes,
		},
	}

	if origin := strings.TrimRight(frontendURL, "/"); origin != "" {
		draft.SuccessURL = origin + "/shipping/confirm"
		draft.FailureURL = origin + "/shipping/failed"
	}

	return draft, nil
}

// newReceipt builds an opaque receipt label unique per attempt.
// Uniqueness, not secrecy, is the requirement.
func newReceipt() string {
	return fmt.Sprintf("order_rcptid_%d_%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}
