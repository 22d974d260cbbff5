package service

import (
	"context"
	"testing"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(st *MockStore, gw *MockGateway, pub *MockPublisher) *CheckoutService {
	return NewCheckoutService(st, gw, pub, nil, testGatewayConfig(), 15*time.Minute)
}

func seedAttempt(st *MockStore, items []models.LineItem) *models.CheckoutAttempt {
	var total int64
	for _, item := range items {
		total += item.DiscountUnitPrice * int64(item.Quantity)
	}
	attempt := &models.CheckoutAttempt{
		ID:            "attempt-1",
		BuyerID:       42,
		TotalAmount:   total,
		Currency:      "INR",
		RemoteOrderID: "order_remote_1",
		Receipt:       "order_rcptid_1",
		Status:        models.AttemptStatusAwaitingPayment,
		CreatedAt:     time.Now(),
		Items:         items,
	}
	st.attempts[attempt.RemoteOrderID] = attempt
	return attempt
}

func validConfirm(attempt *models.CheckoutAttempt, paymentID string) *ConfirmPaymentRequest {
	return &ConfirmPaymentRequest{
		BuyerID: attempt.BuyerID,
		PaymentConfirmation: models.PaymentConfirmation{
			RemoteOrderID:   attempt.RemoteOrderID,
			RemotePaymentID: paymentID,
			Signature:       gateway.Signature(attempt.RemoteOrderID, paymentID, "test_secret"),
		},
	}
}

func TestBeginCheckout(t *testing.T) {
	st := NewMockStore()
	gw := &MockGateway{remoteOrderID: "order_remote_1"}
	pub := &MockPublisher{}
	svc := newTestService(st, gw, pub)

	resp, err := svc.Begin(context.Background(), &BeginCheckoutRequest{
		BuyerID: 42,
		Items: []models.LineItem{
			{ProductID: 1, SellerID: 7, Name: "widget", UnitPrice: 120, DiscountUnitPrice: 100, Quantity: 2},
			{ProductID: 2, SellerID: 7, Name: "gadget", UnitPrice: 60, DiscountUnitPrice: 50, Quantity: 1},
		},
		FrontendURL: "https://shop.example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "order_remote_1", resp.RemoteOrderID)
	assert.Equal(t, int64(250), resp.Amount)
	assert.Equal(t, "INR", resp.Currency)
	assert.Equal(t, "key_test_id", resp.GatewayKeyID)
	assert.Equal(t, "https://shop.example.com/shipping/confirm", resp.SuccessRedirect)
	assert.Equal(t, "https://shop.example.com/shipping/failed", resp.FailureRedirect)

	attempt := st.attempts["order_remote_1"]
	require.NotNil(t, attempt)
	assert.Equal(t, models.AttemptStatusAwaitingPayment, attempt.Status)
	assert.Equal(t, int64(250), attempt.TotalAmount)
	assert.Len(t, attempt.Items, 2)

	assert.Len(t, pub.started, 1)
	assert.Equal(t, int64(250), gw.lastRequest.Amount)
}

func TestBeginCheckoutRequiresBuyer(t *testing.T) {
	svc := newTestService(NewMockStore(), &MockGateway{remoteOrderID: "x"}, &MockPublisher{})

	_, err := svc.Begin(context.Background(), &BeginCheckoutRequest{
		Items: []models.LineItem{{ProductID: 1, DiscountUnitPrice: 100, Quantity: 1}},
	})

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestBeginCheckoutGatewayUnavailable(t *testing.T) {
	st := NewMockStore()
	gw := &MockGateway{err: gateway.ErrUnavailable}
	svc := newTestService(st, gw, &MockPublisher{})

	_, err := svc.Begin(context.Background(), &BeginCheckoutRequest{
		BuyerID: 42,
		Items:   []models.LineItem{{ProductID: 1, DiscountUnitPrice: 100, Quantity: 1}},
	})

	assert.ErrorIs(t, err, gateway.ErrUnavailable)
	// No attempt persisted: the caller may retry begin safely.
	assert.Empty(t, st.attempts)
}

func TestConfirmCommitsOrderAndStock(t *testing.T) {
	st := NewMockStore()
	pub := &MockPublisher{}
	svc := newTestService(st, &MockGateway{}, pub)

	attempt := seedAttempt(st, []models.LineItem{
		{ProductID: 1, DiscountUnitPrice: 100, Quantity: 2},
	})
	st.stock[1] = 10

	resp, err := svc.Confirm(context.Background(), validConfirm(attempt, "pay_1"))

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), resp.OrderID)

	order := st.orders[attempt.RemoteOrderID]
	require.NotNil(t, order)
	assert.Equal(t, attempt.TotalAmount, order.TotalAmount)
	assert.Equal(t, "pay_1", order.PaymentID)
	assert.Equal(t, attempt.BuyerID, order.BuyerID)

	assert.Equal(t, 8, st.stock[1])
	assert.Equal(t, models.AttemptStatusCommitted, attempt.Status)
	assert.Len(t, pub.verified, 1)
	assert.Len(t, pub.committed, 1)
	assert.Empty(t, pub.discrepancies)
}

func TestConfirmIdempotent(t *testing.T) {
	st := NewMockStore()
	svc := newTestService(st, &MockGateway{}, &MockPublisher{})

	attempt := seedAttempt(st, []models.LineItem{
		{ProductID: 1, DiscountUnitPrice: 100, Quantity: 2},
	})
	st.stock[1] = 10

	req := validConfirm(attempt, "pay_1")

	first, err := svc.Confirm(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.Confirm(context.Background(), req)
	require.NoError(t, err)

	// Exactly one order, both calls agree on it, stock decremented once.
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, st.orders, 1)
	assert.Equal(t, 2, st.decrements[1])
	assert.Equal(t, 8, st.stock[1])
}

func TestConfirmTamperedSignature(t *testing.T) {
	st := NewMockStore()
	pub := &MockPublisher{}
	svc := newTestService(st, &MockGateway{}, pub)

	attempt := seedAttempt(st, []models.LineItem{
		{ProductID: 1, DiscountUnitPrice: 100, Quantity: 2},
	})
	st.stock[1] = 10

	req := validConfirm(attempt, "pay_1")
	req.Signature = gateway.Signature(attempt.RemoteOrderID, "pay_other", "test_secret")

	_, err := svc.Confirm(context.Background(), req)

	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)
	assert.Empty(t, st.orders)
	assert.Empty(t, st.decrements)
	assert.Equal(t, 10, st.stock[1])
	assert.Equal(t, models.AttemptStatusRejected, attempt.Status)
	assert.Len(t, pub.rejected, 1)
}

func TestConfirmMissingStockRecord(t *testing.T) {
	st := NewMockStore()
	pub := &MockPublisher{}
	svc := newTestService(st, &MockGateway{}, pub)

	attempt := seedAttempt(st, []models.LineItem{
		{ProductID: 1, DiscountUnitPrice: 100, Quantity: 1},
		{ProductID: 2, DiscountUnitPrice: 100, Quantity: 2},
		{ProductID: 3, DiscountUnitPrice: 100, Quantity: 3},
	})
	// No stock record for product 2.
	st.stock[1] = 10
	st.stock[3] = 10

	resp, err := svc.Confirm(context.Background(), validConfirm(attempt, "pay_1"))

	// The buyer has paid: the order commits anyway.
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, st.orders[attempt.RemoteOrderID])

	// Items one and three are still decremented.
	assert.Equal(t, 9, st.stock[1])
	assert.Equal(t, 7, st.stock[3])
	assert.NotContains(t, st.decrements, int64(2))

	require.Len(t, pub.discrepancies, 1)
	assert.Equal(t, int64(2), pub.discrepancies[0].ProductID)
	assert.Equal(t, models.DiscrepancyMissingRecord, pub.discrepancies[0].Reason)
}

func TestConfirmOnRejectedAttempt(t *testing.T) {
	st := NewMockStore()
	svc := newTestService(st, &MockGateway{}, &MockPublisher{})

	attempt := seedAttempt(st, []models.LineItem{
		{ProductID: 1, DiscountUnitPrice: 100, Quantity: 1},
	})
	attempt.Status = models.AttemptStatusRejected
	st.stock[1] = 10

	_, err := svc.Confirm(context.Background(), validConfirm(attempt, "pay_1"))

	assert.ErrorIs(t, err, ErrAttemptClosed)
	assert.Empty(t, st.orders)
	assert.Empty(t, st.decrements)
}

func TestConfirmAfterPaymentWindow(t *testing.T) {
	st := NewMockStore()
	svc := newTestService(st, &MockGateway{}, &MockPublisher{})

	attempt := seedAttempt(st, []models.LineItem{
		{ProductID: 1, DiscountUnitPrice: 100, Quantity: 1},
	})
	attempt.CreatedAt = time.Now().Add(-20 * time.Minute)
	st.stock[1] = 10

	_, err := svc.Confirm(context.Background(), validConfirm(attempt, "pay_1"))

	assert.ErrorIs(t, err, ErrAttemptClosed)
	assert.Equal(t, models.AttemptStatusExpired, attempt.Status)
	assert.Empty(t, st.orders)
}

func TestConfirmUnknownRemoteOrder(t *testing.T) {
	svc := newTestService(NewMockStore(), &MockGateway{}, &MockPublisher{})

	_, err := svc.Confirm(context.Background(), &ConfirmPaymentRequest{
		PaymentConfirmation: models.PaymentConfirmation{
			RemoteOrderID:   "order_unknown",
			RemotePaymentID: "pay_1",
			Signature:       gateway.Signature("order_unknown", "pay_1", "test_secret"),
		},
	})

	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)
}

func TestConfirmRetryAfterCrashedCommit(t *testing.T) {
	st := NewMockStore()
	svc := newTestService(st, &MockGateway{}, &MockPublisher{})

	attempt := seedAttempt(st, []models.LineItem{
		{ProductID: 1, DiscountUnitPrice: 100, Quantity: 2},
	})
	// A previous confirm died after verification, before the commit.
	attempt.Status = models.AttemptStatusVerifying
	st.stock[1] = 10

	resp, err := svc.Confirm(context.Background(), validConfirm(attempt, "pay_1"))

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, models.AttemptStatusCommitted, attempt.Status)
	assert.Equal(t, 8, st.stock[1])
}

func TestConfirmAmountSourcedFromAttempt(t *testing.T) {
	st := NewMockStore()
	gw := &MockGateway{remoteOrderID: "order_remote_1"}
	svc := newTestService(st, gw, &MockPublisher{})

	_, err := svc.Begin(context.Background(), &BeginCheckoutRequest{
		BuyerID: 42,
		Items:   []models.LineItem{{ProductID: 1, DiscountUnitPrice: 100, Quantity: 3}},
	})
	require.NoError(t, err)
	st.stock[1] = 10

	attempt := st.attempts["order_remote_1"]
	resp, err := svc.Confirm(context.Background(), validConfirm(attempt, "pay_1"))
	require.NoError(t, err)

	// The persisted amount is what begin computed, regardless of
	// anything the confirm caller claims.
	order, err := st.GetOrderByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), order.TotalAmount)
	assert.Equal(t, gw.lastRequest.Amount, order.TotalAmount)
}

func TestConfirmShippingDefaults(t *testing.T) {
	st := NewMockStore()
	svc := newTestService(st, &MockGateway{}, &MockPublisher{})

	attempt := seedAttempt(st, []models.LineItem{
		{ProductID: 1, DiscountUnitPrice: 100, Quantity: 1},
	})
	st.stock[1] = 10

	_, err := svc.Confirm(context.Background(), validConfirm(attempt, "pay_1"))
	require.NoError(t, err)

	order := st.orders[attempt.RemoteOrderID]
	require.NotNil(t, order)
	assert.Equal(t, "Not Provided", order.Address)
	assert.Equal(t, "Not Provided", order.City)
}

func TestListOrders(t *testing.T) {
	st := NewMockStore()
	svc := newTestService(st, &MockGateway{}, &MockPublisher{})

	attempt := seedAttempt(st, []models.LineItem{
		{ProductID: 1, DiscountUnitPrice: 100, Quantity: 1},
	})
	st.stock[1] = 10

	_, err := svc.Confirm(context.Background(), validConfirm(attempt, "pay_1"))
	require.NoError(t, err)

	orders, err := svc.ListOrders(context.Background(), attempt.BuyerID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, attempt.RemoteOrderID, orders[0].RemoteOrderID)

	// Another buyer sees nothing.
	other, err := svc.ListOrders(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = svc.ListOrders(context.Background(), 0)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestConfirmShippingFromRequest(t *testing.T) {
	st := NewMockStore()
	svc := newTestService(st, &MockGateway{}, &MockPublisher{})

	attempt := seedAttempt(st, []models.LineItem{
		{ProductID: 1, DiscountUnitPrice: 100, Quantity: 1},
	})
	st.stock[1] = 10

	req := validConfirm(attempt, "pay_1")
	req.ShippingInfo = &models.ShippingInfo{
		Address: "12 MG Road",
		City:    "Bengaluru",
		State:   "KA",
		Country: "IN",
		Pincode: "560001",
		PhoneNo: "9999999999",
	}

	_, err := svc.Confirm(context.Background(), req)
	require.NoError(t, err)

	order := st.orders[attempt.RemoteOrderID]
	require.NotNil(t, order)
	assert.Equal(t, "12 MG Road", order.Address)
	assert.Equal(t, "Bengaluru", order.City)
}
