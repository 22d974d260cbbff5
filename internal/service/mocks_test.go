package service

import (
	"context"
	"fmt"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
)

// MockStore implements Store for testing
type MockStore struct {
	attempts   map[string]*models.CheckoutAttempt
	orders     map[string]*models.Order
	orderItems map[int64][]models.OrderItem
	stock      map[int64]int
	decrements map[int64]int

	nextOrderID      int64
	createAttemptErr error
	createOrderErr   error
	decrementErr     error
}

func NewMockStore() *MockStore {
	return &MockStore{
		attempts:   make(map[string]*models.CheckoutAttempt),
		orders:     make(map[string]*models.Order),
		orderItems: make(map[int64][]models.OrderItem),
		stock:      make(map[int64]int),
		decrements: make(map[int64]int),
	}
}

func (m *MockStore) CreateAttempt(_ context.Context, attempt *models.CheckoutAttempt) error {
	if m.createAttemptErr != nil {
		return m.createAttemptErr
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	m.attempts[attempt.RemoteOrderID] = attempt
	return nil
}

func (m *MockStore) GetAttemptByRemoteOrderID(_ context.Context, remoteOrderID string) (*models.CheckoutAttempt, error) {
	attempt, ok := m.attempts[remoteOrderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrAttemptNotFound, remoteOrderID)
	}
	return attempt, nil
}

func (m *MockStore) AdvanceAttemptStatus(_ context.Context, attemptID, from, to string) (bool, error) {
	for _, attempt := range m.attempts {
		if attempt.ID == attemptID {
			if attempt.Status != from {
				return false, nil
			}
			attempt.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *MockStore) CreateOrder(_ context.Context, order *models.Order, items []models.LineItem) error {
	if m.createOrderErr != nil {
		return m.createOrderErr
	}
	if _, exists := m.orders[order.RemoteOrderID]; exists {
		return fmt.Errorf("%w: %s", store.ErrDuplicateOrder, order.RemoteOrderID)
	}
	m.nextOrderID++
	order.ID = m.nextOrderID
	order.CreatedAt = time.Now()
	m.orders[order.RemoteOrderID] = order

	for _, item := range items {
		m.orderItems[order.ID] = append(m.orderItems[order.ID], models.OrderItem{
			OrderID:  order.ID,
			LineItem: item,
		})
	}
	return nil
}

func (m *MockStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	for _, order := range m.orders {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", store.ErrOrderNotFound, id)
}

func (m *MockStore) GetOrderByRemoteOrderID(_ context.Context, remoteOrderID string) (*models.Order, error) {
	order, ok := m.orders[remoteOrderID]
	if !ok {
		return nil, fmt.Errorf("%w: remote order %s", store.ErrOrderNotFound, remoteOrderID)
	}
	return order, nil
}

func (m *MockStore) GetOrderItemsByOrderID(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	return m.orderItems[orderID], nil
}

func (m *MockStore) GetOrdersByBuyerID(_ context.Context, buyerID int64) ([]models.Order, error) {
	var out []models.Order
	for _, order := range m.orders {
		if order.BuyerID == buyerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *MockStore) DecrementStock(_ context.Context, productID int64, quantity int) (int, error) {
	if m.decrementErr != nil {
		return 0, m.decrementErr
	}
	current, ok := m.stock[productID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", store.ErrStockNotFound, productID)
	}
	current -= quantity
	m.stock[productID] = current
	m.decrements[productID] += quantity
	return current, nil
}

// MockGateway implements GatewayClient for testing
type MockGateway struct {
	remoteOrderID string
	err           error
	lastRequest   *gateway.OrderRequest
	calls         int
}

func (m *MockGateway) CreateRemoteOrder(_ context.Context, req *gateway.OrderRequest) (*gateway.RemoteOrder, error) {
	m.calls++
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return &gateway.RemoteOrder{
		ID:       m.remoteOrderID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (m *MockGateway) KeyID() string {
	return "key_test_id"
}

// MockPublisher implements EventPublisher for testing
type MockPublisher struct {
	started       []*models.CheckoutStartedEvent
	verified      []*models.PaymentVerifiedEvent
	rejected      []*models.PaymentRejectedEvent
	committed     []*models.OrderCommittedEvent
	discrepancies []*models.StockDiscrepancyEvent
}

func (m *MockPublisher) PublishCheckoutStarted(_ context.Context, e *models.CheckoutStartedEvent) error {
	m.started = append(m.started, e)
	return nil
}

func (m *MockPublisher) PublishPaymentVerified(_ context.Context, e *models.PaymentVerifiedEvent) error {
	m.verified = append(m.verified, e)
	return nil
}

func (m *MockPublisher) PublishPaymentRejected(_ context.Context, e *models.PaymentRejectedEvent) error {
	m.rejected = append(m.rejected, e)
	return nil
}

func (m *MockPublisher) PublishOrderCommitted(_ context.Context, e *models.OrderCommittedEvent) error {
	m.committed = append(m.committed, e)
	return nil
}

func (m *MockPublisher) PublishStockDiscrepancy(_ context.Context, e *models.StockDiscrepancyEvent) error {
	m.discrepancies = append(m.discrepancies, e)
	return nil
}
