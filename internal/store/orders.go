package store

import (
	"context"
	"database/sql"
	"fmt"

	"checkout-service/internal/models"
)

// CreateOrder appends the purchase record and its items in one
// transaction. The unique constraint on remote_order_id is the sole
// correctness mechanism for concurrent duplicate commits: the losing
// writer gets ErrDuplicateOrder and must return the existing order.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.LineItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (attempt_id, buyer_id, remote_order_id, payment_id, total_amount,
			ship_address, ship_city, ship_state, ship_country, ship_pincode, ship_phone_no, ship_landmark)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err = tx.QueryRowxContext(ctx, query,
		order.AttemptID, order.BuyerID, order.RemoteOrderID, order.PaymentID, order.TotalAmount,
		order.Address, order.City, order.State, order.Country,
		order.Pincode, order.PhoneNo, order.Landmark).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateOrder, order.RemoteOrderID)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, seller_id, name, image, brand, unit_price, discount_unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			order.ID, item.ProductID, item.SellerID, item.Name, item.Image,
			item.Brand, item.UnitPrice, item.DiscountUnitPrice, item.Quantity); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByRemoteOrderID retrieves the order committed for a remote
// order handle, if any.
func (s *Store) GetOrderByRemoteOrderID(ctx context.Context, remoteOrderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE remote_order_id = $1", remoteOrderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: remote order %s", ErrOrderNotFound, remoteOrderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetOrdersByBuyerID retrieves orders for a buyer
func (s *Store) GetOrdersByBuyerID(ctx context.Context, buyerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC", buyerID)
	return orders, err
}
