package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"checkout-service/internal/models"
)

// CreateAttempt persists a checkout attempt and its line items in one
// transaction. The unique index on remote_order_id enforces the 1:1
// mapping between attempts and remote orders.
func (s *Store) CreateAttempt(ctx context.Context, attempt *models.CheckoutAttempt) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO attempts (id, buyer_id, total_amount, currency, remote_order_id, receipt, status,
			ship_address, ship_city, ship_state, ship_country, ship_pincode, ship_phone_no, ship_landmark)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		attempt.ID, attempt.BuyerID, attempt.TotalAmount, attempt.Currency,
		attempt.RemoteOrderID, attempt.Receipt, attempt.Status,
		attempt.Address, attempt.City, attempt.State, attempt.Country,
		attempt.Pincode, attempt.PhoneNo, attempt.Landmark).
		Scan(&attempt.CreatedAt, &attempt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}

	itemQuery := `
		INSERT INTO attempt_items (attempt_id, product_id, seller_id, name, image, brand, unit_price, discount_unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, item := range attempt.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			attempt.ID, item.ProductID, item.SellerID, item.Name, item.Image,
			item.Brand, item.UnitPrice, item.DiscountUnitPrice, item.Quantity); err != nil {
			return fmt.Errorf("failed to insert attempt item: %w", err)
		}
	}

	return tx.Commit()
}

// GetAttemptByRemoteOrderID retrieves an attempt with its line items
func (s *Store) GetAttemptByRemoteOrderID(ctx context.Context, remoteOrderID string) (*models.CheckoutAttempt, error) {
	var attempt models.CheckoutAttempt
	err := s.db.GetContext(ctx, &attempt,
		"SELECT * FROM attempts WHERE remote_order_id = $1", remoteOrderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, remoteOrderID)
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &attempt.Items,
		"SELECT product_id, seller_id, name, image, brand, unit_price, discount_unit_price, quantity FROM attempt_items WHERE attempt_id = $1 ORDER BY id",
		attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt items: %w", err)
	}

	return &attempt, nil
}

// AdvanceAttemptStatus moves an attempt forward, guarded by the current
// status so a concurrent transition can never regress the state machine.
// Returns false when the attempt was not in the expected status.
func (s *Store) AdvanceAttemptStatus(ctx context.Context, attemptID, from, to string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE attempts SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		to, attemptID, from)
	if err != nil {
		return false, fmt.Errorf("failed to advance attempt status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ListAwaitingOlderThan returns attempts still awaiting payment that
// were created before the cutoff. Used by the expiry sweeper.
func (s *Store) ListAwaitingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutAttempt, error) {
	var attempts []models.CheckoutAttempt
	err := s.db.SelectContext(ctx, &attempts,
		"SELECT * FROM attempts WHERE status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3",
		models.AttemptStatusAwaitingPayment, cutoff, limit)
	return attempts, err
}
