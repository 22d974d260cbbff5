package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrAttemptNotFound = errors.New("checkout attempt not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrStockNotFound   = errors.New("stock record not found")

	// ErrDuplicateOrder signals the unique constraint on
	// orders.remote_order_id fired: the attempt was already committed.
	ErrDuplicateOrder = errors.New("order already exists for remote order")
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// GetStock retrieves the stock record for a product
func (s *Store) GetStock(ctx context.Context, productID int64) (*models.StockRecord, error) {
	var rec models.StockRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM inventory WHERE product_id = $1", productID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrStockNotFound, productID)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DecrementStock atomically subtracts quantity from a product's stock
// row and returns the resulting level. A single UPDATE per row, no lock
// held across items. Negative results are allowed: an already-paid order
// is never refused for inventory lag, the caller records the anomaly.
func (s *Store) DecrementStock(ctx context.Context, productID int64, quantity int) (int, error) {
	var newStock int
	err := s.db.GetContext(ctx, &newStock,
		"UPDATE inventory SET stock = stock - $1, updated_at = NOW() WHERE product_id = $2 RETURNING stock",
		quantity, productID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: %d", ErrStockNotFound, productID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to decrement stock for product %d: %w", productID, err)
	}
	return newStock, nil
}

// RecordStockDiscrepancy appends an inventory anomaly for the downstream
// audit process.
func (s *Store) RecordStockDiscrepancy(ctx context.Context, d *models.StockDiscrepancy) error {
	query := `
		INSERT INTO stock_discrepancies (order_id, product_id, quantity, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, d, query, d.OrderID, d.ProductID, d.Quantity, d.Reason)
}

// GetStockDiscrepancies retrieves recorded anomalies for an order
func (s *Store) GetStockDiscrepancies(ctx context.Context, orderID int64) ([]models.StockDiscrepancy, error) {
	var out []models.StockDiscrepancy
	err := s.db.SelectContext(ctx, &out,
		"SELECT * FROM stock_discrepancies WHERE order_id = $1 ORDER BY id", orderID)
	return out, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
