package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Committer performs the two linked writes after a verified payment:
// append the order record, then decrement stock per line item. The
// buyer has already paid when this runs, so inventory problems are
// recorded and skipped, never turned into a checkout failure.
type Committer struct {
	store     Store
	publisher EventPublisher
	cache     ResultCache
	logger    *zap.Logger
}

// NewCommitter creates a reconciliation committer.
func NewCommitter(st Store, publisher EventPublisher, cache ResultCache) *Committer {
	return &Committer{
		store:     st,
		publisher: publisher,
		cache:     cache,
		logger:    util.GetLogger(),
	}
}

// Commit writes the order and applies the per-item stock decrements.
// The amount and line items come from the stored attempt, never from
// the confirm request. A duplicate commit (unique violation on
// remote_order_id) returns the existing order without touching stock.
func (c *Committer) Commit(ctx context.Context, vp *verifiedPayment, shipping models.ShippingInfo) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Committer.Commit")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CommitLatency.Observe(time.Since(start).Seconds())
	}()

	attempt := vp.attempt

	order := &models.Order{
		AttemptID:     attempt.ID,
		BuyerID:       attempt.BuyerID,
		RemoteOrderID: attempt.RemoteOrderID,
		PaymentID:     vp.paymentID,
		TotalAmount:   attempt.TotalAmount,
		ShippingInfo:  shipping,
	}

	err := c.store.CreateOrder(ctx, order, attempt.Items)
	if errors.Is(err, store.ErrDuplicateOrder) {
		// A concurrent confirm already committed this attempt. Not an
		// error: return the existing order and do not re-process stock.
		util.DuplicateConfirmsTotal.Inc()
		existing, getErr := c.store.GetOrderByRemoteOrderID(ctx, attempt.RemoteOrderID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load already-committed order: %w", getErr)
		}
		c.logger.Info("Duplicate commit collapsed",
			zap.String("attempt_id", attempt.ID),
			zap.Int64("order_id", existing.ID))
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCommittedTotal.Inc()
	c.logger.Info("Order committed",
		zap.Int64("order_id", order.ID),
		zap.String("attempt_id", attempt.ID),
		zap.Int64("amount", order.TotalAmount))

	c.decrementStock(ctx, order, attempt.Items)

	event := &models.OrderCommittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCommitted,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		AttemptID:     attempt.ID,
		BuyerID:       order.BuyerID,
		RemoteOrderID: order.RemoteOrderID,
		PaymentID:     order.PaymentID,
		TotalAmount:   order.TotalAmount,
	}
	if err := c.publisher.PublishOrderCommitted(ctx, event); err != nil {
		c.logger.Error("Failed to publish OrderCommitted event", zap.Error(err))
	}

	return order, nil
}

// decrementStock applies one atomic decrement per line item. Items are
// independent: a missing or failing row is recorded as a discrepancy
// for the audit worker and the remaining items still proceed.
func (c *Committer) decrementStock(ctx context.Context, order *models.Order, items []models.LineItem) {
	for _, item := range items {
		newStock, err := c.store.DecrementStock(ctx, item.ProductID, item.Quantity)
		switch {
		case errors.Is(err, store.ErrStockNotFound):
			c.recordDiscrepancy(ctx, order.ID, item, models.DiscrepancyMissingRecord)
			continue
		case err != nil:
			c.logger.Error("Stock decrement failed",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
			c.recordDiscrepancy(ctx, order.ID, item, models.DiscrepancyDecrementFailed)
			continue
		}

		util.StockDecrementsTotal.Inc()

		if newStock < 0 {
			c.recordDiscrepancy(ctx, order.ID, item, models.DiscrepancyOversold)
		}

		if c.cache != nil {
			if _, _, err := c.cache.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				c.logger.Warn("Failed to mirror stock decrement",
					zap.Int64("product_id", item.ProductID),
					zap.Error(err))
			}
		}
	}
}

func (c *Committer) recordDiscrepancy(ctx context.Context, orderID int64, item models.LineItem, reason string) {
	util.StockDiscrepanciesTotal.WithLabelValues(reason).Inc()
	c.logger.Warn("Stock discrepancy",
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", item.ProductID),
		zap.Int("quantity", item.Quantity),
		zap.String("reason", reason))

	event := &models.StockDiscrepancyEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockDiscrepancy,
			Timestamp: time.Now(),
		},
		OrderID:   orderID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Reason:    reason,
	}
	if err := c.publisher.PublishStockDiscrepancy(ctx, event); err != nil {
		c.logger.Error("Failed to publish StockDiscrepancy event", zap.Error(err))
	}
}
