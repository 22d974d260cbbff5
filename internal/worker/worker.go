package worker

import (
	"context"
	"log"
	"time"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
)

// ReconciliationWorker is the downstream inventory audit process: it
// consumes stock discrepancy events emitted during commit and persists
// them for operational follow-up. Deduped through processed_events so
// redelivered messages write one audit row.
type ReconciliationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
}

// NewReconciliationWorker creates a new reconciliation worker
func NewReconciliationWorker(consumer *broker.Consumer, st *store.Store) *ReconciliationWorker {
	w := &ReconciliationWorker{
		consumer: consumer,
		store:    st,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockDiscrepancy(w.handleStockDiscrepancy)
	eventHandler.OnAttemptExpired(w.handleAttemptExpired)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *ReconciliationWorker) Start(ctx context.Context) error {
	log.Println("Starting reconciliation worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReconciliationWorker) Stop() error {
	log.Println("Stopping reconciliation worker...")
	return w.consumer.Close()
}

func (w *ReconciliationWorker) handleStockDiscrepancy(ctx context.Context, event *models.StockDiscrepancyEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		log.Printf("Event already processed: %s", event.EventID)
		return nil
	}

	discrepancy := &models.StockDiscrepancy{
		OrderID:   event.OrderID,
		ProductID: event.ProductID,
		Quantity:  event.Quantity,
		Reason:    event.Reason,
	}
	if err := w.store.RecordStockDiscrepancy(ctx, discrepancy); err != nil {
		return err
	}

	log.Printf("Recorded stock discrepancy: order=%d product=%d reason=%s",
		event.OrderID, event.ProductID, event.Reason)

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *ReconciliationWorker) handleAttemptExpired(ctx context.Context, event *models.AttemptExpiredEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	log.Printf("Attempt expired without confirmation: attempt=%s remote_order=%s",
		event.AttemptID, event.RemoteOrderID)

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// ExpiryWorker enforces the bounded payment window: attempts still
// awaiting payment past the window are moved to EXPIRED. The guarded
// status update means an attempt that just got confirmed is left alone.
type ExpiryWorker struct {
	store         *store.Store
	publisher     *broker.EventPublisher
	paymentWindow time.Duration
	interval      time.Duration
	done          chan struct{}
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(st *store.Store, publisher *broker.EventPublisher, paymentWindow, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		store:         st,
		publisher:     publisher,
		paymentWindow: paymentWindow,
		interval:      interval,
		done:          make(chan struct{}),
	}
}

// Start runs the periodic sweep until the context is cancelled
func (w *ExpiryWorker) Start(ctx context.Context) error {
	log.Println("Starting expiry worker...")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				log.Printf("Expiry sweep error: %v", err)
			}
		}
	}
}

// Stop stops the worker
func (w *ExpiryWorker) Stop() error {
	log.Println("Stopping expiry worker...")
	close(w.done)
	return nil
}

func (w *ExpiryWorker) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-w.paymentWindow)
	attempts, err := w.store.ListAwaitingOlderThan(ctx, cutoff, 100)
	if err != nil {
		return err
	}

	for _, attempt := range attempts {
		advanced, err := w.store.AdvanceAttemptStatus(ctx, attempt.ID,
			models.AttemptStatusAwaitingPayment, models.AttemptStatusExpired)
		if err != nil {
			log.Printf("Failed to expire attempt %s: %v", attempt.ID, err)
			continue
		}
		if !advanced {
			continue
		}

		util.AttemptsExpiredTotal.Inc()
		log.Printf("Attempt expired: %s", attempt.ID)

		event := &models.AttemptExpiredEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeAttemptExpired,
				Timestamp: time.Now(),
			},
			AttemptID:     attempt.ID,
			RemoteOrderID: attempt.RemoteOrderID,
		}
		if err := w.publisher.PublishAttemptExpired(ctx, event); err != nil {
			log.Printf("Failed to publish AttemptExpired event: %v", err)
		}
	}

	return nil
}
