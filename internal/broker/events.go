package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"checkout-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishCheckoutStarted publishes CheckoutStarted event
func (ep *EventPublisher) PublishCheckoutStarted(ctx context.Context, event *models.CheckoutStartedEvent) error {
	return ep.producer.PublishEvent(ctx, attemptKey(event.RemoteOrderID), event)
}

// PublishPaymentVerified publishes PaymentVerified event
func (ep *EventPublisher) PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error {
	return ep.producer.PublishEvent(ctx, attemptKey(event.RemoteOrderID), event)
}

// PublishPaymentRejected publishes PaymentRejected event
func (ep *EventPublisher) PublishPaymentRejected(ctx context.Context, event *models.PaymentRejectedEvent) error {
	return ep.producer.PublishEvent(ctx, attemptKey(event.RemoteOrderID), event)
}

// PublishOrderCommitted publishes OrderCommitted event
func (ep *EventPublisher) PublishOrderCommitted(ctx context.Context, event *models.OrderCommittedEvent) error {
	return ep.producer.PublishEvent(ctx, attemptKey(event.RemoteOrderID), event)
}

// PublishStockDiscrepancy publishes StockDiscrepancy event
func (ep *EventPublisher) PublishStockDiscrepancy(ctx context.Context, event *models.StockDiscrepancyEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishAttemptExpired publishes AttemptExpired event
func (ep *EventPublisher) PublishAttemptExpired(ctx context.Context, event *models.AttemptExpiredEvent) error {
	return ep.producer.PublishEvent(ctx, attemptKey(event.RemoteOrderID), event)
}

// attemptKey partitions all events of one attempt onto one key so they
// stay ordered.
func attemptKey(remoteOrderID string) string {
	return fmt.Sprintf("attempt-%s", remoteOrderID)
}

// EventHandler handles incoming events
type EventHandler struct {
	onStockDiscrepancy func(context.Context, *models.StockDiscrepancyEvent) error
	onAttemptExpired   func(context.Context, *models.AttemptExpiredEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnStockDiscrepancy registers a handler for StockDiscrepancy events
func (eh *EventHandler) OnStockDiscrepancy(handler func(context.Context, *models.StockDiscrepancyEvent) error) {
	eh.onStockDiscrepancy = handler
}

// OnAttemptExpired registers a handler for AttemptExpired events
func (eh *EventHandler) OnAttemptExpired(handler func(context.Context, *models.AttemptExpiredEvent) error) {
	eh.onAttemptExpired = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeStockDiscrepancy:
		if eh.onStockDiscrepancy != nil {
			var event models.StockDiscrepancyEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockDiscrepancy event: %w", err)
			}
			return eh.onStockDiscrepancy(ctx, &event)
		}

	case models.EventTypeAttemptExpired:
		if eh.onAttemptExpired != nil {
			var event models.AttemptExpiredEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal AttemptExpired event: %w", err)
			}
			return eh.onAttemptExpired(ctx, &event)
		}

	default:
		// Events this service publishes for other consumers land here.
	}

	return nil
}
