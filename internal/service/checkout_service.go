package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/config"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const confirmResultTTL = 24 * time.Hour

// CheckoutService orchestrates one checkout attempt from cart
// submission to a terminal outcome: begin creates the remote order,
// confirm verifies the gateway confirmation and commits it.
type CheckoutService struct {
	store         Store
	gateway       GatewayClient
	publisher     EventPublisher
	cache         ResultCache
	builder       *DraftBuilder
	verifier      *Verifier
	committer     *Committer
	currency      string
	paymentWindow time.Duration
	logger        *zap.Logger
}

// NewCheckoutService wires the orchestrator.
func NewCheckoutService(
	st Store,
	gw GatewayClient,
	publisher EventPublisher,
	cache ResultCache,
	gatewayCfg config.GatewayConfig,
	paymentWindow time.Duration,
) *CheckoutService {
	return &CheckoutService{
		store:         st,
		gateway:       gw,
		publisher:     publisher,
		cache:         cache,
		builder:       NewDraftBuilder(gatewayCfg),
		verifier:      NewVerifier(gatewayCfg.KeySecret),
		committer:     NewCommitter(st, publisher, cache),
		currency:      gatewayCfg.Currency,
		paymentWindow: paymentWindow,
		logger:        util.GetLogger(),
	}
}

// BeginCheckoutRequest carries a validated buyer identity (installed by
// the auth middleware) plus the cart as submitted.
type BeginCheckoutRequest struct {
	BuyerID       int64
	Items         []models.LineItem    `json:"items"`
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
	CustomerPhone string               `json:"customer_phone"`
	FrontendURL   string               `json:"frontend_url"`
	ShippingInfo  *models.ShippingInfo `json:"shipping_info,omitempty"`
}

// BeginCheckoutResponse carries everything the client-side gateway
// widget needs.
type BeginCheckoutResponse struct {
	RemoteOrderID   string `json:"remote_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	GatewayKeyID    string `json:"gateway_key_id"`
	SuccessRedirect string `json:"success_redirect,omitempty"`
	FailureRedirect string `json:"failure_redirect,omitempty"`
}

// ConfirmPaymentRequest relays the gateway confirmation after the
// external payment flow. LineItems and Amount are accepted for wire
// compatibility but deliberately ignored: the stored attempt is the
// only source of prices and quantities at commit time.
type ConfirmPaymentRequest struct {
	BuyerID int64 `json:"-"`
	models.PaymentConfirmation
	LineItems    []models.LineItem    `json:"line_items,omitempty"`
	Amount       int64                `json:"amount,omitempty"`
	ShippingInfo *models.ShippingInfo `json:"shipping_info,omitempty"`
}

// ConfirmPaymentResponse is the terminal success result.
type ConfirmPaymentResponse struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"order_id"`
}

// Begin validates the cart, creates the remote order at the gateway and
// persists the attempt in AWAITING_PAYMENT. Gateway failures happen
// before any attempt is persisted, so the caller can simply retry;
// a retry produces a new, distinct attempt.
func (s *CheckoutService) Begin(ctx context.Context, req *BeginCheckoutRequest) (*BeginCheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Begin")
	defer span.End()

	if req.BuyerID == 0 {
		return nil, ErrUnauthorized
	}

	contact := CustomerContact{
		Name:  req.CustomerName,
		Email: req.CustomerEmail,
		Phone: req.CustomerPhone,
	}

	draft, err := s.builder.Build(req.Items, contact, req.FrontendURL)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("invalid_cart").Inc()
		return nil, err
	}

	remote, err := s.gateway.CreateRemoteOrder(ctx, draft.Request)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("gateway").Inc()
		return nil, err
	}

	attempt := &models.CheckoutAttempt{
		ID:            uuid.New().String(),
		BuyerID:       req.BuyerID,
		TotalAmount:   draft.Total,
		Currency:      s.currency,
		RemoteOrderID: remote.ID,
		Receipt:       draft.Receipt,
		Status:        models.AttemptStatusAwaitingPayment,
		Items:         draft.Items,
	}
	if req.ShippingInfo != nil {
		attempt.ShippingInfo = *req.ShippingInfo
	}

	if err := s.store.CreateAttempt(ctx, attempt); err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to persist checkout attempt: %w", err)
	}

	util.CheckoutsBegunTotal.Inc()
	s.logger.Info("Checkout begun",
		zap.String("attempt_id", attempt.ID),
		zap.String("remote_order_id", remote.ID),
		zap.Int64("amount", draft.Total))

	event := &models.CheckoutStartedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCheckoutStarted,
			Timestamp: time.Now(),
		},
		AttemptID:     attempt.ID,
		BuyerID:       attempt.BuyerID,
		RemoteOrderID: attempt.RemoteOrderID,
		TotalAmount:   attempt.TotalAmount,
		Currency:      attempt.Currency,
	}
	if err := s.publisher.PublishCheckoutStarted(ctx, event); err != nil {
		s.logger.Error("Failed to publish CheckoutStarted event", zap.Error(err))
	}

	return &BeginCheckoutResponse{
		RemoteOrderID:   remote.ID,
		Amount:          draft.Total,
		Currency:        s.currency,
		GatewayKeyID:    s.gateway.KeyID(),
		SuccessRedirect: draft.SuccessURL,
		FailureRedirect: draft.FailureURL,
	}, nil
}

// Confirm verifies a gateway confirmation and commits the attempt. Safe
// under concurrent duplicate invocation: the unique constraint on the
// persisted order is the sole dedup mechanism, and a confirm replayed
// against a committed attempt returns the prior result.
func (s *CheckoutService) Confirm(ctx context.Context, req *ConfirmPaymentRequest) (*ConfirmPaymentResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Confirm")
	defer span.End()

	remoteOrderID := req.RemoteOrderID

	if s.cache != nil && remoteOrderID != "" {
		if orderID, ok, err := s.cache.GetConfirmResult(ctx, remoteOrderID); err == nil && ok {
			util.DuplicateConfirmsTotal.Inc()
			return &ConfirmPaymentResponse{Success: true, OrderID: orderID}, nil
		}
	}

	attempt, err := s.store.GetAttemptByRemoteOrderID(ctx, remoteOrderID)
	if errors.Is(err, store.ErrAttemptNotFound) {
		// Unknown handle: fail closed, reveal nothing.
		return nil, ErrPaymentVerificationFailed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout attempt: %w", err)
	}

	switch attempt.Status {
	case models.AttemptStatusCommitted:
		return s.priorResult(ctx, attempt)

	case models.AttemptStatusRejected, models.AttemptStatusExpired:
		return nil, ErrAttemptClosed

	case models.AttemptStatusAwaitingPayment:
		if s.expired(attempt) {
			if _, err := s.store.AdvanceAttemptStatus(ctx, attempt.ID,
				models.AttemptStatusAwaitingPayment, models.AttemptStatusExpired); err != nil {
				return nil, fmt.Errorf("failed to expire attempt: %w", err)
			}
			util.AttemptsExpiredTotal.Inc()
			s.logger.Info("Confirmation arrived after payment window",
				zap.String("attempt_id", attempt.ID))
			return nil, ErrAttemptClosed
		}

		advanced, err := s.store.AdvanceAttemptStatus(ctx, attempt.ID,
			models.AttemptStatusAwaitingPayment, models.AttemptStatusVerifying)
		if err != nil {
			return nil, fmt.Errorf("failed to advance attempt: %w", err)
		}
		if !advanced {
			// Lost a race with another confirm; re-read and let the
			// commit path's uniqueness constraint collapse duplicates.
			attempt, err = s.store.GetAttemptByRemoteOrderID(ctx, remoteOrderID)
			if err != nil {
				return nil, fmt.Errorf("failed to reload checkout attempt: %w", err)
			}
			switch attempt.Status {
			case models.AttemptStatusCommitted:
				return s.priorResult(ctx, attempt)
			case models.AttemptStatusRejected, models.AttemptStatusExpired:
				return nil, ErrAttemptClosed
			}
		}

	case models.AttemptStatusVerifying:
		// A previous confirm is in flight or died mid-commit. Proceed:
		// re-verification is harmless and the order write dedupes.

	default:
		return nil, ErrPaymentVerificationFailed
	}

	return s.verifyAndCommit(ctx, attempt, req)
}

func (s *CheckoutService) verifyAndCommit(ctx context.Context, attempt *models.CheckoutAttempt, req *ConfirmPaymentRequest) (*ConfirmPaymentResponse, error) {
	vp, err := s.verifier.Verify(attempt, &req.PaymentConfirmation)
	if err != nil {
		util.PaymentsRejectedTotal.Inc()
		if _, advErr := s.store.AdvanceAttemptStatus(ctx, attempt.ID,
			models.AttemptStatusVerifying, models.AttemptStatusRejected); advErr != nil {
			s.logger.Error("Failed to reject attempt", zap.Error(advErr))
		}

		event := &models.PaymentRejectedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePaymentRejected,
				Timestamp: time.Now(),
			},
			AttemptID:     attempt.ID,
			RemoteOrderID: attempt.RemoteOrderID,
			Reason:        "verification_failed",
		}
		if pubErr := s.publisher.PublishPaymentRejected(ctx, event); pubErr != nil {
			s.logger.Error("Failed to publish PaymentRejected event", zap.Error(pubErr))
		}
		return nil, err
	}

	util.PaymentsVerifiedTotal.Inc()
	verifiedEvent := &models.PaymentVerifiedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentVerified,
			Timestamp: time.Now(),
		},
		AttemptID:     attempt.ID,
		RemoteOrderID: attempt.RemoteOrderID,
		PaymentID:     req.RemotePaymentID,
	}
	if err := s.publisher.PublishPaymentVerified(ctx, verifiedEvent); err != nil {
		s.logger.Error("Failed to publish PaymentVerified event", zap.Error(err))
	}

	order, err := s.committer.Commit(ctx, vp, s.resolveShipping(attempt, req.ShippingInfo))
	if err != nil {
		// The attempt stays in VERIFYING: the buyer has paid, so the
		// caller must be able to retry confirm safely.
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	if _, err := s.store.AdvanceAttemptStatus(ctx, attempt.ID,
		models.AttemptStatusVerifying, models.AttemptStatusCommitted); err != nil {
		s.logger.Error("Failed to mark attempt committed", zap.Error(err))
	}

	s.cacheResult(ctx, attempt.RemoteOrderID, order.ID)

	return &ConfirmPaymentResponse{Success: true, OrderID: order.ID}, nil
}

// priorResult answers a confirm replay against a committed attempt with
// the order it already produced.
func (s *CheckoutService) priorResult(ctx context.Context, attempt *models.CheckoutAttempt) (*ConfirmPaymentResponse, error) {
	util.DuplicateConfirmsTotal.Inc()
	order, err := s.store.GetOrderByRemoteOrderID(ctx, attempt.RemoteOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load committed order: %w", err)
	}
	s.cacheResult(ctx, attempt.RemoteOrderID, order.ID)
	return &ConfirmPaymentResponse{Success: true, OrderID: order.ID}, nil
}

func (s *CheckoutService) cacheResult(ctx context.Context, remoteOrderID string, orderID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetConfirmResult(ctx, remoteOrderID, orderID, confirmResultTTL); err != nil {
		s.logger.Warn("Failed to cache confirm result", zap.Error(err))
	}
}

func (s *CheckoutService) expired(attempt *models.CheckoutAttempt) bool {
	return s.paymentWindow > 0 && time.Since(attempt.CreatedAt) > s.paymentWindow
}

// resolveShipping picks the shipping contact for the order: the confirm
// request's if present, else the one captured at begin, else the
// placeholder contact.
func (s *CheckoutService) resolveShipping(attempt *models.CheckoutAttempt, supplied *models.ShippingInfo) models.ShippingInfo {
	if supplied != nil && supplied.Address != "" {
		return *supplied
	}
	if attempt.Address != "" {
		return attempt.ShippingInfo
	}
	return defaultShipping()
}

func defaultShipping() models.ShippingInfo {
	const notProvided = "Not Provided"
	return models.ShippingInfo{
		Address: notProvided,
		City:    notProvided,
		State:   notProvided,
		Country: notProvided,
		Pincode: notProvided,
		PhoneNo: notProvided,
	}
}

// ListOrders retrieves all committed orders for a buyer, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, buyerID int64) ([]models.Order, error) {
	if buyerID == 0 {
		return nil, ErrUnauthorized
	}
	return s.store.GetOrdersByBuyerID(ctx, buyerID)
}

// GetOrder retrieves a committed order with its items.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}
