package service

import (
	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// verifiedPayment is the token handed from the verifier to the
// committer. Unexported so nothing outside this package can mint one.
type verifiedPayment struct {
	attempt   *models.CheckoutAttempt
	paymentID string
}

// Verifier accepts or rejects a gateway payment confirmation by
// recomputing the expected signature. Fails closed: any missing field,
// identity mismatch or signature mismatch rejects the confirmation, and
// the caller is never told which.
type Verifier struct {
	secret string
	logger *zap.Logger
}

// NewVerifier creates a verifier bound to the gateway shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: secret,
		logger: util.GetLogger(),
	}
}

// Verify checks a confirmation against its attempt. On success it
// returns the verified-payment token consumed by the committer; on any
// failure it returns ErrPaymentVerificationFailed.
func (v *Verifier) Verify(attempt *models.CheckoutAttempt, conf *models.PaymentConfirmation) (*verifiedPayment, error) {
	if conf.RemoteOrderID == "" || conf.RemotePaymentID == "" || conf.Signature == "" {
		v.logger.Warn("Payment confirmation missing fields",
			zap.String("attempt_id", attempt.ID))
		return nil, ErrPaymentVerificationFailed
	}

	if conf.RemoteOrderID != attempt.RemoteOrderID {
		v.logger.Warn("Payment confirmation for wrong remote order",
			zap.String("attempt_id", attempt.ID),
			zap.String("remote_order_id", conf.RemoteOrderID))
		return nil, ErrPaymentVerificationFailed
	}

	if !gateway.VerifySignature(conf.RemoteOrderID, conf.RemotePaymentID, v.secret, conf.Signature) {
		v.logger.Warn("Payment confirmation signature mismatch",
			zap.String("attempt_id", attempt.ID),
			zap.String("remote_order_id", conf.RemoteOrderID))
		return nil, ErrPaymentVerificationFailed
	}

	return &verifiedPayment{
		attempt:   attempt,
		paymentID: conf.RemotePaymentID,
	}, nil
}
