package service

import (
	"errors"
	"fmt"
)

var (
	// ErrBelowMinimumAmount - cart total is below the gateway's minimum
	// chargeable amount.
	ErrBelowMinimumAmount = errors.New("cart total below minimum chargeable amount")

	// ErrPaymentVerificationFailed - the confirmation did not verify.
	// Deliberately generic: the reason for a signature mismatch is never
	// surfaced to the caller.
	ErrPaymentVerificationFailed = errors.New("payment verification failed")

	// ErrAttemptClosed - confirm called on a rejected or expired attempt.
	ErrAttemptClosed = errors.New("checkout attempt is closed")

	// ErrUnauthorized - no authenticated buyer identity on the request.
	ErrUnauthorized = errors.New("unauthorized")
)

// InvalidCartError names the first offending line item.
type InvalidCartError struct {
	Index  int
	Reason string
}

func (e *InvalidCartError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid cart: %s", e.Reason)
	}
	return fmt.Sprintf("invalid cart: item %d: %s", e.Index, e.Reason)
}
