package entity

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrNoAvailableTickets   = errors.New("no available tickets")
	ErrTransitionNotAllowed = errors.New("ticket transition not allowed")

	ErrFraudSuspected         = errors.New("payment does not match the request")
	ErrPaymentNotCompleted    = errors.New("payment not completed")
	ErrPaymentAlreadyRedeemed = errors.New("payment already redeemed for a ticket")

	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
)

// PaymentProviderError wraps any failure reported by (or while talking to) the payment processor.
type PaymentProviderError struct {
	Op  string
	Err error
}

func (e *PaymentProviderError) Error() string {
	return fmt.Sprintf("payment provider %s: %v", e.Op, e.Err)
}

func (e *PaymentProviderError) Unwrap() error {
	return e.Err
}
