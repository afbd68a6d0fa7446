package entity

import "time"

const (
	EventCheckoutInitiated  = "checkout_initiated"
	EventPaymentFulfilled   = "payment_fulfilled"
	EventVerificationFailed = "verification_failed"
	EventAmountMismatch     = "amount_mismatch"
)

// PaymentEvent is an append-only audit row. Amount-mismatch events are the
// durable flag consumed by manual reconciliation.
type PaymentEvent struct {
	ID uint64

	Reference string
	Provider  string
	UserID    string
	EventType string

	Detail *string

	CreatedAt time.Time
}
