package entity

import "time"

const (
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// PaymentRecord is written exactly once per reference and never mutated.
// A repeat verification for the same reference is a read of this row.
type PaymentRecord struct {
	ID uint64

	UserID    string
	Reference string
	Provider  string
	PlanID    string

	AmountCents int64
	Currency    string
	Status      string

	CreatedAt time.Time
}
