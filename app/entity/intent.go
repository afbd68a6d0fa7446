package entity

import "time"

// CheckoutIntent correlates an in-flight checkout attempt across the
// provider redirect round-trip. One live intent per user; superseded on
// every new initiation, consumed on a terminal verification outcome.
type CheckoutIntent struct {
	Reference string `json:"reference"`
	Provider  string `json:"provider"`
	PlanID    string `json:"plan_id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`

	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`

	// Provider-side session id, kept when the gateway cannot be queried by
	// merchant reference alone.
	TransactionID string `json:"transaction_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
