package provider

import (
	"context"
	"errors"
	"fmt"
)

const (
	NamePaystack    = "paystack"
	NameFlutterwave = "flutterwave"
	NameStripe      = "stripe"
)

// ErrNotConfigured means the provider cannot be used at all (missing
// credentials). Callers must fail fast instead of attempting a call.
var ErrNotConfigured = errors.New("provider is not configured")

// RejectedError is a definitive refusal from the gateway: the request
// reached it and was turned down. Not retryable with the same input.
type RejectedError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected request: status=%d message=%s", e.Provider, e.StatusCode, e.Message)
}

// TransportError is a network-level fault: the outcome at the gateway is
// unknown. Always retryable, never implies a charge or its absence.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type InitiateInput struct {
	Reference   string
	Email       string
	AmountCents int64
	Currency    string
	PlanID      string
	PlanName    string
	CallbackURL string
	Metadata    map[string]string
}

type InitiateOutput struct {
	CheckoutURL string
	Reference   string

	// Provider-side id for the checkout session, when the gateway cannot
	// look a payment up by merchant reference alone (Stripe).
	TransactionID string
}

type VerifyInput struct {
	Reference     string
	TransactionID string
}

type VerifyResult struct {
	Paid bool

	// Raw gateway status string, surfaced in failure messages.
	Status string

	// Echoed back by the gateway; cross-checked against the stored intent.
	Reference   string
	AmountCents int64
	Currency    string
}

type Provider interface {
	Name() string
	SecretConfigured() bool
	Initiate(ctx context.Context, input *InitiateInput) (*InitiateOutput, error)
	Verify(ctx context.Context, input *VerifyInput) (*VerifyResult, error)
}
