package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	CallbackStateSuccess            = "success"
	CallbackStateCancelled          = "cancelled"
	CallbackStateMissingInfo        = "missing_info"
	CallbackStateNetworkIssue       = "network_issue"
	CallbackStateVerificationFailed = "verification_failed"
)

type InitPaymentRequest struct {
	Email       string `json:"email"`
	UserID      string `json:"user_id"`
	PlanID      string `json:"plan_id"`
	Provider    string `json:"provider"`
	CallbackURL string `json:"callback_url"`
}

func NewInitPaymentRequestFromContext(ctx echo.Context) (*InitPaymentRequest, error) {
	var body InitPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Email = strings.TrimSpace(body.Email)
	body.UserID = strings.TrimSpace(body.UserID)
	body.PlanID = strings.TrimSpace(body.PlanID)
	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))
	body.CallbackURL = strings.TrimSpace(body.CallbackURL)

	return &body, nil
}

func (r *InitPaymentRequest) Validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return errors.New("email is required")
	}
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if r.PlanID == "" {
		return errors.New("plan_id is required")
	}
	if r.CallbackURL == "" {
		return errors.New("callback_url is required")
	}
	if !strings.HasPrefix(r.CallbackURL, "http://") && !strings.HasPrefix(r.CallbackURL, "https://") {
		return errors.New("callback_url must be an absolute http(s) url")
	}
	return nil
}

type VerifyPaymentRequest struct {
	Reference     string `json:"reference"`
	Provider      string `json:"provider"`
	TransactionID string `json:"transaction_id"`
}

func NewVerifyPaymentRequestFromContext(ctx echo.Context) (*VerifyPaymentRequest, error) {
	var body VerifyPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Reference = strings.TrimSpace(body.Reference)
	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))
	body.TransactionID = strings.TrimSpace(body.TransactionID)

	return &body, nil
}

func (r *VerifyPaymentRequest) Validate() error {
	if r.Reference == "" {
		return errors.New("reference is required")
	}
	if r.Provider == "" {
		return errors.New("provider is required")
	}
	return nil
}

type CallbackRequest struct {
	UserID string `json:"user_id"`

	// Raw query string of the provider return URL, exactly as the browser
	// arrived with it.
	Query string `json:"query"`
}

func NewCallbackRequestFromContext(ctx echo.Context) (*CallbackRequest, error) {
	var body CallbackRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.UserID = strings.TrimSpace(body.UserID)
	body.Query = strings.TrimSpace(body.Query)

	return &body, nil
}

func (r *CallbackRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

type InitPaymentResponse struct {
	PaymentURL string `json:"payment_url"`
	Reference  string `json:"reference"`
	Provider   string `json:"provider"`
}

type VerifyPaymentResponse struct {
	Success bool   `json:"success"`
	Plan    string `json:"plan,omitempty"`
	Message string `json:"message,omitempty"`
}

type CallbackResponse struct {
	State     string `json:"state"`
	Plan      string `json:"plan,omitempty"`
	Reference string `json:"reference,omitempty"`
	Message   string `json:"message,omitempty"`
}

type PlanPayload struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	AmountCents int64    `json:"amount_cents"`
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	Features    []string `json:"features"`
}

type ListPlansResponse struct {
	Plans []*PlanPayload `json:"plans"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
