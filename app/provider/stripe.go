package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const stripeDefaultBaseURL = "https://api.stripe.com"

type StripeConfig struct {
	PublicKey   string
	SecretKey   string
	BaseURL     string
	HTTPTimeout time.Duration
}

type StripeProvider struct {
	cfg    StripeConfig
	client *http.Client
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = stripeDefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &StripeProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *StripeProvider) Name() string {
	return NameStripe
}

func (p *StripeProvider) SecretConfigured() bool {
	return strings.TrimSpace(p.cfg.SecretKey) != ""
}

func (p *StripeProvider) Initiate(ctx context.Context, input *InitiateInput) (*InitiateOutput, error) {
	if !p.SecretConfigured() {
		return nil, fmt.Errorf("%w: stripe secret key is missing", ErrNotConfigured)
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(input.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(input.AmountCents, 10))
	values.Set("line_items[0][price_data][product_data][name]", input.PlanName)
	values.Set("client_reference_id", input.Reference)
	values.Set("customer_email", input.Email)

	// Stripe has no by-reference session lookup, so the session id rides
	// back on the success URL as the interpreter's transaction_id.
	values.Set("success_url", appendQuery(input.CallbackURL,
		"reference="+url.QueryEscape(input.Reference)+"&provider=stripe&transaction_id={CHECKOUT_SESSION_ID}"))
	values.Set("cancel_url", appendQuery(input.CallbackURL, "cancelled=true"))

	for k, v := range input.Metadata {
		values.Set("metadata["+k+"]", v)
	}
	values.Set("metadata[plan_id]", input.PlanID)
	values.Set("metadata[reference]", input.Reference)

	raw, err := p.postForm(ctx, "/v1/checkout/sessions", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.URL) == "" {
		return nil, &RejectedError{Provider: NameStripe, StatusCode: http.StatusOK, Message: "checkout session has no url"}
	}

	return &InitiateOutput{
		CheckoutURL:   strings.TrimSpace(payload.URL),
		Reference:     input.Reference,
		TransactionID: strings.TrimSpace(payload.ID),
	}, nil
}

func (p *StripeProvider) Verify(ctx context.Context, input *VerifyInput) (*VerifyResult, error) {
	if !p.SecretConfigured() {
		return nil, fmt.Errorf("%w: stripe secret key is missing", ErrNotConfigured)
	}
	if strings.TrimSpace(input.TransactionID) == "" {
		return nil, &RejectedError{Provider: NameStripe, StatusCode: http.StatusBadRequest, Message: "transaction_id is required for stripe verification"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/v1/checkout/sessions/"+url.PathEscape(input.TransactionID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: NameStripe, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: NameStripe, Err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &TransportError{Provider: NameStripe, Err: fmt.Errorf("status=%d body=%s", resp.StatusCode, truncateBody(raw))}
	}
	if resp.StatusCode >= 400 {
		return nil, &RejectedError{Provider: NameStripe, StatusCode: resp.StatusCode, Message: truncateBody(raw)}
	}

	var payload struct {
		PaymentStatus     string `json:"payment_status"`
		Status            string `json:"status"`
		ClientReferenceID string `json:"client_reference_id"`
		AmountTotal       int64  `json:"amount_total"`
		Currency          string `json:"currency"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	status := payload.PaymentStatus
	if status == "" {
		status = payload.Status
	}

	return &VerifyResult{
		Paid:        payload.PaymentStatus == "paid",
		Status:      status,
		Reference:   strings.TrimSpace(payload.ClientReferenceID),
		AmountCents: payload.AmountTotal,
		Currency:    strings.ToUpper(strings.TrimSpace(payload.Currency)),
	}, nil
}

func (p *StripeProvider) postForm(ctx context.Context, path string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: NameStripe, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: NameStripe, Err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &TransportError{Provider: NameStripe, Err: fmt.Errorf("status=%d body=%s", resp.StatusCode, truncateBody(raw))}
	}
	if resp.StatusCode >= 400 {
		return nil, &RejectedError{Provider: NameStripe, StatusCode: resp.StatusCode, Message: truncateBody(raw)}
	}

	return raw, nil
}

func appendQuery(callbackURL, query string) string {
	if strings.Contains(callbackURL, "?") {
		return callbackURL + "&" + query
	}
	return callbackURL + "?" + query
}
