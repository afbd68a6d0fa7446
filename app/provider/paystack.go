package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const paystackDefaultBaseURL = "https://api.paystack.co"

type PaystackConfig struct {
	PublicKey   string
	SecretKey   string
	BaseURL     string
	HTTPTimeout time.Duration
}

type PaystackProvider struct {
	cfg    PaystackConfig
	client *http.Client
}

func NewPaystackProvider(cfg PaystackConfig) *PaystackProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = paystackDefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &PaystackProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *PaystackProvider) Name() string {
	return NamePaystack
}

func (p *PaystackProvider) SecretConfigured() bool {
	return strings.TrimSpace(p.cfg.SecretKey) != ""
}

func (p *PaystackProvider) Initiate(ctx context.Context, input *InitiateInput) (*InitiateOutput, error) {
	if !p.SecretConfigured() {
		return nil, fmt.Errorf("%w: paystack secret key is missing", ErrNotConfigured)
	}

	// Paystack amounts are in subunits (kobo for NGN), same scale as cents.
	body := map[string]interface{}{
		"email":        input.Email,
		"amount":       input.AmountCents,
		"currency":     strings.ToUpper(input.Currency),
		"reference":    input.Reference,
		"callback_url": input.CallbackURL,
		"metadata":     initiateMetadata(input),
	}

	raw, err := p.doJSON(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if !payload.Status || strings.TrimSpace(payload.Data.AuthorizationURL) == "" {
		return nil, &RejectedError{Provider: NamePaystack, StatusCode: http.StatusOK, Message: payload.Message}
	}

	reference := strings.TrimSpace(payload.Data.Reference)
	if reference == "" {
		reference = input.Reference
	}

	return &InitiateOutput{
		CheckoutURL: strings.TrimSpace(payload.Data.AuthorizationURL),
		Reference:   reference,
	}, nil
}

func (p *PaystackProvider) Verify(ctx context.Context, input *VerifyInput) (*VerifyResult, error) {
	if !p.SecretConfigured() {
		return nil, fmt.Errorf("%w: paystack secret key is missing", ErrNotConfigured)
	}
	if strings.TrimSpace(input.Reference) == "" {
		return nil, errors.New("reference is required")
	}

	raw, err := p.doJSON(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(input.Reference), nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Status    string `json:"status"`
			Reference string `json:"reference"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if !payload.Status {
		return &VerifyResult{Paid: false, Status: strings.TrimSpace(payload.Message)}, nil
	}

	return &VerifyResult{
		Paid:        payload.Data.Status == "success",
		Status:      payload.Data.Status,
		Reference:   strings.TrimSpace(payload.Data.Reference),
		AmountCents: payload.Data.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(payload.Data.Currency)),
	}, nil
}

func (p *PaystackProvider) doJSON(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: NamePaystack, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: NamePaystack, Err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &TransportError{Provider: NamePaystack, Err: fmt.Errorf("status=%d body=%s", resp.StatusCode, truncateBody(raw))}
	}
	if resp.StatusCode >= 400 {
		return nil, &RejectedError{Provider: NamePaystack, StatusCode: resp.StatusCode, Message: truncateBody(raw)}
	}

	return raw, nil
}

func initiateMetadata(input *InitiateInput) map[string]string {
	metadata := make(map[string]string, len(input.Metadata)+1)
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	metadata["plan_id"] = input.PlanID
	return metadata
}

func truncateBody(raw []byte) string {
	const max = 512
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max]
	}
	return s
}
