package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const flutterwaveDefaultBaseURL = "https://api.flutterwave.com"

type FlutterwaveConfig struct {
	PublicKey   string
	SecretKey   string
	BaseURL     string
	HTTPTimeout time.Duration
}

type FlutterwaveProvider struct {
	cfg    FlutterwaveConfig
	client *http.Client
}

func NewFlutterwaveProvider(cfg FlutterwaveConfig) *FlutterwaveProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = flutterwaveDefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &FlutterwaveProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *FlutterwaveProvider) Name() string {
	return NameFlutterwave
}

func (p *FlutterwaveProvider) SecretConfigured() bool {
	return strings.TrimSpace(p.cfg.SecretKey) != ""
}

func (p *FlutterwaveProvider) Initiate(ctx context.Context, input *InitiateInput) (*InitiateOutput, error) {
	if !p.SecretConfigured() {
		return nil, fmt.Errorf("%w: flutterwave secret key is missing", ErrNotConfigured)
	}

	// Flutterwave amounts are in major units.
	body := map[string]interface{}{
		"tx_ref":       input.Reference,
		"amount":       majorUnits(input.AmountCents),
		"currency":     strings.ToUpper(input.Currency),
		"redirect_url": input.CallbackURL,
		"customer": map[string]string{
			"email": input.Email,
		},
		"customizations": map[string]string{
			"title": input.PlanName,
		},
		"meta": initiateMetadata(input),
	}

	raw, err := p.doJSON(ctx, http.MethodPost, "/v3/payments", body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "success" || strings.TrimSpace(payload.Data.Link) == "" {
		return nil, &RejectedError{Provider: NameFlutterwave, StatusCode: http.StatusOK, Message: payload.Message}
	}

	return &InitiateOutput{
		CheckoutURL: strings.TrimSpace(payload.Data.Link),
		Reference:   input.Reference,
	}, nil
}

func (p *FlutterwaveProvider) Verify(ctx context.Context, input *VerifyInput) (*VerifyResult, error) {
	if !p.SecretConfigured() {
		return nil, fmt.Errorf("%w: flutterwave secret key is missing", ErrNotConfigured)
	}
	if strings.TrimSpace(input.Reference) == "" {
		return nil, errors.New("reference is required")
	}

	raw, err := p.doJSON(ctx, http.MethodGet, "/v3/transactions/verify_by_reference?tx_ref="+url.QueryEscape(input.Reference), nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Status   string  `json:"status"`
			TxRef    string  `json:"tx_ref"`
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "success" {
		return &VerifyResult{Paid: false, Status: strings.TrimSpace(payload.Message)}, nil
	}

	return &VerifyResult{
		Paid:        payload.Data.Status == "successful",
		Status:      payload.Data.Status,
		Reference:   strings.TrimSpace(payload.Data.TxRef),
		AmountCents: int64(math.Round(payload.Data.Amount * 100)),
		Currency:    strings.ToUpper(strings.TrimSpace(payload.Data.Currency)),
	}, nil
}

func (p *FlutterwaveProvider) doJSON(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
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
		return nil, &TransportError{Provider: NameFlutterwave, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: NameFlutterwave, Err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &TransportError{Provider: NameFlutterwave, Err: fmt.Errorf("status=%d body=%s", resp.StatusCode, truncateBody(raw))}
	}
	if resp.StatusCode >= 400 {
		return nil, &RejectedError{Provider: NameFlutterwave, StatusCode: resp.StatusCode, Message: truncateBody(raw)}
	}

	return raw, nil
}

func majorUnits(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}
