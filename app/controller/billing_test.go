package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/provider"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/config"
)

type memPlanRepo struct {
	plans map[string]*entity.Plan
}

func (r *memPlanRepo) FindByID(_ context.Context, id string) (*entity.Plan, error) {
	return r.plans[id], nil
}

func (r *memPlanRepo) ListActive(_ context.Context) ([]*entity.Plan, error) {
	items := []*entity.Plan{}
	for _, plan := range r.plans {
		if plan.Active {
			items = append(items, plan)
		}
	}
	return items, nil
}

type memPaymentStore struct {
	records map[string]*entity.PaymentRecord
}

func (s *memPaymentStore) FindByReference(_ context.Context, reference string) (*entity.PaymentRecord, error) {
	return s.records[reference], nil
}

func (s *memPaymentStore) Apply(_ context.Context, record *entity.PaymentRecord) (*entity.PaymentRecord, bool, error) {
	if existing, ok := s.records[record.Reference]; ok {
		return existing, false, nil
	}
	record.ID = uint64(len(s.records) + 1)
	s.records[record.Reference] = record
	return record, true, nil
}

type nopEventRepo struct{}

func (nopEventRepo) Create(_ context.Context, _ *entity.PaymentEvent) error { return nil }

type memLedger struct {
	byRef  map[string]*entity.CheckoutIntent
	byUser map[string]*entity.CheckoutIntent
}

func (l *memLedger) Record(_ context.Context, intent *entity.CheckoutIntent) error {
	l.byRef[intent.Reference] = intent
	l.byUser[intent.UserID] = intent
	return nil
}

func (l *memLedger) FindByReference(_ context.Context, reference string) (*entity.CheckoutIntent, error) {
	return l.byRef[reference], nil
}

func (l *memLedger) FindByUser(_ context.Context, userID string) (*entity.CheckoutIntent, error) {
	return l.byUser[userID], nil
}

func (l *memLedger) Consume(_ context.Context, intent *entity.CheckoutIntent) error {
	delete(l.byRef, intent.Reference)
	if current, ok := l.byUser[intent.UserID]; ok && current.Reference == intent.Reference {
		delete(l.byUser, intent.UserID)
	}
	return nil
}

func (l *memLedger) ListStale(_ context.Context, cutoff time.Time, limit int) ([]*entity.CheckoutIntent, error) {
	items := []*entity.CheckoutIntent{}
	for _, intent := range l.byRef {
		if intent.CreatedAt.Before(cutoff) && len(items) < limit {
			items = append(items, intent)
		}
	}
	return items, nil
}

type memProvider struct {
	disabled bool
	paid     bool
}

func (p *memProvider) Name() string           { return provider.NamePaystack }
func (p *memProvider) SecretConfigured() bool { return !p.disabled }

func (p *memProvider) Initiate(_ context.Context, input *provider.InitiateInput) (*provider.InitiateOutput, error) {
	return &provider.InitiateOutput{
		CheckoutURL: "https://checkout.paystack.com/test",
		Reference:   input.Reference,
	}, nil
}

func (p *memProvider) Verify(_ context.Context, input *provider.VerifyInput) (*provider.VerifyResult, error) {
	return &provider.VerifyResult{
		Paid:        p.paid,
		Status:      "success",
		Reference:   input.Reference,
		AmountCents: 5000,
		Currency:    "NGN",
	}, nil
}

func newTestController(gateway *memProvider) (*BillingController, *memLedger) {
	plans := &memPlanRepo{plans: map[string]*entity.Plan{
		"pro": {ID: "pro", Name: "Pro", Interval: "monthly", AmountCents: 5000, Currency: "NGN", Active: true},
	}}
	store := &memPaymentStore{records: map[string]*entity.PaymentRecord{}}
	intents := &memLedger{
		byRef:  map[string]*entity.CheckoutIntent{},
		byUser: map[string]*entity.CheckoutIntent{},
	}
	registry := provider.NewRegistry(provider.Candidate{Provider: gateway, Enabled: !gateway.disabled})

	svc := service.NewBillingService(plans, store, nopEventRepo{}, store, intents, registry, config.BillingConfig{
		ReconcileStaleAfter: 15 * time.Minute,
		JobBatchSize:        50,
	})
	return NewBillingController(svc), intents
}

func doJSON(handler echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	_ = handler(e.NewContext(req, rec))
	return rec
}

func TestHealth(t *testing.T) {
	c, _ := newTestController(&memProvider{})

	rec := doJSON(c.Health, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestListPlans(t *testing.T) {
	c, _ := newTestController(&memProvider{})

	rec := doJSON(c.ListPlans, http.MethodGet, "/billing/plans", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Plans []struct {
			ID string `json:"id"`
		} `json:"plans"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Plans) != 1 || payload.Plans[0].ID != "pro" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestInitPayment(t *testing.T) {
	c, intents := newTestController(&memProvider{})

	rec := doJSON(c.InitPayment, http.MethodPost, "/billing/init-payment",
		`{"email":"user@example.com","user_id":"user-1","plan_id":"pro","callback_url":"https://app.example.com/cb"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		PaymentURL string `json:"payment_url"`
		Reference  string `json:"reference"`
		Provider   string `json:"provider"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.PaymentURL == "" || payload.Provider != "paystack" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if intents.byRef[payload.Reference] == nil {
		t.Fatal("expected intent recorded")
	}
}

func TestInitPaymentValidation(t *testing.T) {
	c, _ := newTestController(&memProvider{})

	rec := doJSON(c.InitPayment, http.MethodPost, "/billing/init-payment",
		`{"user_id":"user-1","plan_id":"pro","callback_url":"https://app.example.com/cb"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInitPaymentUnknownPlan(t *testing.T) {
	c, _ := newTestController(&memProvider{})

	rec := doJSON(c.InitPayment, http.MethodPost, "/billing/init-payment",
		`{"email":"user@example.com","user_id":"user-1","plan_id":"enterprise","callback_url":"https://app.example.com/cb"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestInitPaymentProviderUnavailable(t *testing.T) {
	c, _ := newTestController(&memProvider{disabled: true})

	rec := doJSON(c.InitPayment, http.MethodPost, "/billing/init-payment",
		`{"email":"user@example.com","user_id":"user-1","plan_id":"pro","callback_url":"https://app.example.com/cb"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestVerifyPayment(t *testing.T) {
	c, intents := newTestController(&memProvider{paid: true})
	intents.byRef["ref_abc"] = &entity.CheckoutIntent{
		Reference:   "ref_abc",
		Provider:    "paystack",
		PlanID:      "pro",
		UserID:      "user-1",
		AmountCents: 5000,
		Currency:    "NGN",
		CreatedAt:   time.Now().UTC(),
	}

	rec := doJSON(c.VerifyPayment, http.MethodPost, "/billing/verify-payment",
		`{"reference":"ref_abc","provider":"paystack"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Success bool   `json:"success"`
		Plan    string `json:"plan"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !payload.Success || payload.Plan != "pro" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestVerifyPaymentUnknownReference(t *testing.T) {
	c, _ := newTestController(&memProvider{paid: true})

	rec := doJSON(c.VerifyPayment, http.MethodPost, "/billing/verify-payment",
		`{"reference":"ref_missing","provider":"paystack"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleCallbackCancelled(t *testing.T) {
	c, _ := newTestController(&memProvider{paid: true})

	rec := doJSON(c.HandleCallback, http.MethodPost, "/billing/callback",
		`{"user_id":"user-1","query":"cancelled=true"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.State != "cancelled" {
		t.Fatalf("unexpected state: %s", payload.State)
	}
}

func TestHandleCallbackRequiresUser(t *testing.T) {
	c, _ := newTestController(&memProvider{paid: true})

	rec := doJSON(c.HandleCallback, http.MethodPost, "/billing/callback",
		`{"query":"reference=ref_abc"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
