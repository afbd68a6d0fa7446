package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
	"github.com/vibast-solutions/ms-go-billing/app/provider"
	"github.com/vibast-solutions/ms-go-billing/app/types"
	"github.com/vibast-solutions/ms-go-billing/config"
)

const defaultBatchSize = 100

type planRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Plan, error)
	ListActive(ctx context.Context) ([]*entity.Plan, error)
}

type paymentRecordRepository interface {
	FindByReference(ctx context.Context, reference string) (*entity.PaymentRecord, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

type fulfillmentWriter interface {
	Apply(ctx context.Context, record *entity.PaymentRecord) (*entity.PaymentRecord, bool, error)
}

type intentLedger interface {
	Record(ctx context.Context, intent *entity.CheckoutIntent) error
	FindByReference(ctx context.Context, reference string) (*entity.CheckoutIntent, error)
	FindByUser(ctx context.Context, userID string) (*entity.CheckoutIntent, error)
	Consume(ctx context.Context, intent *entity.CheckoutIntent) error
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*entity.CheckoutIntent, error)
}

type BillingService struct {
	planRepo    planRepository
	recordRepo  paymentRecordRepository
	eventRepo   paymentEventRepository
	fulfillment fulfillmentWriter
	intents     intentLedger
	providerReg *provider.Registry
	billingCfg  config.BillingConfig
	logger      logrus.FieldLogger
}

func NewBillingService(
	planRepo planRepository,
	recordRepo paymentRecordRepository,
	eventRepo paymentEventRepository,
	fulfillment fulfillmentWriter,
	intents intentLedger,
	providerReg *provider.Registry,
	billingCfg config.BillingConfig,
) *BillingService {
	return &BillingService{
		planRepo:    planRepo,
		recordRepo:  recordRepo,
		eventRepo:   eventRepo,
		fulfillment: fulfillment,
		intents:     intents,
		providerReg: providerReg,
		billingCfg:  billingCfg,
		logger:      factory.NewModuleLogger("billing-service"),
	}
}

func (s *BillingService) ListPlans(ctx context.Context) ([]*entity.Plan, error) {
	return s.planRepo.ListActive(ctx)
}

// InitiatePayment creates a provider checkout session and stores the
// pending intent before the checkout URL is handed back: once the caller
// redirects, the URL cannot be taken back, so the intent must already be
// on record.
func (s *BillingService) InitiatePayment(ctx context.Context, req *types.InitPaymentRequest) (*types.InitPaymentResponse, error) {
	plan, err := s.planRepo.FindByID(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.Active {
		return nil, ErrPlanNotFound
	}
	if plan.Free() {
		return nil, ErrFreePlan
	}

	providerClient, err := s.providerReg.SelectEnabled()
	if err != nil {
		return nil, ErrProviderUnavailable
	}
	if req.Provider != "" && req.Provider != providerClient.Name() {
		// The client asked for a provider that is no longer the enabled
		// one; refuse rather than silently switching gateways mid-checkout.
		return nil, ErrProviderUnavailable
	}

	reference := "ref_" + uuid.NewString()

	output, err := providerClient.Initiate(ctx, &provider.InitiateInput{
		Reference:   reference,
		Email:       req.Email,
		AmountCents: plan.AmountCents,
		Currency:    plan.Currency,
		PlanID:      plan.ID,
		PlanName:    plan.Name,
		CallbackURL: req.CallbackURL,
		Metadata:    map[string]string{"user_id": req.UserID},
	})
	if err != nil {
		return nil, s.mapProviderError(providerClient.Name(), "initiate", err)
	}

	now := time.Now().UTC()
	intent := &entity.CheckoutIntent{
		Reference:     output.Reference,
		Provider:      providerClient.Name(),
		PlanID:        plan.ID,
		UserID:        req.UserID,
		Email:         req.Email,
		AmountCents:   plan.AmountCents,
		Currency:      plan.Currency,
		TransactionID: output.TransactionID,
		CreatedAt:     now,
	}
	if err := s.intents.Record(ctx, intent); err != nil {
		return nil, err
	}

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		Reference: intent.Reference,
		Provider:  intent.Provider,
		UserID:    intent.UserID,
		EventType: entity.EventCheckoutInitiated,
		CreatedAt: now,
	})

	return &types.InitPaymentResponse{
		PaymentURL: output.CheckoutURL,
		Reference:  intent.Reference,
		Provider:   intent.Provider,
	}, nil
}

func (s *BillingService) mapProviderError(providerName, op string, err error) error {
	var transportErr *provider.TransportError
	var rejectedErr *provider.RejectedError

	switch {
	case errors.Is(err, provider.ErrNotConfigured):
		return ErrProviderUnavailable
	case errors.As(err, &transportErr):
		s.logger.WithError(err).WithFields(logrus.Fields{
			"provider": providerName,
			"op":       op,
		}).Warn("Provider unreachable")
		return ErrProviderUnreachable
	case errors.As(err, &rejectedErr):
		s.logger.WithError(err).WithFields(logrus.Fields{
			"provider": providerName,
			"op":       op,
		}).Error("Provider rejected request")
		return ErrProviderRejected
	default:
		return err
	}
}

func (s *BillingService) batchSize() int {
	if s.billingCfg.JobBatchSize > 0 {
		return s.billingCfg.JobBatchSize
	}
	return defaultBatchSize
}

func strPtr(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
