package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/provider"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

// VerifyPayment confirms a checkout attempt against the gateway's status
// API and fulfills it on validated success. The call is idempotent per
// reference: once a payment record exists, later calls read it back
// without touching the gateway or the fulfillment writer.
//
// Error returns are reserved for retryable or misconfiguration conditions
// (ErrProviderUnreachable, ErrProviderUnavailable, ErrIntentNotFound). A
// definitive "not successful" from the gateway is a normal response with
// Success=false; it consumes the pending intent, since that attempt is
// over and retrying requires a new checkout.
func (s *BillingService) VerifyPayment(ctx context.Context, req *types.VerifyPaymentRequest) (*types.VerifyPaymentResponse, error) {
	if req.Reference == "" || req.Provider == "" {
		return nil, ErrInvalidRequest
	}

	existing, err := s.recordRepo.FindByReference(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// A lingering intent for an already-recorded reference can only
		// mean an earlier consume was lost; clear it here.
		if intent, err := s.intents.FindByReference(ctx, req.Reference); err == nil && intent != nil {
			if err := s.intents.Consume(ctx, intent); err != nil {
				s.logger.WithError(err).WithField("reference", req.Reference).Warn("Failed to consume intent")
			}
		}
		return &types.VerifyPaymentResponse{
			Success: existing.Status == entity.PaymentStatusSuccess,
			Plan:    existing.PlanID,
			Message: "payment already verified",
		}, nil
	}

	intent, err := s.intents.FindByReference(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, ErrIntentNotFound
	}
	if intent.Provider != req.Provider {
		// The {reference, provider} pair travels together; a mismatch
		// means a tampered or mixed-up callback.
		return s.failVerification(ctx, intent, entity.EventVerificationFailed,
			fmt.Sprintf("provider mismatch: intent was created for %s", intent.Provider))
	}

	providerClient, err := s.providerReg.Get(req.Provider)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) || errors.Is(err, provider.ErrNotConfigured) {
			return nil, ErrProviderUnavailable
		}
		return nil, err
	}

	transactionID := req.TransactionID
	if transactionID == "" {
		transactionID = intent.TransactionID
	}

	result, err := providerClient.Verify(ctx, &provider.VerifyInput{
		Reference:     req.Reference,
		TransactionID: transactionID,
	})
	if err != nil {
		mapped := s.mapProviderError(providerClient.Name(), "verify", err)
		if errors.Is(mapped, ErrProviderUnreachable) {
			// Outcome unknown: keep the intent so the user can retry.
			return nil, mapped
		}
		if errors.Is(mapped, ErrProviderRejected) {
			return s.failVerification(ctx, intent, entity.EventVerificationFailed,
				"gateway could not confirm the payment")
		}
		return nil, mapped
	}

	if !result.Paid {
		message := "payment was not successful"
		if result.Status != "" {
			message = fmt.Sprintf("payment was not successful: %s", result.Status)
		}
		return s.failVerification(ctx, intent, entity.EventVerificationFailed, message)
	}

	if mismatch := describeMismatch(intent, result); mismatch != "" {
		// The gateway says paid, but not for what we asked. Never upgrade;
		// flag distinctly for manual review and report a plain failure.
		s.logger.WithFields(logrus.Fields{
			"reference": intent.Reference,
			"provider":  intent.Provider,
			"flag":      entity.EventAmountMismatch,
			"detail":    mismatch,
		}).Error("Verification amount mismatch")

		now := time.Now().UTC()
		_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
			Reference: intent.Reference,
			Provider:  intent.Provider,
			UserID:    intent.UserID,
			EventType: entity.EventAmountMismatch,
			Detail:    strPtr(mismatch),
			CreatedAt: now,
		})
		if err := s.intents.Consume(ctx, intent); err != nil {
			s.logger.WithError(err).WithField("reference", intent.Reference).Warn("Failed to consume intent")
		}
		return &types.VerifyPaymentResponse{Success: false, Message: "payment verification failed"}, nil
	}

	record, applied, err := s.fulfillment.Apply(ctx, &entity.PaymentRecord{
		UserID:      intent.UserID,
		Reference:   intent.Reference,
		Provider:    intent.Provider,
		PlanID:      intent.PlanID,
		AmountCents: intent.AmountCents,
		Currency:    intent.Currency,
		Status:      entity.PaymentStatusSuccess,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if applied {
		_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
			Reference: record.Reference,
			Provider:  record.Provider,
			UserID:    record.UserID,
			EventType: entity.EventPaymentFulfilled,
			CreatedAt: time.Now().UTC(),
		})
	}

	if err := s.intents.Consume(ctx, intent); err != nil {
		s.logger.WithError(err).WithField("reference", intent.Reference).Warn("Failed to consume intent")
	}

	return &types.VerifyPaymentResponse{Success: true, Plan: record.PlanID}, nil
}

func (s *BillingService) failVerification(ctx context.Context, intent *entity.CheckoutIntent, eventType, message string) (*types.VerifyPaymentResponse, error) {
	now := time.Now().UTC()
	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		Reference: intent.Reference,
		Provider:  intent.Provider,
		UserID:    intent.UserID,
		EventType: eventType,
		Detail:    strPtr(message),
		CreatedAt: now,
	})

	if err := s.intents.Consume(ctx, intent); err != nil {
		s.logger.WithError(err).WithField("reference", intent.Reference).Warn("Failed to consume intent")
	}

	return &types.VerifyPaymentResponse{Success: false, Message: message}, nil
}

func describeMismatch(intent *entity.CheckoutIntent, result *provider.VerifyResult) string {
	if result.Reference != "" && result.Reference != intent.Reference {
		return fmt.Sprintf("reference mismatch: gateway reported %q", result.Reference)
	}
	if result.AmountCents != 0 && result.AmountCents != intent.AmountCents {
		return fmt.Sprintf("amount mismatch: expected %d, gateway reported %d", intent.AmountCents, result.AmountCents)
	}
	if result.Currency != "" && result.Currency != intent.Currency {
		return fmt.Sprintf("currency mismatch: expected %s, gateway reported %s", intent.Currency, result.Currency)
	}
	return ""
}
