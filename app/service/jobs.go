package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

// RunReconcileBatch sweeps pending intents older than the stale window and
// verifies each against its gateway. Without webhooks, this is the only
// path that fulfills a user who paid on the hosted page but never came
// back to the callback URL.
func (s *BillingService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.billingCfg.ReconcileStaleAfter)

	intents, err := s.intents.ListStale(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, intent := range intents {
		if intent == nil {
			continue
		}

		outcome, err := s.VerifyPayment(ctx, &types.VerifyPaymentRequest{
			Reference:     intent.Reference,
			Provider:      intent.Provider,
			TransactionID: intent.TransactionID,
		})
		if err != nil {
			// Unreachable gateways and missing config leave the intent in
			// place for the next sweep.
			if !errors.Is(err, ErrProviderUnreachable) && !errors.Is(err, ErrProviderUnavailable) {
				firstErr = keepFirstErr(firstErr, err)
			}
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"reference": intent.Reference,
			"provider":  intent.Provider,
			"success":   outcome.Success,
		}).Info("Reconciled stale checkout intent")
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
