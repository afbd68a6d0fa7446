package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/vibast-solutions/ms-go-billing/app/types"
)

// referenceParams are the query-parameter names the gateways use for the
// merchant reference on their return redirects, in lookup order.
var referenceParams = []string{"reference", "tx_ref", "trxref"}

// InterpretCallback classifies a provider return URL. The user may arrive
// via the normal redirect, a refresh, a bookmark, or back-navigation, so
// the interpretation is re-entrant: all side effects go through the
// idempotent verifier, and the pending intent is only consumed on a
// terminal outcome.
func (s *BillingService) InterpretCallback(ctx context.Context, req *types.CallbackRequest) (*types.CallbackResponse, error) {
	params, err := url.ParseQuery(strings.TrimPrefix(req.Query, "?"))
	if err != nil {
		params = url.Values{}
	}

	// 1. Explicit cancellation wins over everything; no verifier call.
	if isCancelled(params) {
		if intent, err := s.intents.FindByUser(ctx, req.UserID); err == nil && intent != nil {
			if err := s.intents.Consume(ctx, intent); err != nil {
				s.logger.WithError(err).WithField("user_id", req.UserID).Warn("Failed to consume intent")
			}
		}
		return &types.CallbackResponse{State: types.CallbackStateCancelled}, nil
	}

	// 2. Resolve the {reference, provider} pair: URL first, then the
	// pending-intent slot for this user.
	reference := firstParam(params, referenceParams...)
	providerName := strings.ToLower(firstParam(params, "provider"))
	transactionID := firstParam(params, "transaction_id")

	if reference == "" || providerName == "" {
		intent, err := s.intents.FindByUser(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if intent != nil {
			if reference == "" {
				reference = intent.Reference
			}
			if providerName == "" {
				providerName = intent.Provider
			}
		}
	}

	// 3. Still unresolved: unknown, not failed. The intent, if any, stays.
	if reference == "" || providerName == "" {
		return &types.CallbackResponse{
			State:   types.CallbackStateMissingInfo,
			Message: "could not determine the payment reference",
		}, nil
	}

	// 4-7. Hand off to the verifier and classify its answer.
	outcome, err := s.VerifyPayment(ctx, &types.VerifyPaymentRequest{
		Reference:     reference,
		Provider:      providerName,
		TransactionID: transactionID,
	})
	switch {
	case errors.Is(err, ErrIntentNotFound):
		return &types.CallbackResponse{
			State:     types.CallbackStateVerificationFailed,
			Reference: reference,
			Message:   "no pending payment found for this reference",
		}, nil
	case errors.Is(err, ErrProviderUnreachable), errors.Is(err, ErrProviderUnavailable):
		// Outcome unknown; the intent is retained so a manual retry can
		// reuse the same reference.
		return &types.CallbackResponse{
			State:     types.CallbackStateNetworkIssue,
			Reference: reference,
			Message:   "payment could not be confirmed yet, please retry",
		}, nil
	case err != nil:
		return nil, err
	}

	if !outcome.Success {
		return &types.CallbackResponse{
			State:     types.CallbackStateVerificationFailed,
			Reference: reference,
			Message:   outcome.Message,
		}, nil
	}

	return &types.CallbackResponse{
		State:     types.CallbackStateSuccess,
		Plan:      outcome.Plan,
		Reference: reference,
	}, nil
}

func isCancelled(params url.Values) bool {
	if strings.EqualFold(params.Get("cancelled"), "true") {
		return true
	}
	return strings.EqualFold(params.Get("status"), "cancelled")
}

func firstParam(params url.Values, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(params.Get(name)); v != "" {
			return v
		}
	}
	return ""
}
