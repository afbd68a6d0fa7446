package service

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrPlanNotFound   = errors.New("plan not found")

	// ErrFreePlan: free plans never go through payment initiation.
	ErrFreePlan = errors.New("plan does not require payment")

	// ErrProviderUnavailable: no provider is enabled and configured.
	// A support problem, not a retry problem.
	ErrProviderUnavailable = errors.New("payment provider is not available")

	// ErrProviderRejected: the gateway refused the request outright.
	ErrProviderRejected = errors.New("payment provider rejected the request")

	// ErrProviderUnreachable: transport failure, outcome unknown. Always
	// retryable and never implies the charge did or did not happen.
	ErrProviderUnreachable = errors.New("payment provider is unreachable")

	// ErrIntentNotFound: no pending intent is stored for the reference.
	ErrIntentNotFound = errors.New("no pending payment for reference")
)
