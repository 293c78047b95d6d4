package utils

import "errors"

var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrTransactionNotFound  = errors.New("transaction not found")

	// Conflict family
	ErrDuplicateActiveSubscription = errors.New("user already has an active subscription")
	ErrSubscriptionTerminal        = errors.New("subscription is already expired or cancelled")

	ErrInvalidState       = errors.New("operation not allowed in current state")
	ErrMaxRetriesExceeded = errors.New("transaction retry limit reached")
	ErrUnsupportedMethod  = errors.New("payment method not enabled")
	ErrGatewayTimeout     = errors.New("payment gateway did not resolve in time")

	ErrCancelReasonRequired = errors.New("cancellation reason is required")
	ErrInvalidPlanFields    = errors.New("invalid plan fields")

	ErrDatabaseError = errors.New("database error")
)
