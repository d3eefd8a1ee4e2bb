package billing

import "errors"

var (
	ErrPlanNotFound  = errors.New("billing plan not found")
	ErrDuplicatePlan = errors.New("billing plan already registered")
	ErrInvalidPlan   = errors.New("invalid billing plan configuration")

	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrInvalidStateTransition = errors.New("operation not allowed in current subscription status")

	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidFrequency = errors.New("unsupported billing frequency")
	ErrInvalidMethod    = errors.New("unsupported payment method")
	ErrMissingCustomer  = errors.New("customer ID is required")

	ErrFailedToLoadPlans = errors.New("failed to load billing plans")
)
