// Package gateway defines the payment gateway capability the billing engine
// consumes: a single Charge operation that moves funds for one billing
// attempt. Implementations wrap a real payment backend (a Lightning node, an
// on-chain wallet service); the engine never distinguishes a business decline
// from an unreachable gateway — both surface as a Charge error and follow the
// same retry policy.
//
// WithBreaker decorates any Gateway with a circuit breaker so that a backend
// failing repeatedly is given time to recover instead of being hammered on
// every due subscription.
package gateway
