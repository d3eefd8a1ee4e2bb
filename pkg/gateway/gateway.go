package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// ChargeRequest carries everything a backend needs to collect one payment.
type ChargeRequest struct {
	SubscriptionID uuid.UUID
	Amount         billing.Money
	Method         billing.PaymentMethod
	Customer       string // opaque payee reference (customer ID, node pubkey, address)
}

// ChargeResult is returned by a successful charge.
type ChargeResult struct {
	TransactionID string
}

// Gateway executes billing attempts against an external payment backend.
// A nil error means funds moved; any error is recorded as a failed attempt
// and drives the retry policy. Implementations must honor ctx cancellation.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// Func adapts a plain function to the Gateway interface.
type Func func(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

func (f Func) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	return f(ctx, req)
}
