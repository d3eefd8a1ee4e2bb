package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/gateway"
)

// processSubscription executes one billing attempt. The status is re-checked
// at invocation time: the subscription may have been paused, cancelled, or
// completed since the entry was armed, in which case the attempt is a no-op.
//
// The gateway call runs under its own timeout detached from the engine
// context, so a graceful shutdown lets an in-flight attempt finish and record
// its outcome.
func (e *Engine) processSubscription(id uuid.UUID) {
	sub, err := e.store.Get(id)
	if err != nil {
		e.log.Error("billing attempt for unknown subscription",
			slog.String("subscription_id", id.String()),
			slog.String("error", err.Error()))
		return
	}
	if !sub.Billable() {
		e.log.Debug("skipping billing attempt, subscription no longer billable",
			slog.String("subscription_id", id.String()),
			slog.String("status", string(sub.Status)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ChargeTimeout)
	defer cancel()

	result, chargeErr := e.gw.Charge(ctx, gateway.ChargeRequest{
		SubscriptionID: sub.ID,
		Amount:         sub.Amount,
		Method:         sub.Method,
		Customer:       sub.CustomerID,
	})

	paidAt := e.now()
	if chargeErr != nil {
		e.applyFailure(sub, chargeErr, paidAt)
		return
	}
	e.applySuccess(sub, result, paidAt)
}

// applySuccess records the collected payment and either re-arms the next
// interval or lets the subscription complete.
func (e *Engine) applySuccess(sub *billing.Subscription, result *gateway.ChargeResult, paidAt time.Time) {
	e.history.Append(billing.PaymentRecord{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		Amount:         sub.Amount,
		Success:        true,
		TransactionID:  result.TransactionID,
		PaidAt:         paidAt,
		CreatedAt:      paidAt,
	})

	updated, err := e.store.RecordSuccess(sub.ID, sub.Amount.Amount, paidAt)
	if err != nil {
		// Terminal status reached while the charge was in flight. The outcome
		// stays in history; the next scheduling decision honors the status.
		e.log.Warn("payment collected but state not advanced",
			slog.String("subscription_id", sub.ID.String()),
			slog.String("error", err.Error()))
		return
	}

	switch {
	case updated.IsCompleted():
		e.log.Info("subscription completed",
			slog.String("subscription_id", sub.ID.String()),
			slog.Int("payments", updated.PaymentCount))
	case updated.NextPaymentAt != nil:
		e.table.arm(sub.ID, *updated.NextPaymentAt)
		e.log.Info("payment collected",
			slog.String("subscription_id", sub.ID.String()),
			slog.String("transaction_id", result.TransactionID),
			slog.Int("payments", updated.PaymentCount),
			slog.Time("next_payment_at", *updated.NextPaymentAt))
	}
}

// applyFailure records the decline and arms a single retry after the fixed
// backoff. Gateway-unreachable errors (including an open circuit breaker) are
// treated identically to business declines.
func (e *Engine) applyFailure(sub *billing.Subscription, chargeErr error, at time.Time) {
	e.history.Append(billing.PaymentRecord{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		Amount:         sub.Amount,
		Success:        false,
		ErrorMessage:   chargeErr.Error(),
		PaidAt:         at,
		CreatedAt:      at,
	})

	retryAt := at.Add(e.cfg.RetryBackoff)
	updated, err := e.store.RecordFailure(sub.ID, retryAt, at)
	if err != nil {
		if !errors.Is(err, billing.ErrInvalidStateTransition) {
			e.log.Error("failed to record billing failure",
				slog.String("subscription_id", sub.ID.String()),
				slog.String("error", err.Error()))
		}
		return
	}

	e.table.arm(updated.ID, retryAt)
	e.log.Warn("billing attempt failed, retry scheduled",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("error", chargeErr.Error()),
		slog.Time("retry_at", retryAt))
}
