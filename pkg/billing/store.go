package billing

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// metadata key used by Cancel to preserve the caller-supplied reason.
const metaCancellationReason = "cancellation_reason"

// CreateParams describes a new subscription. StartDate defaults to the
// creation time when zero.
type CreateParams struct {
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	Amount        Money
	Description   string
	Frequency     Frequency
	Method        PaymentMethod
	PlanID        string
	StartDate     time.Time
	EndDate       *time.Time
	MaxPayments   int
	TrialDays     int
	Metadata      map[string]string
}

// Store owns all subscription records and their state-machine transitions.
// Records enter through Create and leave never; terminal subscriptions stay
// for audit. Every accessor returns deep copies.
type Store struct {
	mu    sync.RWMutex
	subs  map[uuid.UUID]*Subscription
	order []uuid.UUID
}

// NewStore returns an empty subscription store.
func NewStore() *Store {
	return &Store{
		subs: make(map[uuid.UUID]*Subscription),
	}
}

// Create validates params and inserts a new active subscription. The first
// billing attempt is due one interval after the start date (shifted past any
// trial window), not immediately.
func (st *Store) Create(p CreateParams, now time.Time) (*Subscription, error) {
	if p.CustomerID == "" {
		return nil, ErrMissingCustomer
	}
	if p.Amount.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !p.Frequency.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFrequency, p.Frequency)
	}
	if !p.Method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, p.Method)
	}
	if p.MaxPayments < 0 || p.TrialDays < 0 {
		return nil, ErrInvalidAmount
	}

	start := p.StartDate
	if start.IsZero() {
		start = now
	}
	firstDue := start.AddDate(0, 0, p.TrialDays+p.Frequency.IntervalDays())

	sub := &Subscription{
		ID:            uuid.New(),
		CustomerID:    p.CustomerID,
		CustomerName:  p.CustomerName,
		CustomerEmail: p.CustomerEmail,
		Amount:        p.Amount,
		Description:   p.Description,
		Frequency:     p.Frequency,
		Method:        p.Method,
		PlanID:        p.PlanID,
		StartDate:     start,
		EndDate:       cloneTime(p.EndDate),
		NextPaymentAt: &firstDue,
		Status:        StatusActive,
		MaxPayments:   p.MaxPayments,
		CreatedAt:     now,
		UpdatedAt:     now,
		Metadata:      maps.Clone(p.Metadata),
	}
	if sub.Metadata == nil {
		sub.Metadata = make(map[string]string)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.subs[sub.ID] = sub
	st.order = append(st.order, sub.ID)

	return sub.clone(), nil
}

// Get returns the subscription with the given ID or ErrSubscriptionNotFound.
func (st *Store) Get(id uuid.UUID) (*Subscription, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sub, ok := st.subs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	return sub.clone(), nil
}

// ByCustomer returns all of a customer's subscriptions in creation order,
// regardless of status.
func (st *Store) ByCustomer(customerID string) []*Subscription {
	return st.filter(func(s *Subscription) bool { return s.CustomerID == customerID })
}

// Active returns all subscriptions currently in the active status.
func (st *Store) Active() []*Subscription {
	return st.filter((*Subscription).IsActive)
}

// All returns every subscription in creation order.
func (st *Store) All() []*Subscription {
	return st.filter(func(*Subscription) bool { return true })
}

// DueForBilling returns subscriptions whose next payment date has arrived:
// active ones and failed ones with a pending retry. The scheduler sweep uses
// this to re-arm entries that were lost.
func (st *Store) DueForBilling(now time.Time) []*Subscription {
	return st.filter(func(s *Subscription) bool { return s.DueAt(now) })
}

func (st *Store) filter(keep func(*Subscription) bool) []*Subscription {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*Subscription
	for _, id := range st.order {
		if sub := st.subs[id]; keep(sub) {
			out = append(out, sub.clone())
		}
	}
	return out
}

// Pause suspends billing for an active subscription. The next payment date is
// preserved so Resume can pick the schedule back up.
func (st *Store) Pause(id uuid.UUID, now time.Time) error {
	_, err := st.transition(id, now, StatusPaused, func(s *Subscription) error {
		if s.Status != StatusActive {
			return transitionErr(s.Status, StatusPaused)
		}
		return nil
	})
	return err
}

// Resume reactivates a paused subscription and returns it so the caller can
// re-arm the preserved next payment date.
func (st *Store) Resume(id uuid.UUID, now time.Time) (*Subscription, error) {
	return st.transition(id, now, StatusActive, func(s *Subscription) error {
		if s.Status != StatusPaused {
			return transitionErr(s.Status, StatusActive)
		}
		return nil
	})
}

// Cancel terminates a subscription from any non-terminal status. The reason,
// if given, is preserved in metadata. A second Cancel on the same record
// fails: terminal states accept no transitions.
func (st *Store) Cancel(id uuid.UUID, reason string, now time.Time) error {
	_, err := st.transition(id, now, StatusCancelled, func(s *Subscription) error {
		if !s.Status.CanTransition(StatusCancelled) {
			return transitionErr(s.Status, StatusCancelled)
		}
		if reason != "" {
			s.Metadata[metaCancellationReason] = reason
		}
		s.NextPaymentAt = nil
		return nil
	})
	return err
}

// UpdateAmount changes the billed amount of an active subscription. The
// schedule is untouched.
func (st *Store) UpdateAmount(id uuid.UUID, amount int64, now time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	_, err := st.transition(id, now, StatusActive, func(s *Subscription) error {
		if s.Status != StatusActive {
			return fmt.Errorf("%w: amount is only mutable while active, got %s", ErrInvalidStateTransition, s.Status)
		}
		s.Amount.Amount = amount
		return nil
	})
	return err
}

// RecordSuccess applies a successful billing attempt: increments the payment
// counter, adds the charged amount to the collected total, and either
// completes the subscription (cap reached) or advances the next payment date
// one interval from the payment date. Valid from active and failed (retry)
// states. amount is what the gateway actually charged, which keeps the
// collected total equal to the sum of successful history records even if the
// subscription amount changed while the charge was in flight.
func (st *Store) RecordSuccess(id uuid.UUID, amount int64, paidAt time.Time) (*Subscription, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sub, ok := st.subs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	if !sub.Billable() {
		return nil, transitionErr(sub.Status, StatusActive)
	}

	sub.PaymentCount++
	sub.TotalCollected += amount
	sub.LastPaymentAt = cloneTime(&paidAt)

	if sub.MaxPayments > 0 && sub.PaymentCount >= sub.MaxPayments {
		sub.Status = StatusCompleted
		sub.NextPaymentAt = nil
	} else {
		next := paidAt.AddDate(0, 0, sub.Frequency.IntervalDays())
		sub.Status = StatusActive
		sub.NextPaymentAt = &next
	}
	sub.UpdatedAt = paidAt

	return sub.clone(), nil
}

// RecordFailure applies a failed billing attempt: the subscription moves to
// (or stays in) failed and its next payment date becomes the retry time.
func (st *Store) RecordFailure(id uuid.UUID, retryAt, now time.Time) (*Subscription, error) {
	return st.transition(id, now, StatusFailed, func(s *Subscription) error {
		if !s.Status.CanTransition(StatusFailed) {
			return transitionErr(s.Status, StatusFailed)
		}
		s.NextPaymentAt = cloneTime(&retryAt)
		return nil
	})
}

// transition runs a guarded status change under the write lock. The guard may
// mutate the record; on success the status and UpdatedAt are stamped and a
// copy of the result returned.
func (st *Store) transition(id uuid.UUID, now time.Time, to Status, guard func(*Subscription) error) (*Subscription, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sub, ok := st.subs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	if err := guard(sub); err != nil {
		return nil, err
	}

	sub.Status = to
	sub.UpdatedAt = now
	return sub.clone(), nil
}

func transitionErr(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}
