package billing

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Subscription is one customer's recurring payment obligation.
//
// Invariants maintained by the Store:
//   - PaymentCount never exceeds MaxPayments when MaxPayments > 0.
//   - TotalCollected equals the sum of amounts over successful history records.
//   - NextPaymentAt is set exactly in the active, paused, and failed states.
type Subscription struct {
	ID             uuid.UUID
	CustomerID     string
	CustomerName   string
	CustomerEmail  string
	Amount         Money // mutable via UpdateAmount while active
	Description    string
	Frequency      Frequency
	Method         PaymentMethod
	PlanID         string // set when created from a catalog plan
	StartDate      time.Time
	EndDate        *time.Time
	NextPaymentAt  *time.Time
	Status         Status
	MaxPayments    int   // 0 means uncapped
	PaymentCount   int
	TotalCollected int64 // smallest currency unit, successful payments only
	LastPaymentAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Metadata       map[string]string
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsPaused() bool {
	return s.Status == StatusPaused
}

func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled
}

func (s *Subscription) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// Billable reports whether the subscription can be the subject of a billing
// attempt: active, or failed with a retry pending.
func (s *Subscription) Billable() bool {
	return s.Status == StatusActive || s.Status == StatusFailed
}

// DueAt reports whether the subscription is billable and its next payment
// date has arrived at the given time.
func (s *Subscription) DueAt(now time.Time) bool {
	return s.Billable() && s.NextPaymentAt != nil && !s.NextPaymentAt.After(now)
}

// RemainingPayments returns how many successful payments are left before the
// cap, or -1 when the subscription is uncapped.
func (s *Subscription) RemainingPayments() int {
	if s.MaxPayments <= 0 {
		return -1
	}
	return s.MaxPayments - s.PaymentCount
}

// clone returns a deep copy so store internals never leak to callers.
func (s *Subscription) clone() *Subscription {
	cp := *s
	cp.EndDate = cloneTime(s.EndDate)
	cp.NextPaymentAt = cloneTime(s.NextPaymentAt)
	cp.LastPaymentAt = cloneTime(s.LastPaymentAt)
	cp.Metadata = maps.Clone(s.Metadata)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
