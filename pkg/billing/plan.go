package billing

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Plan describes a reusable subscription template. Immutable after
// registration except the Active flag, which the Catalog toggles.
type Plan struct {
	ID          string
	Name        string
	Description string
	Price       Money
	Frequency   Frequency
	MaxPayments int // 0 means uncapped
	TrialDays   int
	Features    []string
	Active      bool
	CreatedAt   time.Time
}

// Validate checks the plan's invariants before registration.
func (p Plan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: plan ID is required", ErrInvalidPlan)
	}
	if p.Price.Amount <= 0 {
		return errors.Join(ErrInvalidPlan, ErrInvalidAmount)
	}
	if !p.Frequency.Valid() {
		return errors.Join(ErrInvalidPlan, ErrInvalidFrequency)
	}
	if p.MaxPayments < 0 || p.TrialDays < 0 {
		return fmt.Errorf("%w: max payments and trial days cannot be negative", ErrInvalidPlan)
	}
	return nil
}

// FirstPaymentAt calculates when the first billing attempt is due for a
// subscription started at the given time: one interval after the start,
// shifted past any trial window.
func (p Plan) FirstPaymentAt(startedAt time.Time) time.Time {
	return startedAt.AddDate(0, 0, p.TrialDays+p.Frequency.IntervalDays())
}

func (p Plan) clone() Plan {
	p.Features = slices.Clone(p.Features)
	return p
}
