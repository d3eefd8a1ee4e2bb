package billing

import "time"

// daysPerMonth normalizes non-monthly cadences into MRR.
const daysPerMonth = 30.0

// upcomingWindowDays is the lookahead used by the snapshot's UpcomingPayments.
const upcomingWindowDays = 7

// Snapshot is a derived view of the subscription portfolio. It is recomputed
// per query and never persisted.
type Snapshot struct {
	TotalSubscriptions       int
	ActiveSubscriptions      int
	MonthlyRecurringRevenue  float64 // smallest currency unit, 30-day normalized
	PaymentSuccessRate       float64 // percentage, 0 when no history exists
	AverageSubscriptionValue float64 // mean amount over active subscriptions
	UpcomingPayments         int     // active subscriptions due within 7 days
	TotalCollected           int64   // lifetime collected across all subscriptions
	ChurnRate                float64 // externally configured, see Analyze
}

// Analyze computes portfolio metrics from a snapshot of the store and history.
// It is a pure function: empty inputs produce a zeroed snapshot, never an
// error. churnRate is passed through from configuration rather than derived
// from cancellation events.
func Analyze(subs []*Subscription, records []PaymentRecord, now time.Time, churnRate float64) Snapshot {
	snap := Snapshot{
		TotalSubscriptions: len(subs),
		ChurnRate:          churnRate,
	}

	var activeAmount int64
	horizon := now.AddDate(0, 0, upcomingWindowDays)
	for _, sub := range subs {
		snap.TotalCollected += sub.TotalCollected
		if !sub.IsActive() {
			continue
		}
		snap.ActiveSubscriptions++
		activeAmount += sub.Amount.Amount

		amount := float64(sub.Amount.Amount)
		if sub.Frequency == FrequencyMonthly {
			snap.MonthlyRecurringRevenue += amount
		} else {
			snap.MonthlyRecurringRevenue += amount * daysPerMonth / float64(sub.Frequency.IntervalDays())
		}

		if sub.NextPaymentAt != nil && !sub.NextPaymentAt.Before(now) && !sub.NextPaymentAt.After(horizon) {
			snap.UpcomingPayments++
		}
	}

	if snap.ActiveSubscriptions > 0 {
		snap.AverageSubscriptionValue = float64(activeAmount) / float64(snap.ActiveSubscriptions)
	}

	if len(records) > 0 {
		succeeded := 0
		for _, rec := range records {
			if rec.Success {
				succeeded++
			}
		}
		snap.PaymentSuccessRate = float64(succeeded) / float64(len(records)) * 100
	}

	return snap
}

// UpcomingWithin returns active subscriptions whose next payment falls inside
// [now, now+days], in the order given.
func UpcomingWithin(subs []*Subscription, now time.Time, days int) []*Subscription {
	horizon := now.AddDate(0, 0, days)
	var out []*Subscription
	for _, sub := range subs {
		if !sub.IsActive() || sub.NextPaymentAt == nil {
			continue
		}
		if sub.NextPaymentAt.Before(now) || sub.NextPaymentAt.After(horizon) {
			continue
		}
		out = append(out, sub)
	}
	return out
}
