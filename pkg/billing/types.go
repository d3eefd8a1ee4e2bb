package billing

// Money represents a monetary amount in the smallest currency unit.
// For example, 1099 with currency "USD" is $10.99; for crypto methods the
// unit is satoshis.
type Money struct {
	Amount   int64  // amount in smallest currency unit
	Currency string // ISO 4217 code or "BTC"
}

// Frequency represents how often a subscription is billed.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// frequencyIntervals maps each frequency to its billing interval in days.
var frequencyIntervals = map[Frequency]int{
	FrequencyDaily:     1,
	FrequencyWeekly:    7,
	FrequencyMonthly:   30,
	FrequencyQuarterly: 90,
	FrequencyYearly:    365,
}

// IntervalDays returns the number of days between billing attempts.
// Returns 0 for unknown frequencies.
func (f Frequency) IntervalDays() int {
	return frequencyIntervals[f]
}

// Valid reports whether the frequency is one of the supported cadences.
func (f Frequency) Valid() bool {
	_, ok := frequencyIntervals[f]
	return ok
}

// PaymentMethod identifies the rail used to collect a payment.
type PaymentMethod string

const (
	MethodBitcoin   PaymentMethod = "bitcoin"
	MethodLightning PaymentMethod = "lightning"
)

// Valid reports whether the payment method is supported.
func (m PaymentMethod) Valid() bool {
	return m == MethodBitcoin || m == MethodLightning
}

// Status represents the current state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// statusTransitions is the subscription state machine as a nested lookup:
// for each current status, the set of statuses reachable from it. A status
// absent from the inner map is unreachable. Cancelled and completed are
// terminal and allow nothing.
var statusTransitions = map[Status]map[Status]bool{
	StatusActive: {
		StatusActive:    true, // successful attempt with payments remaining
		StatusPaused:    true,
		StatusCancelled: true,
		StatusCompleted: true,
		StatusFailed:    true,
	},
	StatusPaused: {
		StatusActive:    true,
		StatusCancelled: true,
	},
	StatusFailed: {
		StatusActive:    true, // retry succeeded
		StatusFailed:    true, // retry failed again
		StatusCompleted: true, // retry succeeded and reached the cap
		StatusCancelled: true,
	},
	StatusCancelled: {},
	StatusCompleted: {},
}

// CanTransition reports whether the state machine permits moving from s to target.
func (s Status) CanTransition(target Status) bool {
	return statusTransitions[s][target]
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return len(statusTransitions[s]) == 0
}
