package billing

import (
	"log/slog"
	"time"
)

// Option configures the engine at construction time.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock replaces the engine's time source. Useful for tests that need
// deterministic due dates and analytics windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithConfig replaces the entire engine configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithRetryBackoff overrides the fixed delay between failed-attempt retries.
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.cfg.RetryBackoff = d
		}
	}
}

// WithSweepInterval overrides how often the safety sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.cfg.SweepInterval = d
		}
	}
}

// WithTickInterval overrides how often the due table is checked.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.cfg.TickInterval = d
		}
	}
}

// WithChurnRate sets the churn rate reported in analytics snapshots.
func WithChurnRate(rate float64) Option {
	return func(e *Engine) {
		e.cfg.ChurnRate = rate
	}
}

// WithMaxConcurrent bounds simultaneous in-flight gateway calls.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cfg.MaxConcurrentAttempts = n
		}
	}
}
