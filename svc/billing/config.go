package billing

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the tunable parameters of the billing engine. Zero values are
// replaced with the envDefault values by LoadConfig, or with DefaultConfig by
// New when no config option is given.
type Config struct {
	// TickInterval is how often the scheduler checks its due table.
	TickInterval time.Duration `env:"BILLING_TICK_INTERVAL" envDefault:"1s"`
	// SweepInterval is how often the safety sweep re-scans the store for due
	// subscriptions missing a scheduled entry.
	SweepInterval time.Duration `env:"BILLING_SWEEP_INTERVAL" envDefault:"1m"`
	// RetryBackoff is the fixed delay before retrying a failed attempt.
	// Retries repeat with the same delay, uncapped.
	RetryBackoff time.Duration `env:"BILLING_RETRY_BACKOFF" envDefault:"24h"`
	// ChargeTimeout bounds a single gateway call.
	ChargeTimeout time.Duration `env:"BILLING_CHARGE_TIMEOUT" envDefault:"30s"`
	// MaxConcurrentAttempts bounds simultaneous in-flight gateway calls.
	// Attempts for one subscription are always serialized regardless.
	MaxConcurrentAttempts int `env:"BILLING_MAX_CONCURRENT_ATTEMPTS" envDefault:"10"`
	// ChurnRate is reported as-is in analytics snapshots; it is configured,
	// not derived from cancellation events.
	ChurnRate float64 `env:"BILLING_CHURN_RATE" envDefault:"0"`
}

// DefaultConfig returns the engine defaults used when no environment is loaded.
func DefaultConfig() Config {
	return Config{
		TickInterval:          time.Second,
		SweepInterval:         time.Minute,
		RetryBackoff:          24 * time.Hour,
		ChargeTimeout:         30 * time.Second,
		MaxConcurrentAttempts: 10,
	}
}

// LoadConfig parses the engine configuration from environment variables.
// A .env file is loaded first when present; a missing file is not an error.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks that all intervals and bounds are usable.
func (c Config) Validate() error {
	if c.TickInterval <= 0 || c.SweepInterval <= 0 || c.RetryBackoff <= 0 || c.ChargeTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxConcurrentAttempts < 1 {
		return ErrInvalidConfig
	}
	return nil
}
