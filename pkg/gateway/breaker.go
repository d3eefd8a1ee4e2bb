package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker wrapped around a Gateway.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32        // consecutive failures before the breaker opens
	OpenTimeout      time.Duration // how long the breaker stays open before probing
	MaxHalfOpen      uint32        // probe requests allowed while half-open
}

// DefaultBreakerConfig is conservative enough for a backend billed once per
// subscription per interval: five consecutive failures open the breaker for a
// minute.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "payment-gateway",
		FailureThreshold: 5,
		OpenTimeout:      time.Minute,
		MaxHalfOpen:      1,
	}
}

type breakerGateway struct {
	next    Gateway
	breaker *gobreaker.CircuitBreaker[*ChargeResult]
}

// WithBreaker wraps a Gateway with a circuit breaker. While the breaker is
// open, Charge fails fast with gobreaker.ErrOpenState; the engine treats that
// like any other gateway failure, so affected subscriptions land in the
// normal retry path instead of piling up on a dead backend.
func WithBreaker(next Gateway, cfg BreakerConfig, log *slog.Logger) Gateway {
	if log == nil {
		log = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		Timeout:     cfg.OpenTimeout,
		MaxRequests: cfg.MaxHalfOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("payment gateway breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &breakerGateway{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*ChargeResult](settings),
	}
}

func (g *breakerGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	return g.breaker.Execute(func() (*ChargeResult, error) {
		return g.next.Charge(ctx, req)
	})
}
