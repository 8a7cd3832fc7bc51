package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// Logger is the logging interface used by Breaker.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// BreakerConfig configures the circuit breaker around a Provider.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int

	// OpenTimeout is how long the circuit stays open before a trial request.
	OpenTimeout time.Duration

	Logger Logger
}

// Breaker is a Provider guarded by a circuit breaker. It is safe for
// concurrent use and is normally shared by all station drivers.
type Breaker struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next in a circuit breaker.
func NewBreaker(next Provider, cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 5 * time.Minute
	}
	log := cfg.Logger
	if log == nil {
		log = noopLogger{}
	}

	fails := uint32(cfg.MaxFailures) //nolint:gosec // validated positive above
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "rainfall-provider",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		// A caller giving up is not the provider's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				log.Warn("circuit breaker opened", "breaker", name, "from", from.String())
				return
			}
			log.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Breaker{next: next, cb: cb}
}

// HourlyRainfall implements Provider.
func (b *Breaker) HourlyRainfall(ctx context.Context, latitude, longitude float64, start, end time.Time) ([]Sample, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.HourlyRainfall(ctx, latitude, longitude, start, end)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		return nil, err
	}
	samples, _ := out.([]Sample)
	return samples, nil
}

// State reports the breaker state ("closed", "half-open" or "open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// HealthCheck fails with ErrCircuitOpen while the circuit is open.
func (b *Breaker) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rainfall provider health check: %w", err)
	}
	if state := b.State(); state == gobreaker.StateOpen.String() {
		return fmt.Errorf("%w: breaker %s", ErrCircuitOpen, state)
	}
	return nil
}
