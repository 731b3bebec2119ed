// Package circuit builds the circuit breakers wrapped around outbound HTTP
// dependencies.
package circuit

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	DefaultFailures = 5
	DefaultTimeout  = 30 * time.Second
)

// statusCoder is implemented by errors that carry an upstream HTTP status
type statusCoder interface {
	HTTPStatus() int
}

// New returns a breaker that opens after failures consecutive failures and
// half-opens after timeout. Errors carrying a 4xx status do not count as
// failures.
func New(name string, failures int, timeout time.Duration, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if failures <= 0 {
		failures = DefaultFailures
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	threshold := uint32(failures)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var sc statusCoder
			if errors.As(err, &sc) {
				return sc.HTTPStatus() < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("circuit_breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// IsOpen reports whether err was produced by a breaker refusing the call
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
