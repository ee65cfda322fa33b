// Package clients holds the outbound adapters: viewer-count queries, the social post
// sender and the fallback webhook. Every call runs under a bounded timeout and a
// circuit breaker. Nothing here retries; callers wait for the next natural trigger.
package clients

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/maheshrc27/liveflow/pkg/logging"
)

// ErrCircuitOpen is returned while an upstream is considered unhealthy.
var ErrCircuitOpen = errors.New("upstream circuit open")

func newBreaker(name string, logger logging.Logger) circuitbreaker.CircuitBreaker[any] {
	return circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			if logger == nil {
				return
			}
			logger.WithFields(logging.Fields{
				"circuit_breaker": name,
				"from_state":      stateName(event.OldState),
				"to_state":        stateName(event.NewState),
			}).Warn("circuit breaker state change")
		}).
		Build()
}

// call runs fn with a deadline through the breaker.
func call[T any](ctx context.Context, cb circuitbreaker.CircuitBreaker[any], timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out T
	_, err := failsafe.With(cb).WithContext(ctx).Get(func() (any, error) {
		v, err := fn(ctx)
		out = v
		return nil, err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return out, ErrCircuitOpen
	}
	return out, err
}

func stateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}
