package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sony/gobreaker"
)

var errGatewayFault = errors.New("gateway fault")

// BreakerConfig configures WithCircuitBreaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive faults that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probe calls allowed while half-open.
	HalfOpenRequests uint32
	// OnStateChange is called on every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

var _ Gateway = (*BreakerGateway)(nil)

// BreakerGateway guards a Gateway with a circuit breaker. Only faults count
// towards opening the breaker; rejections and cancellations do not.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
}

// WithCircuitBreaker wraps g with a circuit breaker named name.
func WithCircuitBreaker(name string, g Gateway, cfg BreakerConfig) *BreakerGateway {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return &BreakerGateway{
		next: g,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.HalfOpenRequests,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: cfg.OnStateChange,
		}),
	}
}

// Pay calls the wrapped gateway unless the breaker is open.
func (b *BreakerGateway) Pay(ctx context.Context, amount int64) Outcome {
	var out Outcome
	_, err := b.cb.Execute(func() (any, error) {
		out = b.next.Pay(ctx, amount)
		if out.Cause == CauseFault {
			return nil, errGatewayFault
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Failure(CauseUnavailable, ReasonUnavailable)
	}
	return out
}

// State returns the current breaker state.
func (b *BreakerGateway) State() gobreaker.State {
	return b.cb.State()
}
