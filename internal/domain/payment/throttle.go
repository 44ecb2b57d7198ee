package payment

import (
	"context"

	"golang.org/x/time/rate"
)

var _ Gateway = (*ThrottledGateway)(nil)

// ThrottledGateway limits the call rate to a Gateway with a token bucket.
type ThrottledGateway struct {
	next    Gateway
	limiter *rate.Limiter
}

// WithRateLimit wraps g so that calls wait for a limiter token first.
func WithRateLimit(g Gateway, limiter *rate.Limiter) *ThrottledGateway {
	return &ThrottledGateway{next: g, limiter: limiter}
}

// Pay waits for a token and calls the wrapped gateway. When no token can be
// obtained before ctx ends the gateway is not called.
func (t *ThrottledGateway) Pay(ctx context.Context, amount int64) Outcome {
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return cancelled()
		}
		return Failure(CauseUnavailable, ReasonUnavailable)
	}
	return t.next.Pay(ctx, amount)
}
