package payment

import "context"

// Gateway is an external payment-processing capability.
//
// Pay must not panic and must return once ctx is done.
type Gateway interface {
	Pay(ctx context.Context, amount int64) Outcome
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, amount int64) Outcome

// Pay calls f(ctx, amount).
func (f GatewayFunc) Pay(ctx context.Context, amount int64) Outcome {
	return f(ctx, amount)
}
