package payment

import "context"

// ReasonStripeRejected is reported when Stripe declines the amount.
const ReasonStripeRejected = "price < than 10"

// StripeClient is the Stripe SDK surface: false means the payment was
// declined.
type StripeClient interface {
	ProcessPayment(ctx context.Context, amount int64) (bool, error)
}

var _ Gateway = (*StripeGateway)(nil)

// StripeGateway adapts a StripeClient to Gateway.
type StripeGateway struct {
	client StripeClient
}

// NewStripeGateway creates a StripeGateway over client.
func NewStripeGateway(client StripeClient) *StripeGateway {
	return &StripeGateway{client: client}
}

// Pay charges amount.
func (g *StripeGateway) Pay(ctx context.Context, amount int64) (out Outcome) {
	defer recoverFault(&out)

	ok, err := g.client.ProcessPayment(ctx, amount)
	if err != nil {
		return failureFromError(ctx, err)
	}
	if !ok {
		return Failure(CauseRejected, ReasonStripeRejected)
	}
	return Success()
}
