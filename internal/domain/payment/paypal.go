package payment

import "context"

// PaypalClient is the PayPal SDK surface: a nil error means the payment went
// through.
type PaypalClient interface {
	Pay(ctx context.Context, amount int64) error
}

var _ Gateway = (*PaypalGateway)(nil)

// PaypalGateway adapts a PaypalClient to Gateway.
type PaypalGateway struct {
	client PaypalClient
}

// NewPaypalGateway creates a PaypalGateway over client.
func NewPaypalGateway(client PaypalClient) *PaypalGateway {
	return &PaypalGateway{client: client}
}

// Pay charges amount. Any client error becomes a failure carrying the error
// message.
func (g *PaypalGateway) Pay(ctx context.Context, amount int64) (out Outcome) {
	defer recoverFault(&out)

	if err := g.client.Pay(ctx, amount); err != nil {
		return failureFromError(ctx, err)
	}
	return Success()
}
