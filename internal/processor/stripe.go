package processor

import "context"

// StripeMinAmount is the smallest amount Stripe accepts.
const StripeMinAmount = 10

// Stripe mimics the Stripe SDK.
type Stripe struct {
	cfg Config
}

// NewStripe creates a Stripe client.
func NewStripe(cfg Config) *Stripe {
	return &Stripe{cfg: cfg}
}

// ProcessPayment charges amount. It reports false when the amount is below
// StripeMinAmount.
func (s *Stripe) ProcessPayment(ctx context.Context, amount int64) (bool, error) {
	if err := wait(ctx, s.cfg.Latency); err != nil {
		return false, err
	}
	return amount >= StripeMinAmount, nil
}
