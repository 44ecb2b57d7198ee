package processor

import "context"

// PaypalMaxAmount is the largest amount PayPal accepts.
const PaypalMaxAmount = 100000

// ErrTooHighPrice is returned by Paypal.Pay above PaypalMaxAmount.
var ErrTooHighPrice error = &RejectionError{Reason: "too high price"}

// Paypal mimics the PayPal SDK.
type Paypal struct {
	cfg Config
}

// NewPaypal creates a Paypal client.
func NewPaypal(cfg Config) *Paypal {
	return &Paypal{cfg: cfg}
}

// Pay charges amount. It returns nil on success.
func (p *Paypal) Pay(ctx context.Context, amount int64) error {
	if err := wait(ctx, p.cfg.Latency); err != nil {
		return err
	}
	if amount > PaypalMaxAmount {
		return ErrTooHighPrice
	}
	return nil
}
