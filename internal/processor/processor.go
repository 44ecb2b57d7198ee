// Package processor provides in-process stand-ins for the PayPal and Stripe
// SDKs. They reproduce the vendors' acceptance rules and honour context
// cancellation.
package processor

import (
	"context"
	"time"
)

// wait blocks for latency or until ctx is done.
func wait(ctx context.Context, latency time.Duration) error {
	if latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RejectionError is returned when a vendor declines a payment under its own
// rules. The request reached the vendor and was answered.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

// Rejected marks the error as a business decision.
func (e *RejectionError) Rejected() bool { return true }
