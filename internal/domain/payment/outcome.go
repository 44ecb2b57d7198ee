// Package payment dispatches payment requests to external payment gateways
// and normalizes their heterogeneous results into a single Outcome value.
package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Status is the tag of an Outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Cause classifies a failed Outcome.
type Cause string

const (
	// CauseRejected is a business rejection by the gateway.
	CauseRejected Cause = "rejected"
	// CauseFault is an error or panic raised by the gateway client.
	CauseFault Cause = "fault"
	// CauseCancelled means the caller context ended before the gateway answered.
	CauseCancelled Cause = "cancelled"
	// CauseUnknownGateway means no gateway is registered under the name.
	CauseUnknownGateway Cause = "unknown_gateway"
	// CauseUnavailable means the gateway was not called because it is
	// throttled or its circuit breaker is open.
	CauseUnavailable Cause = "unavailable"
	// CauseInvalidAmount means the amount was not positive.
	CauseInvalidAmount Cause = "invalid_amount"
)

// Failure reasons produced by this package.
const (
	ReasonUnknownGateway = "payment processor does not exist"
	ReasonCancelled      = "cancelled"
	ReasonUnavailable    = "payment processor is unavailable"
	ReasonInvalidAmount  = "amount must be greater than 0"
)

// Outcome is the result of a payment attempt: either a success or a failure
// carrying a human-readable reason.
type Outcome struct {
	Status Status
	Cause  Cause
	Reason string
}

// Success returns a successful Outcome.
func Success() Outcome {
	return Outcome{Status: StatusSuccess}
}

// Failure returns a failed Outcome.
func Failure(cause Cause, reason string) Outcome {
	return Outcome{Status: StatusFailure, Cause: cause, Reason: reason}
}

// OK reports whether the payment succeeded.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

func (o Outcome) String() string {
	if o.OK() {
		return string(StatusSuccess)
	}
	return fmt.Sprintf("%s (%s): %s", o.Status, o.Cause, o.Reason)
}

func cancelled() Outcome {
	return Failure(CauseCancelled, ReasonCancelled)
}

// rejection is implemented by client errors that decline the payment itself,
// as opposed to failing to process it.
type rejection interface {
	Rejected() bool
}

// failureFromError converts an error returned by a gateway client.
func failureFromError(ctx context.Context, err error) Outcome {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelled()
	}
	var r rejection
	if errors.As(err, &r) && r.Rejected() {
		return Failure(CauseRejected, err.Error())
	}
	return Failure(CauseFault, err.Error())
}

// recoverFault turns a panic in a gateway client into a fault Outcome.
func recoverFault(out *Outcome) {
	if r := recover(); r != nil {
		*out = Failure(CauseFault, fmt.Sprint(r))
	}
}
