package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/xenking/checkout-api/internal/domain/payment"

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds every gateway call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		dp.timeout = d
	}
}

// WithTracerProvider sets the tracer provider used for dispatch spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(dp *Dispatcher) {
		dp.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider used for dispatch metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(dp *Dispatcher) {
		dp.meterProvider = mp
	}
}

// Dispatcher resolves a processor name against a Registry and invokes the
// gateway. Dispatch always returns an Outcome.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	tracer     trace.Tracer
	dispatches metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		registry:       registry,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.tracer = d.tracerProvider.Tracer(instrumentationName)
	meter := d.meterProvider.Meter(instrumentationName)

	var err error
	d.dispatches, err = meter.Int64Counter("payment.dispatch.count",
		metric.WithDescription("Payment dispatches by processor and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create dispatch counter")
	}
	d.duration, err = meter.Float64Histogram("payment.dispatch.duration",
		metric.WithDescription("Gateway call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create dispatch histogram")
	}

	return d, nil
}

// Dispatch charges amount through the gateway registered under name and
// returns the gateway's Outcome unchanged. Unknown names, non-positive
// amounts, cancellation and gateway panics are reported as failures.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, amount int64) Outcome {
	start := time.Now()

	g, known := d.registry.Lookup(name)
	label := name
	if !known {
		label = "unknown"
	}

	ctx, span := d.tracer.Start(ctx, "payment.Dispatch",
		trace.WithAttributes(
			attribute.String("payment.processor", label),
			attribute.Int64("payment.amount", amount),
		),
	)
	defer span.End()

	var out Outcome
	switch {
	case !known:
		out = Failure(CauseUnknownGateway, ReasonUnknownGateway)
	case amount <= 0:
		out = Failure(CauseInvalidAmount, ReasonInvalidAmount)
	default:
		out = d.call(ctx, g, amount)
	}

	attrs := metric.WithAttributes(
		attribute.String("processor", label),
		attribute.String("status", string(out.Status)),
		attribute.String("cause", string(out.Cause)),
	)
	d.dispatches.Add(ctx, 1, attrs)
	d.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if out.OK() {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetAttributes(attribute.String("payment.failure_cause", string(out.Cause)))
		span.SetStatus(codes.Error, out.Reason)
	}

	zctx.From(ctx).Info("Payment dispatched",
		zap.String("processor", name),
		zap.Int64("amount", amount),
		zap.Stringer("outcome", out),
		zap.Duration("took", time.Since(start)),
	)

	return out
}

// call runs the gateway in its own goroutine so that a gateway ignoring ctx
// cannot keep the caller waiting past cancellation.
func (d *Dispatcher) call(ctx context.Context, g Gateway, amount int64) Outcome {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if ctx.Err() != nil {
		return cancelled()
	}

	done := make(chan Outcome, 1)
	go func() {
		var out Outcome
		defer func() { done <- out }()
		defer recoverFault(&out)
		out = g.Pay(ctx, amount)
	}()

	select {
	case out := <-done:
		if !out.OK() && out.Cause == CauseFault && ctx.Err() != nil {
			return cancelled()
		}
		return out
	case <-ctx.Done():
		return cancelled()
	}
}
