package app

import (
	"github.com/go-faster/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xenking/checkout-api/internal/domain/payment"
	"github.com/xenking/checkout-api/internal/processor"
)

// newGatewayRegistry registers the PayPal and Stripe gateways, each behind an
// outbound token bucket and a circuit breaker.
func newGatewayRegistry(lg *zap.Logger, cfg PaymentConfig) (*payment.Registry, error) {
	vendor := processor.Config{Latency: cfg.Latency}
	gateways := map[string]payment.Gateway{
		payment.NamePaypal: payment.NewPaypalGateway(processor.NewPaypal(vendor)),
		payment.NameStripe: payment.NewStripeGateway(processor.NewStripe(vendor)),
	}

	breaker := payment.BreakerConfig{
		MaxFailures:      cfg.Breaker.MaxFailures,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
		HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("Payment processor breaker state changed",
				zap.String("processor", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	}

	registry := payment.NewRegistry()
	for name, g := range gateways {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
		guarded := payment.WithCircuitBreaker(name, payment.WithRateLimit(g, limiter), breaker)
		if err := registry.Register(name, guarded); err != nil {
			return nil, errors.Wrapf(err, "register %s", name)
		}
	}
	return registry, nil
}
