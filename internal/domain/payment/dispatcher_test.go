package payment

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/checkout-api/internal/processor"
)

func newTestDispatcher(t *testing.T, registry *Registry, opts ...Option) *Dispatcher {
	t.Helper()

	d, err := NewDispatcher(registry, opts...)
	require.NoError(t, err)
	return d
}

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry()
	require.NoError(t, r.Register(NamePaypal, NewPaypalGateway(processor.NewPaypal(processor.Config{}))))
	require.NoError(t, r.Register(NameStripe, NewStripeGateway(processor.NewStripe(processor.Config{}))))
	return r
}

func TestDispatcher_Dispatch(t *testing.T) {
	tests := []struct {
		name      string
		processor string
		amount    int64
		want      Outcome
	}{
		{
			name:      "paypal success",
			processor: "paypal",
			amount:    100,
			want:      Success(),
		},
		{
			name:      "paypal too high price",
			processor: "paypal",
			amount:    processor.PaypalMaxAmount + 1,
			want:      Failure(CauseRejected, "too high price"),
		},
		{
			name:      "stripe below threshold",
			processor: "stripe",
			amount:    5,
			want:      Failure(CauseRejected, "price < than 10"),
		},
		{
			name:      "stripe just below threshold",
			processor: "stripe",
			amount:    9,
			want:      Failure(CauseRejected, "price < than 10"),
		},
		{
			name:      "stripe at threshold passes",
			processor: "stripe",
			amount:    10,
			want:      Success(),
		},
		{
			name:      "stripe success",
			processor: "stripe",
			amount:    100,
			want:      Success(),
		},
		{
			name:      "unknown processor",
			processor: "unknown",
			amount:    100,
			want:      Failure(CauseUnknownGateway, "payment processor does not exist"),
		},
		{
			name:      "name match is case sensitive",
			processor: "PayPal",
			amount:    100,
			want:      Failure(CauseUnknownGateway, "payment processor does not exist"),
		},
		{
			name:      "empty name",
			processor: "",
			amount:    100,
			want:      Failure(CauseUnknownGateway, "payment processor does not exist"),
		},
		{
			name:      "zero amount",
			processor: "paypal",
			amount:    0,
			want:      Failure(CauseInvalidAmount, "amount must be greater than 0"),
		},
		{
			name:      "negative amount",
			processor: "stripe",
			amount:    -100,
			want:      Failure(CauseInvalidAmount, "amount must be greater than 0"),
		},
	}

	d := newTestDispatcher(t, defaultRegistry(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Dispatch(context.Background(), tt.processor, tt.amount)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatcher_PassesOutcomeThrough(t *testing.T) {
	want := Failure(CauseRejected, "insufficient funds")
	r := NewRegistry()
	require.NoError(t, r.Register("bank", GatewayFunc(func(context.Context, int64) Outcome {
		return want
	})))

	got := newTestDispatcher(t, r).Dispatch(context.Background(), "bank", 100)
	assert.Equal(t, want, got)
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("broken", GatewayFunc(func(context.Context, int64) Outcome {
		panic(errors.New("nil map write"))
	})))

	got := newTestDispatcher(t, r).Dispatch(context.Background(), "broken", 100)
	assert.Equal(t, CauseFault, got.Cause)
	assert.Equal(t, "nil map write", got.Reason)
}

func TestDispatcher_Cancelled(t *testing.T) {
	t.Run("context already done", func(t *testing.T) {
		called := false
		r := NewRegistry()
		require.NoError(t, r.Register("paypal", GatewayFunc(func(context.Context, int64) Outcome {
			called = true
			return Success()
		})))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		got := newTestDispatcher(t, r).Dispatch(ctx, "paypal", 100)
		assert.Equal(t, Failure(CauseCancelled, "cancelled"), got)
		assert.False(t, called)
	})

	t.Run("gateway ignoring context", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		r := NewRegistry()
		require.NoError(t, r.Register("slow", GatewayFunc(func(context.Context, int64) Outcome {
			<-release
			return Success()
		})))

		d := newTestDispatcher(t, r, WithTimeout(20*time.Millisecond))
		got := d.Dispatch(context.Background(), "slow", 100)
		assert.Equal(t, Failure(CauseCancelled, "cancelled"), got)
	})

	t.Run("slow vendor honouring context", func(t *testing.T) {
		r := NewRegistry()
		slow := NewStripeGateway(processor.NewStripe(processor.Config{Latency: time.Minute}))
		require.NoError(t, r.Register(NameStripe, slow))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		got := newTestDispatcher(t, r).Dispatch(ctx, NameStripe, 100)
		assert.Equal(t, Failure(CauseCancelled, "cancelled"), got)
	})
}

func TestDispatcher_Concurrent(t *testing.T) {
	d := newTestDispatcher(t, defaultRegistry(t))

	const n = 50
	results := make(chan Outcome, n)
	for i := range n {
		go func() {
			name := NamePaypal
			if i%2 == 1 {
				name = NameStripe
			}
			results <- d.Dispatch(context.Background(), name, 100)
		}()
	}

	for range n {
		assert.True(t, (<-results).OK())
	}
}
