package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaypal_Pay(t *testing.T) {
	p := NewPaypal(Config{})
	ctx := context.Background()

	require.NoError(t, p.Pay(ctx, 1))
	require.NoError(t, p.Pay(ctx, PaypalMaxAmount))
	err := p.Pay(ctx, PaypalMaxAmount+1)
	require.ErrorIs(t, err, ErrTooHighPrice)

	var rejected *RejectionError
	require.ErrorAs(t, err, &rejected)
	assert.True(t, rejected.Rejected())
	assert.Equal(t, "too high price", err.Error())
}

func TestStripe_ProcessPayment(t *testing.T) {
	s := NewStripe(Config{})
	ctx := context.Background()

	tests := []struct {
		amount int64
		want   bool
	}{
		{amount: 1, want: false},
		{amount: 5, want: false},
		{amount: 9, want: false},
		{amount: 10, want: true},
		{amount: 100, want: true},
	}
	for _, tt := range tests {
		ok, err := s.ProcessPayment(ctx, tt.amount)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "amount %d", tt.amount)
	}
}

func TestLatency_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	p := NewPaypal(Config{Latency: time.Minute})
	err := p.Pay(ctx, 100)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	s := NewStripe(Config{Latency: time.Minute})
	ok, err := s.ProcessPayment(ctx, 100)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ok)
}
