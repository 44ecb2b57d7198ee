// Package handler exposes the pricing and payment operations over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/checkout-api/internal/domain/payment"
	"github.com/xenking/checkout-api/internal/domain/pricing"
)

// Calculator prices a request.
type Calculator interface {
	Calculate(ctx context.Context, req pricing.Request) (*pricing.Result, error)
}

// Dispatcher charges an amount through a named payment processor.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, amount int64) payment.Outcome
}

var (
	_ Calculator = (*pricing.Service)(nil)
	_ Dispatcher = (*payment.Dispatcher)(nil)
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// MaxBodyBytes caps the request body size. Zero means 64 KiB.
	MaxBodyBytes int64
}

// Handler serves the calculation and payment endpoints.
type Handler struct {
	calculator   Calculator
	dispatcher   Dispatcher
	maxBodyBytes int64
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, calculator Calculator, dispatcher Dispatcher) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	return &Handler{
		calculator:   calculator,
		dispatcher:   dispatcher,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /calculation", h.Calculation)
	mux.HandleFunc("POST /payment", h.Payment)
}
