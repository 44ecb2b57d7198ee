package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/ogen-go/ogen/validate"
	"go.uber.org/zap"

	"github.com/xenking/checkout-api/internal/domain/pricing"
)

const (
	msgPaymentSuccess = "payment success"
	msgPaymentError   = "payment error"

	fieldPaymentProcessor = "paymentProcessor"
	fieldPrice            = "price"
)

// Payment handles POST /payment.
func (h *Handler) Payment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx).With(zap.String("payment_id", uuid.NewString()))

	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		lg.Info("Payment rejected", zap.Error(err))
		writeErrors(w, http.StatusBadRequest, msgPaymentError, msgMalformedBody)
		return
	}

	var errs fieldErrors
	name, _ := f.text(fieldPaymentProcessor, &errs)
	amount, ok := f.integer(fieldPrice, &errs)
	if ok && amount <= 0 {
		errs.add(fieldPrice, pricing.MsgPositive)
	}
	if len(errs.fields) > 0 {
		verr := &validate.Error{Fields: errs.fields}
		lg.Info("Payment request invalid", zap.Error(verr))
		writeValidation(w, msgPaymentError, verr)
		return
	}

	lg.Info("Payment requested", zap.String("processor", name), zap.Int64("price", amount))
	out := h.dispatcher.Dispatch(ctx, name, amount)
	if !out.OK() {
		lg.Info("Payment failed", zap.String("cause", string(out.Cause)), zap.String("reason", out.Reason))
		writeErrors(w, http.StatusBadRequest, msgPaymentError, out.Reason)
		return
	}

	lg.Info("Payment succeeded", zap.String("processor", name), zap.Int64("price", amount))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(msgPaymentSuccess) })
			e.Field("price", func(e *jx.Encoder) { e.Int64(amount) })
		})
	})
}
