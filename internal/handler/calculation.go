package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/ogen-go/ogen/validate"
	"go.uber.org/zap"

	"github.com/xenking/checkout-api/internal/domain/pricing"
)

const (
	msgCalculationSuccess = "calculation success"
	msgCalculationError   = "calculation error"
)

// Calculation handles POST /calculation.
func (h *Handler) Calculation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		lg.Info("Calculation rejected", zap.Error(err))
		writeErrors(w, http.StatusBadRequest, msgCalculationError, msgMalformedBody)
		return
	}

	req, err := decodeCalculation(f)
	if err != nil {
		mapCalculationError(w, lg, err)
		return
	}
	lg.Info("Calculation requested",
		zap.Int64("product", req.ProductID),
		zap.Int64("count", req.Quantity),
		zap.String("tax_number", req.TaxNumber),
		zap.String("coupon_code", req.CouponCode),
	)

	result, err := h.calculator.Calculate(ctx, req)
	if err != nil {
		mapCalculationError(w, lg, err)
		return
	}

	// Plain decimal, no thousands separators: "1190.00".
	total := result.Total.StringFixed(2)
	lg.Info("Calculation succeeded",
		zap.String("result_euro", total),
		zap.Stringer("discount", result.Discount),
		zap.Stringer("tax", result.Tax),
	)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(msgCalculationSuccess) })
			e.Field("result_euro", func(e *jx.Encoder) { e.Str(total) })
		})
	})
}

func decodeCalculation(f form) (pricing.Request, error) {
	var (
		req  pricing.Request
		errs fieldErrors
	)
	req.ProductID, _ = f.integer(pricing.FieldProduct, &errs)
	req.Quantity, _ = f.integer(pricing.FieldCount, &errs)
	req.TaxNumber, _ = f.text(pricing.FieldTaxNumber, &errs)
	req.CouponCode = f.optionalText(pricing.FieldCouponCode, &errs)

	if errs.err() != nil {
		errs.merge(req.Validate())
	}
	return req, errs.err()
}

// mapCalculationError converts domain errors to HTTP responses.
func mapCalculationError(w http.ResponseWriter, lg *zap.Logger, err error) {
	var verr *validate.Error
	if errors.As(err, &verr) {
		lg.Info("Calculation request invalid", zap.Error(err))
		writeValidation(w, msgCalculationError, verr)
		return
	}

	var lerr *pricing.LookupError
	if errors.As(err, &lerr) {
		lg.Info("Calculation lookup failed", zap.String("entity", lerr.Entity), zap.String("key", lerr.Key))
		writeErrors(w, http.StatusBadRequest, msgCalculationError, lerr.Error())
		return
	}

	lg.Error("Calculation failed", zap.Error(err))
	writeErrors(w, http.StatusInternalServerError, msgCalculationError, "internal error")
}
