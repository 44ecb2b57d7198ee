package pricing

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/validate"

	"github.com/xenking/checkout-api/internal/domain/coupon"
	"github.com/xenking/checkout-api/internal/domain/product"
	"github.com/xenking/checkout-api/internal/domain/tax"
)

// Request holds the input of a price calculation.
type Request struct {
	ProductID  int64
	Quantity   int64
	TaxNumber  string
	CouponCode string
}

// Validate checks the request invariants and returns a *validate.Error
// listing every failing field, or nil.
func (r Request) Validate() error {
	var fields []validate.FieldError
	if r.Quantity <= 0 {
		fields = append(fields, FieldError(FieldCount, MsgPositive))
	}
	switch {
	case r.TaxNumber == "":
		fields = append(fields, FieldError(FieldTaxNumber, MsgNotNull))
	case !tax.ValidNumber(r.TaxNumber):
		fields = append(fields, FieldError(FieldTaxNumber, MsgTaxNumberFormat))
	}
	if len(fields) > 0 {
		return &validate.Error{Fields: fields}
	}
	return nil
}

// Service resolves the entities referenced by a Request and prices it.
type Service struct {
	products product.Repository
	taxes    tax.Repository
	coupons  coupon.Repository
}

// NewService creates a pricing Service with the required lookups.
func NewService(
	products product.Repository,
	taxes tax.Repository,
	coupons coupon.Repository,
) *Service {
	return &Service{
		products: products,
		taxes:    taxes,
		coupons:  coupons,
	}
}

// Calculate validates req, looks up the product, the tax rate and the
// optional coupon, and returns the computed price. Missing entities are
// reported as *LookupError, invalid input as *validate.Error.
func (s *Service) Calculate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &LookupError{Entity: "product", Key: strconv.FormatInt(req.ProductID, 10), Err: err}
		}
		return nil, errors.Wrap(err, "get product")
	}

	rate, err := s.taxes.FindByNumber(ctx, req.TaxNumber)
	if err != nil {
		if errors.Is(err, tax.ErrNotFound) {
			return nil, &LookupError{Entity: "tax", Key: req.TaxNumber, Err: err}
		}
		return nil, errors.Wrap(err, "find tax rate")
	}

	var c *coupon.Coupon
	if req.CouponCode != "" {
		c, err = s.coupons.FindByCode(ctx, req.CouponCode)
		if err != nil {
			if errors.Is(err, coupon.ErrNotFound) {
				return nil, &LookupError{Entity: "coupon", Key: req.CouponCode, Err: err}
			}
			return nil, errors.Wrap(err, "find coupon")
		}
	}

	result := Calculate(*p, req.Quantity, *rate, c)
	return &result, nil
}
