package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/validate"
)

// Request field names, as reported in validation errors.
const (
	FieldProduct    = "product"
	FieldCount      = "count"
	FieldTaxNumber  = "taxNumber"
	FieldCouponCode = "couponCode"
)

// Validation messages.
const (
	MsgNotNull         = "This value should not be null."
	MsgNumeric         = "This value should be of type numeric."
	MsgInteger         = "This value should be of type integer."
	MsgPositive        = "This value should be greater than 0."
	MsgTaxNumberFormat = "invalid tax number format"
)

// FieldError builds a validation failure for a single field.
func FieldError(name, msg string) validate.FieldError {
	return validate.FieldError{Name: name, Error: errors.New(msg)}
}

// LookupError reports that a referenced entity does not exist. It unwraps to
// the repository sentinel (product.ErrNotFound, tax.ErrNotFound or
// coupon.ErrNotFound).
type LookupError struct {
	Entity string
	Key    string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
