package coupon

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypeFixed takes a fixed euro amount off the order price.
	TypeFixed Type = "fixed"
	// TypePercent takes a percentage of the order price off.
	TypePercent Type = "percent"
)

// ErrNotFound is returned when a coupon code is unknown.
var ErrNotFound = errors.New("coupon not found")

// Coupon is a discount token looked up by its code.
type Coupon struct {
	Code  string
	Type  Type
	Value decimal.Decimal
}

// Repository provides lookup of coupons by their code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}

// ParseType converts a stored or user supplied discount type.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeFixed, TypePercent:
		return t, nil
	default:
		return "", errors.Errorf("unsupported coupon type: %q", s)
	}
}
