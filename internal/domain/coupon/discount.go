package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Discount returns the amount the coupon takes off orderPrice. The result is
// not rounded and not capped; callers decide how to treat a discount larger
// than the order price.
func (c Coupon) Discount(orderPrice decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case TypeFixed:
		return c.Value
	case TypePercent:
		return c.Value.Div(hundred).Mul(orderPrice)
	default:
		return decimal.Zero
	}
}
