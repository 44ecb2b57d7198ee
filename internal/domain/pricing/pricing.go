// Package pricing computes the final euro price of an order line from a
// product, a quantity, a tax rate and an optional coupon.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-api/internal/domain/coupon"
	"github.com/xenking/checkout-api/internal/domain/product"
	"github.com/xenking/checkout-api/internal/domain/tax"
)

// Currency of every calculated price.
const Currency = "EUR"

var hundred = decimal.NewFromInt(100)

// Result is the outcome of a price calculation. Subtotal, Discount and Tax
// are informational and rounded to cents; Total is computed from the
// unrounded values and then rounded half-up to 2 decimal places.
type Result struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Currency string
}

// Calculate prices quantity units of p. The coupon, when present, is applied
// before tax. A discount larger than the order price brings the taxable
// amount down to zero, never below.
func Calculate(p product.Product, quantity int64, rate tax.Rate, c *coupon.Coupon) Result {
	subtotal := p.Price.Mul(decimal.NewFromInt(quantity))
	orderPrice := subtotal

	discount := decimal.Zero
	if c != nil {
		discount = c.Discount(orderPrice)
		orderPrice = orderPrice.Sub(discount)
		if orderPrice.IsNegative() {
			orderPrice = decimal.Zero
		}
	}

	orderTax := rate.Percent.Div(hundred).Mul(orderPrice)

	return Result{
		Subtotal: subtotal.Round(2),
		Discount: discount.Round(2),
		Tax:      orderTax.Round(2),
		Total:    orderPrice.Add(orderTax).Round(2),
		Currency: Currency,
	}
}
