// Package tax holds tax rates keyed by customer tax number and the accepted
// tax number formats.
package tax

import (
	"context"
	"regexp"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no rate is registered for a tax number.
var ErrNotFound = errors.New("tax not found")

// Rate is the tax percentage applied for a tax number.
type Rate struct {
	Number  string
	Percent decimal.Decimal
}

// Repository provides lookup of tax rates by tax number.
type Repository interface {
	FindByNumber(ctx context.Context, number string) (*Rate, error)
}

// formats maps a country prefix to the full tax number pattern.
var formats = map[string]*regexp.Regexp{
	"DE": regexp.MustCompile(`^DE[0-9]{9}$`),
	"IT": regexp.MustCompile(`^IT[0-9]{11}$`),
	"GR": regexp.MustCompile(`^GR[0-9]{9}$`),
}

// CountryOf returns the country code of a well-formed tax number.
func CountryOf(number string) (string, bool) {
	if len(number) < 2 {
		return "", false
	}
	country := number[:2]
	re, ok := formats[country]
	if !ok || !re.MatchString(number) {
		return "", false
	}
	return country, true
}

// ValidNumber reports whether number matches one of the accepted formats.
func ValidNumber(number string) bool {
	_, ok := CountryOf(number)
	return ok
}
