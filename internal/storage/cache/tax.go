package cache

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-api/internal/domain/tax"
)

var _ tax.Repository = (*TaxRepository)(nil)

// TaxRepository caches tax.Repository lookups.
type TaxRepository struct {
	next  tax.Repository
	store store
}

// NewTaxRepository wraps next with a read-through cache.
func NewTaxRepository(next tax.Repository, client redis.Cmdable, cfg Config) *TaxRepository {
	return &TaxRepository{next: next, store: newStore(client, cfg)}
}

// FindByNumber returns the tax rate for number.
func (r *TaxRepository) FindByNumber(ctx context.Context, number string) (*tax.Rate, error) {
	return readThrough(ctx, r.store, key("tax", number), tax.ErrNotFound,
		decodeRate, encodeRate,
		func(ctx context.Context) (*tax.Rate, error) {
			return r.next.FindByNumber(ctx, number)
		},
	)
}

func encodeRate(rate tax.Rate) map[string]any {
	return map[string]any{
		"number":  rate.Number,
		"percent": rate.Percent.String(),
	}
}

func decodeRate(fields map[string]string) (tax.Rate, error) {
	percent, err := decimal.NewFromString(fields["percent"])
	if err != nil {
		return tax.Rate{}, errors.Wrap(err, "parse percent")
	}
	return tax.Rate{Number: fields["number"], Percent: percent}, nil
}
