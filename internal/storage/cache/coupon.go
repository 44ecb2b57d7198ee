package cache

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-api/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository caches coupon.Repository lookups.
type CouponRepository struct {
	next  coupon.Repository
	store store
}

// NewCouponRepository wraps next with a read-through cache.
func NewCouponRepository(next coupon.Repository, client redis.Cmdable, cfg Config) *CouponRepository {
	return &CouponRepository{next: next, store: newStore(client, cfg)}
}

// FindByCode returns the coupon registered under code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return readThrough(ctx, r.store, key("coupon", code), coupon.ErrNotFound,
		decodeCoupon, encodeCoupon,
		func(ctx context.Context) (*coupon.Coupon, error) {
			return r.next.FindByCode(ctx, code)
		},
	)
}

func encodeCoupon(c coupon.Coupon) map[string]any {
	return map[string]any{
		"code":  c.Code,
		"type":  string(c.Type),
		"value": c.Value.String(),
	}
}

func decodeCoupon(fields map[string]string) (coupon.Coupon, error) {
	typ, err := coupon.ParseType(fields["type"])
	if err != nil {
		return coupon.Coupon{}, err
	}
	value, err := decimal.NewFromString(fields["value"])
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "parse value")
	}
	return coupon.Coupon{Code: fields["code"], Type: typ, Value: value}, nil
}
