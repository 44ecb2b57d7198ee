package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-api/internal/domain/coupon"
)

const (
	findCouponByCodeSQL = `SELECT code, type, value FROM coupons WHERE code = $1`

	upsertCouponSQL = `INSERT INTO coupons (code, type, value) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET type = EXCLUDED.type, value = EXCLUDED.value`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its exact code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Upsert inserts c or replaces the coupon with the same code.
func (r *CouponRepository) Upsert(ctx context.Context, c coupon.Coupon) error {
	if _, err := r.pool.Exec(ctx, upsertCouponSQL, c.Code, string(c.Type), c.Value); err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// UpsertBatch upserts coupons in a single round trip and returns the number
// of rows written.
func (r *CouponRepository) UpsertBatch(ctx context.Context, coupons []coupon.Coupon) (int64, error) {
	if len(coupons) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, c := range coupons {
		batch.Queue(upsertCouponSQL, c.Code, string(c.Type), c.Value)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	var written int64
	for _, c := range coupons {
		tag, err := br.Exec()
		if err != nil {
			return written, fmt.Errorf("upserting coupon %q: %w", c.Code, err)
		}
		written += tag.RowsAffected()
	}
	return written, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c   coupon.Coupon
		typ string
	)
	err := row.Scan(&c.Code, &typ, &c.Value)
	c.Type = coupon.Type(typ)
	return c, err
}
