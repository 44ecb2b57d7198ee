package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-api/internal/domain/tax"
)

const (
	findTaxByNumberSQL = `SELECT tax_number, percent FROM taxes WHERE tax_number = $1`

	upsertTaxSQL = `INSERT INTO taxes (tax_number, percent) VALUES ($1, $2)
		ON CONFLICT (tax_number) DO UPDATE SET percent = EXCLUDED.percent`
)

var _ tax.Repository = (*TaxRepository)(nil)

// TaxRepository implements tax.Repository backed by PostgreSQL.
type TaxRepository struct {
	pool *pgxpool.Pool
}

// NewTaxRepository returns a TaxRepository that uses the given pool.
func NewTaxRepository(pool *pgxpool.Pool) *TaxRepository {
	return &TaxRepository{pool: pool}
}

// FindByNumber looks up the tax rate registered for a tax number. The match
// is exact.
func (r *TaxRepository) FindByNumber(ctx context.Context, number string) (*tax.Rate, error) {
	rows, err := r.pool.Query(ctx, findTaxByNumberSQL, number)
	if err != nil {
		return nil, fmt.Errorf("finding tax %q: %w", number, err)
	}

	rate, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (tax.Rate, error) {
		var rate tax.Rate
		err := row.Scan(&rate.Number, &rate.Percent)
		return rate, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tax.ErrNotFound
		}
		return nil, fmt.Errorf("finding tax %q: %w", number, err)
	}
	return &rate, nil
}

// Upsert inserts rate or replaces the percent of an existing tax number.
func (r *TaxRepository) Upsert(ctx context.Context, rate tax.Rate) error {
	if _, err := r.pool.Exec(ctx, upsertTaxSQL, rate.Number, rate.Percent); err != nil {
		return fmt.Errorf("upserting tax %q: %w", rate.Number, err)
	}
	return nil
}
