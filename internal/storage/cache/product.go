package cache

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-api/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository caches product.Repository lookups.
type ProductRepository struct {
	next  product.Repository
	store store
}

// NewProductRepository wraps next with a read-through cache.
func NewProductRepository(next product.Repository, client redis.Cmdable, cfg Config) *ProductRepository {
	return &ProductRepository{next: next, store: newStore(client, cfg)}
}

// GetByID returns the product with the given id.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return readThrough(ctx, r.store, key("product", id), product.ErrNotFound,
		decodeProduct, encodeProduct,
		func(ctx context.Context) (*product.Product, error) {
			return r.next.GetByID(ctx, id)
		},
	)
}

func encodeProduct(p product.Product) map[string]any {
	return map[string]any{
		"id":    strconv.FormatInt(p.ID, 10),
		"name":  p.Name,
		"price": p.Price.String(),
	}
}

func decodeProduct(fields map[string]string) (product.Product, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return product.Product{}, errors.Wrap(err, "parse id")
	}
	price, err := decimal.NewFromString(fields["price"])
	if err != nil {
		return product.Product{}, errors.Wrap(err, "parse price")
	}
	return product.Product{ID: id, Name: fields["name"], Price: price}, nil
}
