package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item priced in euro.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
}
