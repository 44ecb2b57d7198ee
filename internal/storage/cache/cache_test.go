package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/checkout-api/internal/domain/coupon"
	"github.com/xenking/checkout-api/internal/domain/product"
	"github.com/xenking/checkout-api/internal/domain/tax"
)

// unreachableClient points at a port nothing listens on, so every command
// fails fast.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type stubProducts struct {
	products map[int64]product.Product
	calls    int
}

func (s *stubProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	s.calls++
	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func TestProductRepository_FallsBackWhenRedisIsDown(t *testing.T) {
	next := &stubProducts{products: map[int64]product.Product{
		1: {ID: 1, Name: "Iphone", Price: decimal.NewFromInt(100)},
	}}
	repo := NewProductRepository(next, unreachableClient(t), Config{})
	ctx := context.Background()

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Iphone", p.Name)

	_, err = repo.GetByID(ctx, 42)
	require.ErrorIs(t, err, product.ErrNotFound)

	assert.Equal(t, 2, next.calls)
}

func TestProductEncoding(t *testing.T) {
	p := product.Product{ID: 7, Name: "Case", Price: decimal.RequireFromString("10.50")}

	fields := make(map[string]string)
	for k, v := range encodeProduct(p) {
		fields[k] = v.(string)
	}
	got, err := decodeProduct(fields)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.Price.Equal(got.Price))

	_, err = decodeProduct(map[string]string{"id": "x", "price": "1"})
	require.Error(t, err)
	_, err = decodeProduct(map[string]string{"id": "1", "price": "ten"})
	require.Error(t, err)
}

func TestDecodeRate(t *testing.T) {
	got, err := decodeRate(map[string]string{"number": "DE123456789", "percent": "19"})
	require.NoError(t, err)
	assert.Equal(t, "DE123456789", got.Number)
	assert.True(t, got.Percent.Equal(decimal.NewFromInt(19)))

	_, err = decodeRate(map[string]string{"number": "DE123456789"})
	require.Error(t, err)

	enc := encodeRate(tax.Rate{Number: "GR123456789", Percent: decimal.NewFromInt(24)})
	assert.Equal(t, "24", enc["percent"])
}

func TestDecodeCoupon(t *testing.T) {
	got, err := decodeCoupon(map[string]string{"code": "P10", "type": "percent", "value": "10"})
	require.NoError(t, err)
	assert.Equal(t, coupon.TypePercent, got.Type)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(10)))

	_, err = decodeCoupon(map[string]string{"code": "P10", "type": "bogus", "value": "10"})
	require.Error(t, err)

	enc := encodeCoupon(coupon.Coupon{Code: "D15", Type: coupon.TypeFixed, Value: decimal.NewFromInt(15)})
	assert.Equal(t, "fixed", enc["type"])
}

func TestKey(t *testing.T) {
	assert.Equal(t, "checkout:product:1", key("product", int64(1)))
	assert.Equal(t, "checkout:coupon:P10", key("coupon", "P10"))
}

func TestOptions(t *testing.T) {
	opts, err := Options{URL: "redis://:secret@cache:6380/2"}.redisOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = Options{Addr: "localhost:6379", DB: 1}.redisOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 1, opts.DB)

	_, err = Options{URL: "http://nope"}.redisOptions()
	require.Error(t, err)
}
