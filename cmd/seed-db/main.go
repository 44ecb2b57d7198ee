package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/checkout-api/db"
	"github.com/xenking/checkout-api/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog", "", "path to a catalog JSON file (default: embedded db/seed/catalog.json)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}

	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile string) error {
	data := db.Catalog
	if catalogFile != "" {
		lg.Info("Reading catalog file", zap.String("path", catalogFile))

		var err error
		if data, err = os.ReadFile(catalogFile); err != nil {
			return errors.Wrap(err, "read catalog file")
		}
	}

	c, err := parseCatalog(data)
	if err != nil {
		return err
	}

	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	for _, p := range c.Products {
		if err := products.Upsert(ctx, p); err != nil {
			return err
		}
		lg.Info("Upserted product", zap.Int64("id", p.ID), zap.String("name", p.Name), zap.Stringer("price", p.Price))
	}

	taxes := postgres.NewTaxRepository(pool)
	for _, r := range c.Taxes {
		if err := taxes.Upsert(ctx, r); err != nil {
			return err
		}
		lg.Info("Upserted tax rate", zap.String("tax_number", r.Number), zap.Stringer("percent", r.Percent))
	}

	written, err := postgres.NewCouponRepository(pool).UpsertBatch(ctx, c.Coupons)
	if err != nil {
		return err
	}
	lg.Info("Upserted coupons", zap.Int64("count", written))

	return nil
}
