package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/checkout-api/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		capacity    uint
		batchSize   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing coupon batches")
	flag.StringVar(&pattern, "pattern", "*.csv.gz", "glob of batch files inside --data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "expected-codes", 1_000_000, "expected number of codes per file (bloom filter sizing)")
	flag.IntVar(&batchSize, "batch-size", 1000, "coupons per database batch")
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
	if batchSize <= 0 {
		lg.Fatal("Batch size must be positive", zap.Int("batch_size", batchSize))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	files := flag.Args()
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(dataDir, pattern))
		if err != nil {
			lg.Fatal("Invalid pattern", zap.Error(err))
		}
		files = matches
	}
	sort.Strings(files)

	in := &ingester{
		lg:            lg,
		capacity:      capacity,
		fpr:           0.001,
		batchSize:     batchSize,
		progressEvery: 1_000_000,
	}
	if err := run(ctx, in, files, databaseURL); err != nil {
		lg.Fatal("Coupon ingest failed", zap.Error(err))
	}
}

func run(ctx context.Context, in *ingester, files []string, databaseURL string) error {
	if len(files) == 0 {
		return errors.New("no batch files found")
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	in.lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	stats, err := in.run(ctx, files, postgres.NewCouponRepository(pool))
	if err != nil {
		return err
	}

	in.lg.Info("Coupon ingest completed",
		zap.Int("files", len(files)),
		zap.Uint64("lines", stats.Lines),
		zap.Uint64("invalid", stats.Invalid),
		zap.Int("conflicts", stats.Conflicts),
		zap.Int64("written", stats.Written),
	)
	return nil
}
