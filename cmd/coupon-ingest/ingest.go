package main

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/checkout-api/internal/domain/coupon"
)

const (
	csvHeader  = "code,type,value"
	maxCodeLen = 32
)

// couponWriter persists a chunk of coupons and reports how many rows changed.
type couponWriter interface {
	UpsertBatch(ctx context.Context, coupons []coupon.Coupon) (int64, error)
}

type ingestStats struct {
	Lines     uint64
	Invalid   uint64
	Conflicts int
	Written   int64
}

// ingester imports coupon batches in two passes. The first pass builds one
// bloom filter per file. The second pass streams unique codes straight to
// the writer and collects codes that may be defined in another file as well;
// those are resolved after all files are scanned.
type ingester struct {
	lg            *zap.Logger
	capacity      uint
	fpr           float64
	batchSize     int
	progressEvery uint64
}

type fileCandidates map[string]coupon.Coupon

func (in *ingester) run(ctx context.Context, files []string, w couponWriter) (ingestStats, error) {
	var stats ingestStats

	in.lg.Info("Pass 1: building bloom filters", zap.Int("files", len(files)))

	filters, err := in.buildFilters(ctx, files)
	if err != nil {
		return stats, errors.Wrap(err, "build bloom filters")
	}

	in.lg.Info("Pass 2: writing unique codes")

	candidates, written, err := in.scan(ctx, files, filters, w, &stats)
	if err != nil {
		return stats, err
	}
	stats.Written = written

	resolved, conflicts := in.resolve(candidates)
	stats.Conflicts = conflicts

	in.lg.Info("Writing shared codes",
		zap.Int("count", len(resolved)),
		zap.Int("conflicts", conflicts),
	)

	for start := 0; start < len(resolved); start += in.batchSize {
		end := min(start+in.batchSize, len(resolved))
		n, err := w.UpsertBatch(ctx, resolved[start:end])
		if err != nil {
			return stats, errors.Wrap(err, "write shared codes")
		}
		stats.Written += n
	}

	return stats, nil
}

func (in *ingester) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(in.capacity, in.fpr)
			var count uint64

			err := streamGzFile(ctx, path, func(line string) error {
				c, err := parseRecord(line)
				if err != nil {
					return nil
				}
				filter.AddString(c.Code)
				count++
				if count%in.progressEvery == 0 {
					in.lg.Info("Pass 1 progress", zap.String("file", path), zap.Uint64("codes", count))
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}

			in.lg.Info("Pass 1 complete", zap.String("file", path), zap.Uint64("codes", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func (in *ingester) scan(
	ctx context.Context,
	files []string,
	filters []*bloom.BloomFilter,
	w couponWriter,
	stats *ingestStats,
) ([]fileCandidates, int64, error) {
	results := make([]fileCandidates, len(files))
	lines := make([]uint64, len(files))
	invalid := make([]uint64, len(files))
	out := make(chan coupon.Coupon, in.batchSize)

	g, gctx := errgroup.WithContext(ctx)

	var written int64
	g.Go(func() error {
		n, err := in.drain(gctx, w, out)
		written = n
		return err
	})

	scanners, sctx := errgroup.WithContext(gctx)
	for i, path := range files {
		scanners.Go(func() error {
			candidates := make(fileCandidates)

			err := streamGzFile(sctx, path, func(line string) error {
				lines[i]++
				c, err := parseRecord(line)
				if errors.Is(err, errSkip) {
					return nil
				}
				if err != nil {
					invalid[i]++
					in.lg.Debug("Invalid record", zap.String("file", path), zap.Uint64("line", lines[i]), zap.Error(err))
					return nil
				}

				for j, f := range filters {
					if j != i && f.TestString(c.Code) {
						candidates[c.Code] = c
						return nil
					}
				}

				select {
				case out <- c:
					return nil
				case <-sctx.Done():
					return sctx.Err()
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}

			in.lg.Info("Pass 2 complete",
				zap.String("file", path),
				zap.Uint64("lines", lines[i]),
				zap.Uint64("invalid", invalid[i]),
				zap.Int("candidates", len(candidates)),
			)
			results[i] = candidates
			return nil
		})
	}
	g.Go(func() error {
		defer close(out)
		return scanners.Wait()
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	for i := range files {
		stats.Lines += lines[i]
		stats.Invalid += invalid[i]
	}
	return results, written, nil
}

// drain batches coupons from out until it is closed.
func (in *ingester) drain(ctx context.Context, w couponWriter, out <-chan coupon.Coupon) (int64, error) {
	var (
		written int64
		batch   = make([]coupon.Coupon, 0, in.batchSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := w.UpsertBatch(ctx, batch)
		if err != nil {
			return errors.Wrap(err, "write unique codes")
		}
		written += n
		batch = batch[:0]
		return nil
	}

	for c := range out {
		batch = append(batch, c)
		if len(batch) == in.batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}

// resolve merges per-file candidates. A code defined identically in several
// files is kept once; differing definitions drop the code entirely.
func (in *ingester) resolve(results []fileCandidates) ([]coupon.Coupon, int) {
	var (
		order    []string
		merged   = make(map[string]coupon.Coupon)
		conflict = make(map[string]struct{})
	)
	for _, candidates := range results {
		for code, c := range candidates {
			if _, ok := conflict[code]; ok {
				continue
			}
			prev, ok := merged[code]
			if !ok {
				merged[code] = c
				order = append(order, code)
				continue
			}
			if prev.Type != c.Type || !prev.Value.Equal(c.Value) {
				in.lg.Warn("Conflicting coupon definitions, skipping",
					zap.String("code", code),
					zap.String("first", describe(prev)),
					zap.String("second", describe(c)),
				)
				conflict[code] = struct{}{}
				delete(merged, code)
			}
		}
	}

	resolved := make([]coupon.Coupon, 0, len(merged))
	for _, code := range order {
		if c, ok := merged[code]; ok {
			resolved = append(resolved, c)
		}
	}
	return resolved, len(conflict)
}

func describe(c coupon.Coupon) string {
	return string(c.Type) + " " + c.Value.String()
}

var errSkip = errors.New("skip line")

// parseRecord parses a "code,type,value" line. Blank lines and the header
// return errSkip.
func parseRecord(line string) (coupon.Coupon, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.EqualFold(line, csvHeader) {
		return coupon.Coupon{}, errSkip
	}

	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return coupon.Coupon{}, errors.Errorf("expected 3 fields, got %d", len(fields))
	}

	code := strings.TrimSpace(fields[0])
	if code == "" || len(code) > maxCodeLen || strings.ContainsAny(code, " \t") {
		return coupon.Coupon{}, errors.Errorf("invalid code %q", code)
	}

	typ, err := coupon.ParseType(fields[1])
	if err != nil {
		return coupon.Coupon{}, err
	}

	value, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "parse value")
	}
	if value.IsNegative() {
		return coupon.Coupon{}, errors.Errorf("negative value %s", value)
	}

	return coupon.Coupon{Code: code, Type: typ, Value: value}, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
