// Package cache provides Redis read-through decorators for the catalog
// repositories. Entries are stored as hashes; misses are cached too, for a
// shorter period. Redis errors never fail a lookup: the decorator falls back
// to the wrapped repository.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix    = "checkout:"
	missingField = "_missing"
)

// Config controls entry lifetimes.
type Config struct {
	TTL         time.Duration `default:"5m"`
	NegativeTTL time.Duration `default:"30s"`
}

// Options are the Redis connection settings. URL takes precedence over the
// individual fields.
type Options struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

func (o Options) redisOptions() (*redis.Options, error) {
	opts := &redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	}
	if o.URL != "" {
		var err error
		if opts, err = redis.ParseURL(o.URL); err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	return opts, nil
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, o Options) (*redis.Client, error) {
	opts, err := o.redisOptions()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", opts.Addr)
	}
	return client, nil
}

// store is the hash-level access shared by the decorators.
type store struct {
	client redis.Cmdable
	cfg    Config
}

func newStore(client redis.Cmdable, cfg Config) store {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.NegativeTTL <= 0 {
		cfg.NegativeTTL = 30 * time.Second
	}
	return store{client: client, cfg: cfg}
}

func key(kind string, id any) string {
	return fmt.Sprintf("%s%s:%v", keyPrefix, kind, id)
}

// readThrough returns the cached entry under k or calls load and caches its
// result. notFound is the sentinel load returns for a missing entity.
func readThrough[T any](
	ctx context.Context,
	s store,
	k string,
	notFound error,
	decode func(map[string]string) (T, error),
	encode func(T) map[string]any,
	load func(context.Context) (*T, error),
) (*T, error) {
	lg := zctx.From(ctx).With(zap.String("cache_key", k))

	fields, err := s.client.HGetAll(ctx, k).Result()
	switch {
	case err != nil:
		lg.Warn("Cache read failed", zap.Error(err))
	case fields[missingField] != "":
		return nil, notFound
	case len(fields) > 0:
		v, err := decode(fields)
		if err == nil {
			return &v, nil
		}
		lg.Warn("Dropping malformed cache entry", zap.Error(err))
	}

	v, err := load(ctx)
	if err != nil {
		if errors.Is(err, notFound) {
			s.put(ctx, lg, k, map[string]any{missingField: "1"}, s.cfg.NegativeTTL)
		}
		return nil, err
	}
	s.put(ctx, lg, k, encode(*v), s.cfg.TTL)
	return v, nil
}

func (s store) put(ctx context.Context, lg *zap.Logger, k string, fields map[string]any, ttl time.Duration) {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, fields)
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		lg.Warn("Cache write failed", zap.Error(err))
	}
}
