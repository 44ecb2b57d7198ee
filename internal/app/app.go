package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/checkout-api/internal/domain/coupon"
	"github.com/xenking/checkout-api/internal/domain/payment"
	"github.com/xenking/checkout-api/internal/domain/pricing"
	"github.com/xenking/checkout-api/internal/domain/product"
	"github.com/xenking/checkout-api/internal/domain/tax"
	"github.com/xenking/checkout-api/internal/handler"
	"github.com/xenking/checkout-api/internal/storage/cache"
	"github.com/xenking/checkout-api/internal/storage/postgres"
	"github.com/xenking/checkout-api/pkg/health"
	"github.com/xenking/checkout-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))

	// Repositories, optionally behind the Redis lookup cache.
	var (
		products product.Repository = postgres.NewProductRepository(pool)
		taxes    tax.Repository     = postgres.NewTaxRepository(pool)
		coupons  coupon.Repository  = postgres.NewCouponRepository(pool)
	)
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewClient(ctx, cache.Options{
			URL:      cfg.Redis.URL,
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = rdb.Close() }()

		cacheCfg := cache.Config{TTL: cfg.Redis.TTL, NegativeTTL: cfg.Redis.NegativeTTL}
		products = cache.NewProductRepository(products, rdb, cacheCfg)
		taxes = cache.NewTaxRepository(taxes, rdb, cacheCfg)
		coupons = cache.NewCouponRepository(coupons, rdb, cacheCfg)

		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		lg.Info("Lookup cache enabled", zap.Duration("ttl", cfg.Redis.TTL))
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	pricingSvc := pricing.NewService(products, taxes, coupons)

	registry, err := newGatewayRegistry(lg, cfg.Payment)
	if err != nil {
		return errors.Wrap(err, "create gateway registry")
	}
	dispatcher, err := payment.NewDispatcher(registry,
		payment.WithTimeout(cfg.Payment.Timeout),
		payment.WithTracerProvider(m.TracerProvider()),
		payment.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create payment dispatcher")
	}
	lg.Info("Payment processors registered", zap.Strings("processors", registry.Names()))

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(handler.HandlerConfig{}, pricingSvc, dispatcher).Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	trustedProxies, err := httpmiddleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return errors.Wrap(err, "parse trusted proxies")
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Payment.Timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				PerSecond:      cfg.RateLimit.PerSecond,
				Burst:          cfg.RateLimit.Burst,
				IdleTTL:        cfg.RateLimit.IdleTTL,
				TrustedProxies: trustedProxies,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("checkout-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
