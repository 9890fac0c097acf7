package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/rxstore/internal/auth"
	"github.com/utafrali/rxstore/internal/config"
	"github.com/utafrali/rxstore/internal/event"
	handler "github.com/utafrali/rxstore/internal/handler/http"
	"github.com/utafrali/rxstore/internal/postal"
	"github.com/utafrali/rxstore/internal/repository/postgres"
	redisrepo "github.com/utafrali/rxstore/internal/repository/redis"
	"github.com/utafrali/rxstore/internal/service"
	"github.com/utafrali/rxstore/internal/storage"
	"github.com/utafrali/rxstore/internal/storage/local"
	"github.com/utafrali/rxstore/internal/storage/memory"
	"github.com/utafrali/rxstore/migrations"
	"github.com/utafrali/rxstore/pkg/database"
	"github.com/utafrali/rxstore/pkg/health"
	"github.com/utafrali/rxstore/pkg/httpclient"
	pkgkafka "github.com/utafrali/rxstore/pkg/kafka"
	"github.com/utafrali/rxstore/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, version string, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownTracer, err := tracing.Init(ctx, cfg.Tracing(version))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// PostgreSQL
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, cfg.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Redis
	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.Redis().Addr()),
		slog.Int("db", cfg.RedisDB),
	)

	// Kafka
	producer := pkgkafka.NewProducer(cfg.Kafka(), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Blob storage
	store, files, err := newStorage(cfg)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, err
	}

	// Postal code lookup
	postalHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(cfg.PostalClient()),
		httpclient.DefaultCircuitBreakerConfig("viacep"),
		logger,
	)
	postalClient := postal.NewClient(postalHTTP, cfg.PostalLookupURL)

	// Build the dependency graph.
	products := postgres.NewProductRepository(pool)
	categories := postgres.NewCategoryRepository(pool)
	coupons := postgres.NewCouponRepository(pool)
	zones := postgres.NewShippingZoneRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	carts := redisrepo.NewCartRepository(rdb, cfg.CartTTL)
	sessions := redisrepo.NewCheckoutSessionRepository(rdb, cfg.CheckoutSessionTTL)
	eventProducer := event.NewProducer(producer, logger)

	svcs := handler.Services{
		Catalog:  service.NewCatalogService(products, categories, store, eventProducer, logger),
		Cart:     service.NewCartService(carts, products, eventProducer, logger),
		Pricing:  service.NewPricingService(carts, sessions, coupons, zones, postalClient, logger),
		Checkout: service.NewCheckoutService(carts, sessions, orders, store, eventProducer, logger, cfg.ProofMaxBytes),
		Orders:   service.NewOrderService(orders, eventProducer, logger),
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterOptional("kafka", producer.Ping)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Hour)
	router := handler.NewRouter(svcs, healthHandler, handler.RouterConfig{
		ServiceName:         cfg.ServiceName,
		CORS:                cfg.CORS(),
		AdminTokens:         jwtManager.Validator(),
		CouponRatePerSecond: cfg.CouponRatePerSecond,
		CouponRateBurst:     cfg.CouponRateBurst,
		ProofMaxBytes:       cfg.ProofMaxBytes,
		Files:               files,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		httpServer:     httpServer,
		shutdownTracer: shutdownTracer,
	}, nil
}

// newStorage picks the blob store and the handler that serves its files.
func newStorage(cfg *config.Config) (storage.Storage, http.Handler, error) {
	switch cfg.StorageDriver {
	case "memory":
		s := memory.New(cfg.StorageBaseURL)
		return s, s, nil
	default:
		s, err := local.New(cfg.StorageDir, cfg.StorageBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open local storage: %w", err)
		}
		return s, http.FileServer(http.Dir(s.Root())), nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.Shutdown()
		return err
	}

	a.Shutdown()
	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}
	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}
	a.pool.Close()
	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
}
