package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tienda-labs/storefront/internal/auth"
	"github.com/tienda-labs/storefront/internal/client"
	"github.com/tienda-labs/storefront/internal/config"
	"github.com/tienda-labs/storefront/internal/event"
	handler "github.com/tienda-labs/storefront/internal/handler/http"
	redisrepo "github.com/tienda-labs/storefront/internal/repository/redis"
	"github.com/tienda-labs/storefront/internal/service"
	"github.com/tienda-labs/storefront/pkg/health"
	"github.com/tienda-labs/storefront/pkg/httpclient"
	pkgkafka "github.com/tienda-labs/storefront/pkg/kafka"
	"github.com/tienda-labs/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	rdb             *redis.Client
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracingShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Repositories.
	cartTTL := time.Duration(cfg.CartTTLHours) * time.Hour
	sessionTTL := time.Duration(cfg.SessionTTLHours) * time.Hour
	cartRepo := redisrepo.NewCartRepository(rdb, cartTTL, logger)
	sessionRepo := redisrepo.NewSessionRepository(rdb, sessionTTL)

	// Boundary clients. Catalog reads retry behind a circuit breaker; the
	// order submission client gets exactly one attempt per request.
	readClient := httpclient.New(httpclient.DefaultConfig())
	catalogBreaker := httpclient.NewCircuitBreakerClient(
		readClient, httpclient.DefaultCircuitBreakerConfig("catalog"), logger)

	submitCfg := httpclient.DefaultConfig()
	submitCfg.MaxRetries = 0
	submitClient := httpclient.New(submitCfg)

	directoryClient := client.NewDirectoryClient(readClient, cfg.DirectoryBaseURL)
	catalogClient := client.NewCatalogClient(catalogBreaker, cfg.CatalogBaseURL)
	orderClient := client.NewOrderClient(submitClient, cfg.OrdersBaseURL)

	// Services.
	eventProducer := event.NewProducer(producer, logger)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, sessionTTL)
	authService := service.NewAuthService(directoryClient, sessionRepo, jwtManager, logger)
	cartService := service.NewCartService(cartRepo, eventProducer, logger)
	checkoutService := service.NewCheckoutService(cartRepo, orderClient, eventProducer, logger)
	catalogService := service.NewCatalogService(catalogClient, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := handler.NewRouter(handler.RouterDeps{
		Auth:       authService,
		Cart:       cartService,
		Checkout:   checkoutService,
		Catalog:    catalogService,
		Health:     healthHandler,
		Logger:     logger,
		LoginRPS:   cfg.LoginRateRPS,
		LoginBurst: cfg.LoginRateBurst,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		rdb:             rdb,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
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

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
