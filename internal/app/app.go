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

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/auth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/config"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/event"
	handler "github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/handler/http"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/oauth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/repository/postgres"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/service"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/migrations"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/database"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/health"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/httpclient"
	pkgkafka "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/kafka"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/middleware"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/tracing"
)

// App wires together all dependencies and runs the auth service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown tracing.Shutdown
}

// NewApp creates a new application instance, initializing all dependencies.
// Anything opened before a failure is closed again.
func NewApp(cfg *config.Config, logger *slog.Logger, version string) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.closeResources()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.Init(ctx, cfg.Tracing(version))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	a.pool, err = database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := prometheus.Register(database.NewPoolStatsCollector(a.pool, config.ServiceName)); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis holds OAuth state between the redirect and the callback.
	a.redis, err = database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	// Initialize Kafka producer.
	a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("create password hasher: %w", err)
	}
	tokens, err := auth.NewTokenManager(cfg.Token())
	if err != nil {
		return nil, fmt.Errorf("create token manager: %w", err)
	}

	userRepo := postgres.NewUserRepository(a.pool, database.QueryTracer{
		SlowThreshold: cfg.SlowQueryThreshold,
		Logger:        logger,
	})
	eventProducer := event.NewProducer(a.producer, logger)
	sessionService := service.NewSessionService(userRepo, hasher, tokens, eventProducer, logger)
	userService := service.NewUserService(userRepo, hasher, logger)

	providers := oauth.NewRegistry(a.providers()...)
	logger.Info("identity providers configured", slog.Any("providers", providers.Names()))

	a.limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
		RPS:        cfg.LoginRateLimitRPS,
		Burst:      cfg.LoginRateLimitBurst,
		TrustProxy: cfg.TrustProxy,
	}, logger)

	// Health checks.
	healthHandler := health.NewHandler(2 * time.Second)
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return a.redis.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return a.producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(handler.RouterDeps{
		ServiceName: config.ServiceName,
		Sessions:    sessionService,
		Users:       userService,
		Extractor:   auth.NewExtractor(tokens, cfg.CookieName),
		Cookies:     cfg.Cookie(),
		Providers:   providers,
		States:      oauth.NewRedisStateStore(a.redis, cfg.OAuthStateTTL),
		OAuth: handler.OAuthConfig{
			SuccessRedirect: cfg.OAuthSuccessURL,
			StateTTL:        cfg.OAuthStateTTL,
		},
		Health:            healthHandler,
		CORS:              middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins),
		LoginLimiter:      a.limiter,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
		Logger:            logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) providers() []oauth.Provider {
	var providers []oauth.Provider
	if a.cfg.GoogleClientID != "" {
		client := httpclient.New(httpclient.DefaultConfig(oauth.ProviderGoogle), a.logger)
		providers = append(providers, oauth.NewGoogleProvider(oauth.GoogleConfig{
			ClientID:     a.cfg.GoogleClientID,
			ClientSecret: a.cfg.GoogleClientSecret,
			RedirectURL:  a.cfg.GoogleCallbackURL,
		}, client, a.logger))
	}
	return providers
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	defer stopLimiter()
	go a.limiter.Run(limiterCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.closeResources()
		return err
	}

	return a.Shutdown()
}

// Shutdown drains in-flight requests, then flushes the tracer and closes
// Kafka, Redis and PostgreSQL in that order.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error

	// Tracer first so spans from drained requests still get exported.
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errors.Join(errs...)
}
