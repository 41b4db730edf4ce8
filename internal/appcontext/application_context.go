package appcontext

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/api/handler"
	"github.com/RoyceAzure/lab/storefront/internal/config"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth/jwt_auth"
	rj_kafka "github.com/RoyceAzure/lab/storefront/internal/infra/kafka"
	"github.com/RoyceAzure/lab/storefront/internal/infra/producer"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_decorator"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/storefront/internal/pkg/ratelimit"
	"github.com/RoyceAzure/lab/storefront/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const defaultShutdownTimeout = 30 * time.Second

type ApplicationContext struct {
	Cf     *config.Config
	Logger *zerolog.Logger

	DbConn       *gorm.DB
	UnifiedDB    db.UnifiedDB
	RedisClient  *redis.Client
	ProductRepo  db.IProductRepository
	ProductCache *redis_decorator.CacheAsideProductRepo

	KafkaProducer      rj_kafka.Producer
	OrderEventProducer producer.IOrderEventProducer

	TokenVerifier    jwt_auth.ITokenVerifier
	IdentityService  service.IIdentityService
	ProductService   service.IProductService
	OrderService     *service.OrderService
	OrderRateLimiter ratelimit.Limiter

	// 背景工作 (jwks 更新) 的生命週期
	ctx    context.Context
	cancel context.CancelFunc
}

func NewApplicationContext(cf *config.Config, logger *zerolog.Logger) (*ApplicationContext, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := ApplicationContext{
		Cf:     cf,
		Logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	logger.Info().
		Str("db_driver", cf.DbDriver).
		Str("server_port", cf.ServerPort).
		Bool("redis", cf.RedisAddr != "").
		Strs("kafka_brokers", cf.KafkaBrokers).
		Bool("allow_anonymous_orders", cf.AllowAnonymousOrders).
		Msg("loaded config")

	if err := app.Init(); err != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer shutdownCancel()
		app.Shutdown(shutdownCtx)
		return nil, err
	}
	return &app, nil
}

func (app *ApplicationContext) Init() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"database connection", app.setUpDbConn},
		{"unified db", app.setUpUnifiedDB},
		{"redis", app.setUpRedis},
		{"product repository", app.setUpProductRepo},
		{"kafka producer", app.setUpKafkaProducer},
		{"token verifier", app.setUpTokenVerifier},
		{"identity service", app.setUpIdentityService},
		{"product service", app.setUpProductService},
		{"order service", app.setUpOrderService},
		{"order rate limiter", app.setUpOrderRateLimiter},
		{"catalog seed", app.seedCatalog},
	}
	for _, step := range steps {
		app.Logger.Info().Msgf("Start setup %s", step.name)
		if err := step.fn(); err != nil {
			return fmt.Errorf("setup %s: %w", step.name, err)
		}
		app.Logger.Info().Msgf("Finish setup %s", step.name)
	}
	return nil
}

func (app *ApplicationContext) setUpDbConn() error {
	conn, err := db.NewDbConnFromConfig(app.Cf, app.Logger)
	if err != nil {
		return err
	}
	app.DbConn = conn
	return nil
}

func (app *ApplicationContext) setUpUnifiedDB() error {
	app.UnifiedDB = db.NewUnifiedDB(app.DbConn)
	return app.UnifiedDB.InitMigrate()
}

// REDIS_ADDR 未設定時不使用快取
func (app *ApplicationContext) setUpRedis() error {
	if app.Cf.RedisAddr == "" {
		app.Logger.Info().Msg("REDIS_ADDR not set, product cache disabled")
		return nil
	}
	client, err := redis_repo.NewRedisClient(app.ctx, app.Cf.RedisAddr,
		redis_repo.WithPassword(app.Cf.RedisPassword),
		redis_repo.WithDB(app.Cf.RedisDB),
	)
	if err != nil {
		return err
	}
	app.RedisClient = client
	return nil
}

func (app *ApplicationContext) setUpProductRepo() error {
	if app.RedisClient == nil {
		app.ProductRepo = app.UnifiedDB
		return nil
	}
	app.ProductCache = redis_decorator.NewCacheAsideProductRepo(
		app.UnifiedDB,
		redis_repo.NewProductRedisRepo(app.RedisClient, app.Cf.ProductCacheTTL),
		*app.Logger,
	)
	app.ProductRepo = app.ProductCache
	return nil
}

// KAFKA_BROKERS 未設定時不發送訂單事件
func (app *ApplicationContext) setUpKafkaProducer() error {
	if len(app.Cf.KafkaBrokers) == 0 {
		app.Logger.Info().Msg("KAFKA_BROKERS not set, order events disabled")
		return nil
	}
	p, err := rj_kafka.NewProducer(rj_kafka.DefaultConfig(app.Cf.KafkaBrokers, app.Cf.OrderEventsTopic), app.Logger)
	if err != nil {
		return err
	}
	app.KafkaProducer = p
	app.OrderEventProducer = producer.NewOrderEventProducer(p)
	return nil
}

// 有 AUTH_JWT_SECRET 時使用 HMAC, 否則使用 JWKS
func (app *ApplicationContext) setUpTokenVerifier() error {
	opts := jwt_auth.Options{
		Issuer:   app.Cf.AuthIssuer,
		Audience: app.Cf.AuthAudience,
	}
	var (
		verifier *jwt_auth.JWTVerifier
		err      error
	)
	if app.Cf.AuthJWTSecret != "" {
		verifier, err = jwt_auth.NewHMACVerifier([]byte(app.Cf.AuthJWTSecret), opts)
	} else {
		verifier, err = jwt_auth.NewJWKSVerifier(app.ctx, app.Cf.AuthJWKSURL, opts)
	}
	if err != nil {
		return err
	}
	app.TokenVerifier = verifier
	return nil
}

func (app *ApplicationContext) setUpIdentityService() error {
	app.IdentityService = service.NewIdentityService(app.TokenVerifier, app.UnifiedDB, app.Cf.IsAdminSubject, *app.Logger)
	return nil
}

func (app *ApplicationContext) setUpProductService() error {
	app.ProductService = service.NewProductService(app.ProductRepo, *app.Logger)
	return nil
}

func (app *ApplicationContext) setUpOrderService() error {
	opts := service.DefaultOrderServiceOptions()
	opts.TxTimeout = app.Cf.OrderTxTimeout
	opts.LockTimeout = app.Cf.OrderLockTimeout
	opts.Retry.MaxRetries = app.Cf.OrderMaxRetries
	opts.Retry.Backoff = app.Cf.OrderRetryBackoff
	opts.AllowAnonymous = app.Cf.AllowAnonymousOrders

	var options []service.OrderServiceOption
	if app.ProductCache != nil {
		options = append(options, service.WithCacheInvalidator(app.ProductCache))
	}
	if app.OrderEventProducer != nil {
		options = append(options, service.WithOrderEventProducer(app.OrderEventProducer))
	}
	app.OrderService = service.NewOrderService(app.UnifiedDB, opts, *app.Logger, options...)
	return nil
}

// 有 redis 時多個 instance 共用限流狀態
func (app *ApplicationContext) setUpOrderRateLimiter() error {
	cfg := ratelimit.Config{
		Capacity:      app.Cf.OrderRateLimitCapacity,
		RatePerSecond: app.Cf.OrderRateLimitPerSecond,
	}
	switch {
	case !cfg.Enabled():
		app.OrderRateLimiter = ratelimit.Unlimited{}
	case app.RedisClient != nil:
		app.OrderRateLimiter = ratelimit.NewRedisTokenBucket(app.RedisClient, cfg)
	default:
		app.OrderRateLimiter = ratelimit.NewTokenBucket(cfg)
	}
	return nil
}

func (app *ApplicationContext) seedCatalog() error {
	if app.Cf.CatalogSeedFile == "" {
		return nil
	}
	seed, err := config.LoadCatalogSeed(app.Cf.CatalogSeedFile)
	if err != nil {
		return err
	}
	_, err = app.ProductService.SeedCatalog(app.ctx, seed)
	return err
}

// HealthChecks 提供給 /health
func (app *ApplicationContext) HealthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := app.DbConn.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if app.RedisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.RedisClient.Ping(ctx).Err()
		}
	}
	return checks
}

// Shutdown 依建立的反向順序關閉, 有錯誤不結束流程
func (app *ApplicationContext) Shutdown(ctx context.Context) error {
	app.Logger.Info().Msg("Start application shutdown")

	done := make(chan error, 1)
	go func() {
		var errs []error

		// 等待背景事件送出後才關閉 producer
		if app.OrderService != nil {
			app.OrderService.Wait()
		}
		if app.KafkaProducer != nil {
			app.Logger.Info().Msg("Closing kafka producer...")
			if err := app.KafkaProducer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close kafka producer: %w", err))
			}
		}
		if tb, ok := app.OrderRateLimiter.(*ratelimit.TokenBucket); ok {
			tb.Stop()
		}
		if app.RedisClient != nil {
			app.Logger.Info().Msg("Closing redis client...")
			if err := app.RedisClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
		if app.DbConn != nil {
			app.Logger.Info().Msg("Closing database connection...")
			if sqlDB, err := app.DbConn.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close database: %w", err))
				}
			}
		}
		app.cancel()
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		app.Logger.Info().Msg("Application shutdown complete")
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}
