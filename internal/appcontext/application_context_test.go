package appcontext

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/config"
	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/pkg/logger"
	"github.com/RoyceAzure/lab/storefront/internal/pkg/ratelimit"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		ServerPort:              "0",
		DbDriver:                string(constants.DriverSqlite),
		SqlitePath:              ":memory:",
		ProductCacheTTL:         time.Minute,
		OrderEventsTopic:        "storefront.orders",
		AuthJWTSecret:           "secret",
		AuthAudience:            "authenticated",
		AllowAnonymousOrders:    true,
		OrderTxTimeout:          5 * time.Second,
		OrderLockTimeout:        time.Second,
		OrderMaxRetries:         1,
		OrderRetryBackoff:       10 * time.Millisecond,
		OrderRateLimitCapacity:  10,
		OrderRateLimitPerSecond: 1,
	}
}

func shutdown(t *testing.T, app *ApplicationContext) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))
}

func TestNewApplicationContextWithoutOptionalDeps(t *testing.T) {
	app, err := NewApplicationContext(testConfig(), logger.Nop())
	require.NoError(t, err)
	defer shutdown(t, app)

	require.Nil(t, app.RedisClient)
	require.Nil(t, app.ProductCache)
	require.Nil(t, app.KafkaProducer)
	require.IsType(t, &ratelimit.TokenBucket{}, app.OrderRateLimiter)

	checks := app.HealthChecks()
	require.Len(t, checks, 1)
	require.NoError(t, checks["database"](context.Background()))
}

func TestNewApplicationContextWithRedisAndSeed(t *testing.T) {
	mr := miniredis.RunT(t)

	seedPath := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(`
products:
  - name: Carrot
    price: "0.99"
    stock_quantity: 10
  - name: Potato
    price: "1.25"
    stock_quantity: 5
`), 0o600))

	cf := testConfig()
	cf.RedisAddr = mr.Addr()
	cf.CatalogSeedFile = seedPath

	app, err := NewApplicationContext(cf, logger.Nop())
	require.NoError(t, err)
	defer shutdown(t, app)

	require.NotNil(t, app.ProductCache)
	require.IsType(t, &ratelimit.RedisTokenBucket{}, app.OrderRateLimiter)
	require.Len(t, app.HealthChecks(), 2)

	products, total, err := app.ProductService.ListProducts(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	// 讀取後回填快取
	_, err = app.ProductService.GetProduct(context.Background(), products[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, mr.Keys())
}

func TestNewApplicationContextFailsOnBadSeed(t *testing.T) {
	cf := testConfig()
	cf.CatalogSeedFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewApplicationContext(cf, logger.Nop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "catalog seed")
}

func TestRateLimiterDisabled(t *testing.T) {
	cf := testConfig()
	cf.OrderRateLimitCapacity = 0

	app, err := NewApplicationContext(cf, logger.Nop())
	require.NoError(t, err)
	defer shutdown(t, app)
	require.IsType(t, ratelimit.Unlimited{}, app.OrderRateLimiter)
}
