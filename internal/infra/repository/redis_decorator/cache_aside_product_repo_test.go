package redis_decorator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*CacheAsideProductRepo, *db.UnifiedDBImpl, *miniredis.Miniredis) {
	return setupWithLogger(t, zerolog.Nop())
}

func setupWithLogger(t *testing.T, logger zerolog.Logger) (*CacheAsideProductRepo, *db.UnifiedDBImpl, *miniredis.Miniredis) {
	t.Helper()
	conn, err := db.GetSqliteConn(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		sqlDB.Close()
	})
	unified := db.NewUnifiedDB(conn)
	require.NoError(t, unified.InitMigrate())

	mr := miniredis.RunT(t)
	client, err := redis_repo.NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewCacheAsideProductRepo(unified, redis_repo.NewProductRedisRepo(client, time.Minute), logger), unified, mr
}

func TestGetProductFillsCache(t *testing.T) {
	repo, unified, mr := setup(t)
	ctx := context.Background()
	product := &model.Product{Name: "Lamp", Price: decimal.RequireFromString("9.99"), StockQuantity: 4}
	require.NoError(t, unified.CreateProduct(ctx, product))

	got, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, "Lamp", got.Name)
	require.True(t, mr.Exists("product:1"))

	// 直接改 db, 快取仍回傳舊值
	require.NoError(t, unified.DecrementStock(ctx, product.ID, 1))
	cached, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 4, cached.StockQuantity)

	repo.InvalidateProducts(ctx, product.ID)
	fresh, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 3, fresh.StockQuantity)
}

func TestUpdateAndDeleteInvalidate(t *testing.T) {
	repo, unified, mr := setup(t)
	ctx := context.Background()
	product := &model.Product{Name: "Lamp", Price: decimal.RequireFromString("9.99"), StockQuantity: 4}
	require.NoError(t, unified.CreateProduct(ctx, product))

	_, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)

	updated, err := repo.UpdateProductFields(ctx, product.ID, map[string]any{"name": "Desk Lamp"})
	require.NoError(t, err)
	require.Equal(t, "Desk Lamp", updated.Name)
	require.False(t, mr.Exists("product:1"))

	_, err = repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteProduct(ctx, product.ID))
	require.False(t, mr.Exists("product:1"))

	_, err = repo.GetProductByID(ctx, product.ID)
	require.ErrorIs(t, err, db.ErrProductNotFound)
}

func TestRedisDownFallsBackToDB(t *testing.T) {
	var buf bytes.Buffer
	repo, unified, mr := setupWithLogger(t, zerolog.New(&buf))
	ctx := context.Background()
	product := &model.Product{Name: "Lamp", Price: decimal.RequireFromString("9.99"), StockQuantity: 4}
	require.NoError(t, unified.CreateProduct(ctx, product))

	mr.Close()
	got, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, "Lamp", got.Name)
	require.Contains(t, buf.String(), "product cache read failed")
	require.Contains(t, buf.String(), `"component":"product_cache"`)
}
