package service

import (
	"context"
	"testing"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// newTestUnifiedDB 每個測試使用獨立的 in-memory sqlite
func newTestUnifiedDB(t *testing.T) *db.UnifiedDBImpl {
	t.Helper()
	conn, err := db.GetSqliteConn(":memory:")
	require.NoError(t, err)
	unified := db.NewUnifiedDB(conn)
	require.NoError(t, unified.InitMigrate())
	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		sqlDB.Close()
	})
	return unified
}

func seedProduct(t *testing.T, repo db.IProductRepository, name, price string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	require.NoError(t, repo.CreateProduct(context.Background(), p))
	return p
}

func seedUser(t *testing.T, repo db.IUserRepository, externalID string) *model.User {
	t.Helper()
	u, err := repo.CreateUserIfNotExists(context.Background(), &model.User{
		ExternalID: externalID,
		Username:   externalID,
		Email:      externalID + "@example.com",
	})
	require.NoError(t, err)
	return u
}

func stockOf(t *testing.T, repo db.IProductRepository, id uint) int {
	t.Helper()
	p, err := repo.GetProductByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}
