package redis_repo

import (
	"context"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ProductRedisRepoTestSuite struct {
	suite.Suite
	mr          *miniredis.Miniredis
	productRepo *ProductRedisRepo
}

func (suite *ProductRedisRepoTestSuite) SetupTest() {
	suite.mr = miniredis.RunT(suite.T())
	client, err := NewRedisClient(context.Background(), suite.mr.Addr(), WithDB(0), WithPoolSize(4))
	require.NoError(suite.T(), err)
	suite.T().Cleanup(func() { client.Close() })
	suite.productRepo = NewProductRedisRepo(client, time.Minute)
}

func TestProductRedisRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ProductRedisRepoTestSuite))
}

func (suite *ProductRedisRepoTestSuite) TestSetAndGetProduct() {
	ctx := context.Background()
	product := &model.Product{ID: 7, Name: "Lamp", Price: decimal.RequireFromString("12.34"), StockQuantity: 3}

	require.NoError(suite.T(), suite.productRepo.SetProduct(ctx, product))
	require.True(suite.T(), suite.mr.Exists("product:7"))
	require.Equal(suite.T(), time.Minute, suite.mr.TTL("product:7"))

	got, err := suite.productRepo.GetProduct(ctx, 7)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), "Lamp", got.Name)
	require.True(suite.T(), product.Price.Equal(got.Price))
	require.Equal(suite.T(), 3, got.StockQuantity)
}

func (suite *ProductRedisRepoTestSuite) TestCacheMiss() {
	_, err := suite.productRepo.GetProduct(context.Background(), 1)
	require.ErrorIs(suite.T(), err, ErrCacheMiss)
}

func (suite *ProductRedisRepoTestSuite) TestExpiry() {
	ctx := context.Background()
	require.NoError(suite.T(), suite.productRepo.SetProduct(ctx, &model.Product{ID: 1, Name: "A"}))
	suite.mr.FastForward(2 * time.Minute)

	_, err := suite.productRepo.GetProduct(ctx, 1)
	require.ErrorIs(suite.T(), err, ErrCacheMiss)
}

func (suite *ProductRedisRepoTestSuite) TestDeleteProducts() {
	ctx := context.Background()
	require.NoError(suite.T(), suite.productRepo.SetProduct(ctx, &model.Product{ID: 1, Name: "A"}))
	require.NoError(suite.T(), suite.productRepo.SetProduct(ctx, &model.Product{ID: 2, Name: "B"}))

	require.NoError(suite.T(), suite.productRepo.DeleteProducts(ctx, 1, 2, 3))
	require.False(suite.T(), suite.mr.Exists("product:1"))
	require.False(suite.T(), suite.mr.Exists("product:2"))
	require.NoError(suite.T(), suite.productRepo.DeleteProducts(ctx))
}

func TestNewRedisClientUnreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "127.0.0.1:1")
	require.Error(t, err)
}
