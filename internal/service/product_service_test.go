package service

import (
	"context"
	"strings"
	"testing"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/config"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newProductFixture(t *testing.T) *ProductService {
	t.Helper()
	return NewProductService(newTestUnifiedDB(t), zerolog.Nop())
}

func ptr[T any](v T) *T {
	return &v
}

func TestProductServiceCreateAndGet(t *testing.T) {
	svc := newProductFixture(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, ProductInput{
		Name:          "  Tomato ",
		Description:   "red",
		Price:         decimal.RequireFromString("3.50"),
		StockQuantity: 12,
	})
	require.NoError(t, err)
	require.Equal(t, "Tomato", created.Name)

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Tomato", got.Name)
	require.True(t, decimal.RequireFromString("3.50").Equal(got.Price))
	require.Equal(t, 12, got.StockQuantity)
}

func TestProductServiceCreateValidation(t *testing.T) {
	svc := newProductFixture(t)
	cases := []struct {
		name  string
		input ProductInput
		field string
	}{
		{"blank name", ProductInput{Name: "  ", Price: decimal.NewFromInt(1)}, "name"},
		{"long name", ProductInput{Name: strings.Repeat("x", 201), Price: decimal.NewFromInt(1)}, "name"},
		{"negative price", ProductInput{Name: "a", Price: decimal.NewFromInt(-1)}, "price"},
		{"three decimals", ProductInput{Name: "a", Price: decimal.RequireFromString("1.005")}, "price"},
		{"price above column range", ProductInput{Name: "a", Price: decimal.RequireFromString("100000000.00")}, "price"},
		{"negative stock", ProductInput{Name: "a", Price: decimal.NewFromInt(1), StockQuantity: -1}, "stock_quantity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tc.input)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			require.Equal(t, apperr.BadRequestCode, appErr.Code)
			require.Equal(t, tc.field, appErr.Fields["field"])
		})
	}
}

func TestProductServiceTrailingZerosAccepted(t *testing.T) {
	svc := newProductFixture(t)
	_, err := svc.CreateProduct(context.Background(), ProductInput{Name: "a", Price: decimal.RequireFromString("1.500")})
	require.NoError(t, err)
}

func TestProductServiceUpdate(t *testing.T) {
	svc := newProductFixture(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, ProductInput{Name: "Milk", Price: decimal.RequireFromString("2.00"), StockQuantity: 3})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, p.ID, ProductPatch{
		Price:         ptr(decimal.RequireFromString("2.40")),
		StockQuantity: ptr(10),
	})
	require.NoError(t, err)
	require.Equal(t, "Milk", updated.Name)
	require.True(t, decimal.RequireFromString("2.40").Equal(updated.Price))
	require.Equal(t, 10, updated.StockQuantity)

	_, err = svc.UpdateProduct(ctx, p.ID, ProductPatch{StockQuantity: ptr(-5)})
	require.Equal(t, apperr.BadRequestCode, apperr.CodeOf(err))

	_, err = svc.UpdateProduct(ctx, 9999, ProductPatch{Name: ptr("x")})
	require.Equal(t, apperr.NotFoundCode, apperr.CodeOf(err))
}

func TestProductServiceDelete(t *testing.T) {
	svc := newProductFixture(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, ProductInput{Name: "Egg", Price: decimal.RequireFromString("0.30"), StockQuantity: 30})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.GetProduct(ctx, p.ID)
	require.Equal(t, apperr.NotFoundCode, apperr.CodeOf(err))
	require.Equal(t, apperr.NotFoundCode, apperr.CodeOf(svc.DeleteProduct(ctx, p.ID)))
}

func TestProductServiceListPaging(t *testing.T) {
	svc := newProductFixture(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.CreateProduct(ctx, ProductInput{Name: name, Price: decimal.NewFromInt(1)})
		require.NoError(t, err)
	}

	products, total, err := svc.ListProducts(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, products, 2)
	require.Equal(t, "c", products[0].Name)

	products, _, err = svc.ListProducts(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "a", products[0].Name)

	products, _, err = svc.ListProducts(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, products, 3)
}

func TestProductServiceSeedCatalogIsIdempotent(t *testing.T) {
	svc := newProductFixture(t)
	ctx := context.Background()
	seed := &config.CatalogSeed{Products: []config.SeedProduct{
		{Name: "Carrot", Price: "0.99", StockQuantity: 50},
		{Name: "Potato", Price: "1.25", StockQuantity: 80},
	}}

	created, err := svc.SeedCatalog(ctx, seed)
	require.NoError(t, err)
	require.Equal(t, 2, created)

	created, err = svc.SeedCatalog(ctx, seed)
	require.NoError(t, err)
	require.Zero(t, created)

	_, total, err := svc.ListProducts(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
}
