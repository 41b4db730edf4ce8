package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/config"
	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const maxProductNameLength = 200

type IProductService interface {
	ListProducts(ctx context.Context, page, pageSize int) ([]model.Product, int64, error)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint, patch ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	SeedCatalog(ctx context.Context, seed *config.CatalogSeed) (int, error)
}

type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
}

// ProductPatch nil 欄位不更新
type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
}

func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.StockQuantity == nil
}

type ProductService struct {
	productRepo db.IProductRepository
	logger      zerolog.Logger
}

// productRepo 可傳入 cache aside 包裝過的 repository
func NewProductService(productRepo db.IProductRepository, logger zerolog.Logger) *ProductService {
	if productRepo == nil {
		panic("NewProductService: productRepo cannot be nil")
	}
	return &ProductService{
		productRepo: productRepo,
		logger:      logger.With().Str("component", "product_service").Logger(),
	}
}

// ListProducts page 從 1 開始, pageSize 超出範圍時使用預設值
func (s *ProductService) ListProducts(ctx context.Context, page, pageSize int) ([]model.Product, int64, error) {
	if page < 1 {
		page = constants.DefaultPaging
	}
	if pageSize < 1 {
		pageSize = constants.DefaultPagingSize
	}
	if pageSize > constants.MaxPagingSize {
		pageSize = constants.MaxPagingSize
	}

	products, total, err := s.productRepo.ListProducts(ctx, page, pageSize)
	if err != nil {
		return nil, 0, wrapStorageError(err)
	}
	return products, total, nil
}

// 錯誤:
//   - NotFoundCode: 商品不存在或已刪除
func (s *ProductService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		return nil, s.wrapProductError(err)
	}
	return product, nil
}

// 錯誤:
//   - BadRequestCode: 名稱空白或過長, 價格為負或超過兩位小數, 庫存為負
func (s *ProductService) CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error) {
	name := strings.TrimSpace(input.Name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if err := validateStock(input.StockQuantity); err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:          name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
	}
	if err := s.productRepo.CreateProduct(ctx, product); err != nil {
		return nil, wrapStorageError(err)
	}
	s.logger.Info().Uint("product_id", product.ID).Str("name", product.Name).Msg("product created")
	return product, nil
}

// UpdateProduct 部分更新, 只寫入 patch 中有值的欄位
//
// 錯誤:
//   - BadRequestCode: 欄位值不合法
//   - NotFoundCode: 商品不存在或已刪除
func (s *ProductService) UpdateProduct(ctx context.Context, id uint, patch ProductPatch) (*model.Product, error) {
	fields := make(map[string]any, 4)
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validateProductName(name); err != nil {
			return nil, err
		}
		fields[model.ProductFieldName] = name
	}
	if patch.Description != nil {
		fields[model.ProductFieldDescription] = *patch.Description
	}
	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return nil, err
		}
		fields[model.ProductFieldPrice] = *patch.Price
	}
	if patch.StockQuantity != nil {
		if err := validateStock(*patch.StockQuantity); err != nil {
			return nil, err
		}
		fields[model.ProductFieldStockQuantity] = *patch.StockQuantity
	}

	product, err := s.productRepo.UpdateProductFields(ctx, id, fields)
	if err != nil {
		return nil, s.wrapProductError(err)
	}
	return product, nil
}

// 錯誤:
//   - NotFoundCode: 商品不存在或已刪除
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.productRepo.DeleteProduct(ctx, id); err != nil {
		return s.wrapProductError(err)
	}
	s.logger.Info().Uint("product_id", id).Msg("product deleted")
	return nil
}

// SeedCatalog 建立名稱尚未存在的商品, 重複執行不會重複建立
// 回傳新建立的數量
func (s *ProductService) SeedCatalog(ctx context.Context, seed *config.CatalogSeed) (int, error) {
	if seed == nil {
		return 0, nil
	}
	created := 0
	for _, sp := range seed.Products {
		_, err := s.productRepo.GetProductByName(ctx, sp.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, db.ErrProductNotFound) {
			return created, wrapStorageError(err)
		}

		price, err := sp.PriceDecimal()
		if err != nil {
			return created, newValidationError("price", err.Error())
		}
		if _, err := s.CreateProduct(ctx, ProductInput{
			Name:          sp.Name,
			Description:   sp.Description,
			Price:         price,
			StockQuantity: sp.StockQuantity,
		}); err != nil {
			return created, err
		}
		created++
	}
	s.logger.Info().Int("created", created).Int("total", len(seed.Products)).Msg("catalog seeded")
	return created, nil
}

func (s *ProductService) wrapProductError(err error) error {
	if errors.Is(err, db.ErrProductNotFound) {
		return apperr.Wrap(apperr.NotFoundCode, ErrProductNotFound.Error(), err)
	}
	return wrapStorageError(err)
}

func validateProductName(name string) error {
	if name == "" {
		return newValidationError("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxProductNameLength {
		return newValidationError("name", "must be at most 200 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return newValidationError("price", "must not be negative")
	}
	if !price.Equal(price.Round(2)) {
		return newValidationError("price", "must have at most 2 decimal places")
	}
	if price.GreaterThan(model.MaxMoney) {
		return newValidationError("price", "must not exceed "+model.MaxMoney.StringFixed(2))
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return newValidationError("stock_quantity", "must not be negative")
	}
	return nil
}

var _ IProductService = (*ProductService)(nil)
