package db

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrProductNotFound 商品不存在
	ErrProductNotFound = errors.New("product not found")
	// ErrProductStockNotEnough 商品庫存不足
	ErrProductStockNotEnough = errors.New("product stock not enough")
)

// IProductRepository Product 相關操作介面
type IProductRepository interface {
	CreateProduct(ctx context.Context, product *model.Product) error
	GetProductByID(ctx context.Context, id uint) (*model.Product, error)
	GetProductByName(ctx context.Context, name string) (*model.Product, error)
	ListProducts(ctx context.Context, page, pageSize int) ([]model.Product, int64, error)
	UpdateProductFields(ctx context.Context, id uint, fields map[string]any) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	LockProductsByIDs(ctx context.Context, ids []uint) (map[uint]*model.Product, error)
	DecrementStock(ctx context.Context, id uint, quantity int) error
}

type ProductDBRepo struct {
	db *DbDao
}

func NewProductDBRepo(db *DbDao) *ProductDBRepo {
	return &ProductDBRepo{db: db}
}

func (s *ProductDBRepo) CreateProduct(ctx context.Context, product *model.Product) error {
	return ClassifyError(s.db.WithContext(ctx).Create(product).Error)
}

// 錯誤:
//   - ErrProductNotFound: 商品不存在或已刪除
func (s *ProductDBRepo) GetProductByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	err := s.db.WithContext(ctx).First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, ClassifyError(err)
	}
	return &product, nil
}

func (s *ProductDBRepo) GetProductByName(ctx context.Context, name string) (*model.Product, error) {
	var product model.Product
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, ClassifyError(err)
	}
	return &product, nil
}

// 分頁查詢商品, 新商品在前
func (s *ProductDBRepo) ListProducts(ctx context.Context, page, pageSize int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	offset := (page - 1) * pageSize

	// 計算總數
	if err := s.db.WithContext(ctx).Model(&model.Product{}).Count(&total).Error; err != nil {
		return nil, 0, ClassifyError(err)
	}

	// 分頁查詢
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(pageSize).
		Find(&products).Error
	if err != nil {
		return nil, 0, ClassifyError(err)
	}
	return products, total, nil
}

// Update - 部分更新商品
// 先鎖定記錄, 與下單扣庫存互斥
func (s *ProductDBRepo) UpdateProductFields(ctx context.Context, id uint, fields map[string]any) (*model.Product, error) {
	var product model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&product).Updates(fields).Error; err != nil {
			return err
		}
		return tx.First(&product, id).Error
	})
	if err != nil {
		return nil, ClassifyError(err)
	}
	return &product, nil
}

// Delete - 軟刪除商品
func (s *ProductDBRepo) DeleteProduct(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		return ClassifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// LockProductsByIDs 以 id 遞增順序鎖定所有商品列 (SELECT ... FOR UPDATE)
// 固定的加鎖順序避免兩筆訂單互相等待
// 只能在交易內使用, 不存在的 id 不會出現在回傳的 map 中
func (s *ProductDBRepo) LockProductsByIDs(ctx context.Context, ids []uint) (map[uint]*model.Product, error) {
	sorted := uniqueSorted(ids)
	result := make(map[uint]*model.Product, len(sorted))
	if len(sorted) == 0 {
		return result, nil
	}

	var products []model.Product
	err := lockForUpdate(s.db.WithContext(ctx)).
		Where("id IN ?", sorted).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, ClassifyError(err)
	}

	for i := range products {
		result[products[i].ID] = &products[i]
	}
	return result, nil
}

// DecrementStock 條件式扣庫存, stock_quantity < quantity 時不更新
//
// 錯誤:
//   - ErrProductStockNotEnough: 沒有任何列被更新
func (s *ProductDBRepo) DecrementStock(ctx context.Context, id uint, quantity int) error {
	result := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, quantity).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return ClassifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductStockNotEnough
	}
	return nil
}

// sqlite 以單一 writer 序列化, 不支援 FOR UPDATE
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if !isPostgres(tx) {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func uniqueSorted(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
