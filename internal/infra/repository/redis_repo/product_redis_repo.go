package redis_repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

// IProductRedisRepository 商品快取
// 快取只服務讀取, 下單交易一律讀資料庫
type IProductRedisRepository interface {
	// GetProduct 取得快取商品, 不存在時回傳 ErrCacheMiss
	GetProduct(ctx context.Context, productID uint) (*model.Product, error)

	// SetProduct 寫入快取
	SetProduct(ctx context.Context, product *model.Product) error

	// DeleteProducts 刪除快取
	DeleteProducts(ctx context.Context, productIDs ...uint) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
)

// ProductRedisRepo 以 json 保存商品
//
//	product:{id} -> json
type ProductRedisRepo struct {
	productCache *redis.Client
	ttl          time.Duration
}

func NewProductRedisRepo(productCache *redis.Client, ttl time.Duration) *ProductRedisRepo {
	if productCache == nil {
		panic("NewProductRedisRepo: redis client cannot be nil")
	}
	return &ProductRedisRepo{productCache: productCache, ttl: ttl}
}

func generateProductKey(productID uint) string {
	return fmt.Sprintf("product:%d", productID)
}

// 錯誤:
//   - ErrCacheMiss: 快取不存在
//   - err: 其他錯誤
func (s *ProductRedisRepo) GetProduct(ctx context.Context, productID uint) (*model.Product, error) {
	data, err := s.productCache.Get(ctx, generateProductKey(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var product model.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("decode cached product %d: %w", productID, err)
	}
	return &product, nil
}

func (s *ProductRedisRepo) SetProduct(ctx context.Context, product *model.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return s.productCache.Set(ctx, generateProductKey(product.ID), data, s.ttl).Err()
}

func (s *ProductRedisRepo) DeleteProducts(ctx context.Context, productIDs ...uint) error {
	if len(productIDs) == 0 {
		return nil
	}
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = generateProductKey(id)
	}
	return s.productCache.Del(ctx, keys...).Err()
}

// 確保 ProductRedisRepo 實現了 IProductRedisRepository 介面
var _ IProductRedisRepository = (*ProductRedisRepo)(nil)
