package redis_decorator

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
	"github.com/rs/zerolog"
)

/*
商品讀取走 cache aside
db 為唯一真相來源, redis 失敗只記錄 log 不影響結果
異動後刪除快取, 下次讀取再回填
*/
type CacheAsideProductRepo struct {
	db.IProductRepository
	redis  redis_repo.IProductRedisRepository
	logger zerolog.Logger
}

func NewCacheAsideProductRepo(dbRepo db.IProductRepository, redis redis_repo.IProductRedisRepository, logger zerolog.Logger) *CacheAsideProductRepo {
	if dbRepo == nil {
		panic("NewCacheAsideProductRepo: db repository cannot be nil")
	}
	if redis == nil {
		panic("NewCacheAsideProductRepo: redis repository cannot be nil")
	}
	return &CacheAsideProductRepo{
		IProductRepository: dbRepo,
		redis:              redis,
		logger:             logger.With().Str("component", "product_cache").Logger(),
	}
}

func (p *CacheAsideProductRepo) GetProductByID(ctx context.Context, id uint) (*model.Product, error) {
	product, err := p.redis.GetProduct(ctx, id)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, redis_repo.ErrCacheMiss) {
		p.logger.Warn().Err(err).Uint("product_id", id).Msg("product cache read failed")
	}

	product, err = p.IProductRepository.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := p.redis.SetProduct(ctx, product); err != nil {
		p.logger.Warn().Err(err).Uint("product_id", id).Msg("product cache fill failed")
	}
	return product, nil
}

func (p *CacheAsideProductRepo) UpdateProductFields(ctx context.Context, id uint, fields map[string]any) (*model.Product, error) {
	product, err := p.IProductRepository.UpdateProductFields(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	p.InvalidateProducts(ctx, id)
	return product, nil
}

func (p *CacheAsideProductRepo) DeleteProduct(ctx context.Context, id uint) error {
	if err := p.IProductRepository.DeleteProduct(ctx, id); err != nil {
		return err
	}
	p.InvalidateProducts(ctx, id)
	return nil
}

// InvalidateProducts 刪除快取, 失敗只記錄
func (p *CacheAsideProductRepo) InvalidateProducts(ctx context.Context, ids ...uint) {
	if err := p.redis.DeleteProducts(ctx, ids...); err != nil {
		p.logger.Error().Err(err).Uints("product_ids", ids).Msg("product cache invalidate failed")
	}
}

var _ db.IProductRepository = (*CacheAsideProductRepo)(nil)
