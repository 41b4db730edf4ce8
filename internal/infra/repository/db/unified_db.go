package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UnifiedDB 統一的資料庫介面
type UnifiedDB interface {
	// 基礎操作
	GetDB() *gorm.DB
	InitMigrate() error
	ExecTx(ctx context.Context, fn func(tx UnifiedDB) error, opts ...TxOption) error

	// Product 相關操作
	IProductRepository

	// Order 相關操作
	IOrderRepository

	// User 相關操作
	IUserRepository
}

type txOptions struct {
	lockTimeout time.Duration
}

type TxOption func(*txOptions)

// WithLockTimeout 限制交易內等待列鎖的時間 (postgres lock_timeout)
// 逾時會得到 ErrTxConflict
func WithLockTimeout(d time.Duration) TxOption {
	return func(o *txOptions) {
		o.lockTimeout = d
	}
}

// UnifiedDBImpl 統一資料庫實現
type UnifiedDBImpl struct {
	db    *gorm.DB
	dbDao *DbDao
	*ProductDBRepo
	*OrderRepo
	*UserRepo
}

// NewUnifiedDB 創建新的統一資料庫實例
// db 可以是一般連線或交易中的 *gorm.DB
func NewUnifiedDB(db *gorm.DB) *UnifiedDBImpl {
	dbDao := NewDbDao(db)
	return &UnifiedDBImpl{
		db:            db,
		dbDao:         dbDao,
		ProductDBRepo: NewProductDBRepo(dbDao),
		OrderRepo:     NewOrderRepo(dbDao),
		UserRepo:      NewUserRepo(dbDao),
	}
}

func (u *UnifiedDBImpl) InitMigrate() error {
	return u.dbDao.InitMigrate()
}

// GetDB 獲取資料庫連接
func (u *UnifiedDBImpl) GetDB() *gorm.DB {
	return u.db
}

// ExecTx 執行一個交易
// fn 回傳錯誤或 ctx 在 commit 前已取消時 rollback
// postgres 使用 READ COMMITTED, 搭配 FOR UPDATE 列鎖
func (u *UnifiedDBImpl) ExecTx(ctx context.Context, fn func(tx UnifiedDB) error, opts ...TxOption) error {
	o := &txOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var sqlOpts []*sql.TxOptions
	if isPostgres(u.db) {
		sqlOpts = append(sqlOpts, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	}

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isPostgres(tx) && o.lockTimeout > 0 {
			// SET 不接受參數綁定
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", o.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}

		if err := fn(NewUnifiedDB(tx)); err != nil {
			return err
		}

		return ctx.Err()
	}, sqlOpts...)

	// ctx 取消後 database/sql 可能先回傳 ErrTxDone, 保留取消原因
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		err = errors.Join(ctx.Err(), err)
	}
	return ClassifyError(err)
}

var (
	_ UnifiedDB          = (*UnifiedDBImpl)(nil)
	_ IProductRepository = (*UnifiedDBImpl)(nil)
	_ IOrderRepository   = (*UnifiedDBImpl)(nil)
	_ IUserRepository    = (*UnifiedDBImpl)(nil)
)
