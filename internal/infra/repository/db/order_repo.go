package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrOrderNotFound 訂單不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidOrderStatus 不在 OrderStatus 列舉內
	ErrInvalidOrderStatus = errors.New("invalid order status")
)

// IOrderRepository Order 相關操作介面
type IOrderRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	CreateOrderItems(ctx context.Context, items []model.OrderItem) error
	UpdateOrderTotal(ctx context.Context, orderID uint, total decimal.Decimal) error
	GetOrderByID(ctx context.Context, id uint) (*model.Order, error)
	ListOrdersByUserID(ctx context.Context, userID uint) ([]model.Order, error)
}

type OrderRepo struct {
	db *DbDao
}

func NewOrderRepo(db *DbDao) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create - 創建訂單, 不連帶寫入明細
// 沒有指定狀態時為 Pending
//
// 錯誤:
//   - ErrInvalidOrderStatus: 狀態不在列舉內
func (s *OrderRepo) CreateOrder(ctx context.Context, order *model.Order) error {
	if order.Status == "" {
		order.Status = model.OrderStatusPending
	}
	if !order.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidOrderStatus, order.Status)
	}
	return ClassifyError(s.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error)
}

// Create - 批次寫入訂單明細
func (s *OrderRepo) CreateOrderItems(ctx context.Context, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return ClassifyError(s.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error)
}

// Update - 更新訂單金額
func (s *OrderRepo) UpdateOrderTotal(ctx context.Context, orderID uint, total decimal.Decimal) error {
	result := s.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", orderID).Update("total_amount", total)
	if result.Error != nil {
		return ClassifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Read - 根據ID查詢訂單, 包含明細與商品 (含已軟刪除的商品)
func (s *OrderRepo) GetOrderByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	err := withOrderDetail(s.db.WithContext(ctx)).First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, ClassifyError(err)
	}
	return &order, nil
}

// Read - 根據用戶ID查詢訂單, 新訂單在前
func (s *OrderRepo) ListOrdersByUserID(ctx context.Context, userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := withOrderDetail(s.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, ClassifyError(err)
	}
	return orders, nil
}

func withOrderDetail(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id")
		}).
		Preload("OrderItems.Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		})
}
