package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/producer"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type IOrderService interface {
	CreateOrderWithItems(ctx context.Context, user *model.User, items []OrderItemInput) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID uint) ([]model.Order, error)
	GetOrderForUser(ctx context.Context, userID uint, orderID uint) (*model.Order, error)
}

type OrderItemInput struct {
	ProductID uint
	Quantity  int
}

// ProductCacheInvalidator 訂單 commit 後刪除被扣庫存商品的快取
type ProductCacheInvalidator interface {
	InvalidateProducts(ctx context.Context, ids ...uint)
}

type OrderServiceOptions struct {
	TxTimeout      time.Duration
	LockTimeout    time.Duration
	Retry          RetryPolicy
	AllowAnonymous bool
	EventTimeout   time.Duration
}

func DefaultOrderServiceOptions() OrderServiceOptions {
	return OrderServiceOptions{
		TxTimeout:      10 * time.Second,
		LockTimeout:    3 * time.Second,
		Retry:          DefaultRetryPolicy(),
		AllowAnonymous: true,
		EventTimeout:   5 * time.Second,
	}
}

type OrderServiceOption func(*OrderService)

// WithCacheInvalidator commit 後刪除商品快取
func WithCacheInvalidator(invalidator ProductCacheInvalidator) OrderServiceOption {
	return func(s *OrderService) {
		s.invalidator = invalidator
	}
}

// WithOrderEventProducer commit 後非同步發送 order.created 事件
func WithOrderEventProducer(p producer.IOrderEventProducer) OrderServiceOption {
	return func(s *OrderService) {
		s.eventProducer = p
	}
}

/*
下單流程在單一交易內完成:
建立訂單 -> 依 id 順序鎖定所有商品 -> 依呼叫順序檢查並扣庫存 -> 寫入明細 -> 更新總金額
任何一步失敗整筆 rollback, 不會留下部分扣除的庫存或空訂單
快取刪除與事件發送都在 commit 之後, 失敗只記錄 log
*/
type OrderService struct {
	unifiedDB     db.UnifiedDB
	opts          OrderServiceOptions
	invalidator   ProductCacheInvalidator
	eventProducer producer.IOrderEventProducer
	logger        zerolog.Logger
	wg            sync.WaitGroup
}

func NewOrderService(unifiedDB db.UnifiedDB, opts OrderServiceOptions, logger zerolog.Logger, options ...OrderServiceOption) *OrderService {
	if unifiedDB == nil {
		panic("NewOrderService: unifiedDB cannot be nil")
	}
	s := &OrderService{
		unifiedDB: unifiedDB,
		opts:      opts,
		logger:    logger.With().Str("component", "order_service").Logger(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// CreateOrderWithItems 原子性建立訂單與明細並扣除庫存
// user 為 nil 代表匿名訂單
//
// 錯誤:
//   - BadRequestCode: 沒有明細, 明細數量或商品id不合法, 商品不存在 (ProductNotFoundError), 庫存不足 (InsufficientStockError)
//   - UnauthenticatedCode: 不允許匿名下單
//   - UnavailableCode: 鎖等待逾時或交易衝突, 重試後仍失敗
//   - InternalErrorCode: 其他資料庫錯誤
func (s *OrderService) CreateOrderWithItems(ctx context.Context, user *model.User, items []OrderItemInput) (*model.Order, error) {
	if len(items) == 0 {
		return nil, apperr.Wrap(apperr.BadRequestCode, ErrNoItems.Error(), ErrNoItems)
	}
	for _, item := range items {
		if item.ProductID == 0 {
			return nil, newValidationError("product_id", "must be a positive integer")
		}
		if item.Quantity <= 0 {
			return nil, newValidationError("quantity", "must be greater than 0").WithField("product_id", item.ProductID)
		}
	}
	if user == nil && !s.opts.AllowAnonymous {
		return nil, apperr.Wrap(apperr.UnauthenticatedCode, ErrAnonymousOrder.Error(), ErrAnonymousOrder)
	}

	var order *model.Order
	err := retryOnConflict(ctx, s.opts.Retry, func(attempt int) error {
		if attempt > 0 {
			s.logger.Warn().Int("attempt", attempt).Msg("retrying order transaction after conflict")
		}
		var err error
		order, err = s.createOrderTx(ctx, user, items)
		return err
	})
	if err != nil {
		if appErr, ok := apperr.As(err); ok && appErr.Code == apperr.BadRequestCode {
			return nil, err
		}
		s.logger.Error().Err(err).Msg("create order failed")
		return nil, wrapStorageError(err)
	}

	s.afterCommit(ctx, order)
	return order, nil
}

func (s *OrderService) createOrderTx(ctx context.Context, user *model.User, items []OrderItemInput) (*model.Order, error) {
	txCtx := ctx
	if s.opts.TxTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.opts.TxTimeout)
		defer cancel()
	}

	var txOpts []db.TxOption
	if s.opts.LockTimeout > 0 {
		txOpts = append(txOpts, db.WithLockTimeout(s.opts.LockTimeout))
	}

	var order *model.Order
	err := s.unifiedDB.ExecTx(txCtx, func(tx db.UnifiedDB) error {
		order = &model.Order{
			TotalAmount: decimal.Zero,
			Status:      model.OrderStatusPending,
		}
		if user != nil {
			order.UserID = &user.ID
		}
		if err := tx.CreateOrder(txCtx, order); err != nil {
			return err
		}

		ids := make([]uint, len(items))
		for i, item := range items {
			ids[i] = item.ProductID
		}
		products, err := tx.LockProductsByIDs(txCtx, ids)
		if err != nil {
			return err
		}

		total := decimal.Zero
		orderItems := make([]model.OrderItem, 0, len(items))
		for _, item := range items {
			product, ok := products[item.ProductID]
			if !ok {
				return newProductNotFoundError(item.ProductID)
			}
			if product.StockQuantity < item.Quantity {
				return newInsufficientStockError(product.ID, product.Name, product.StockQuantity, item.Quantity)
			}

			if err := tx.DecrementStock(txCtx, product.ID, item.Quantity); err != nil {
				if errors.Is(err, db.ErrProductStockNotEnough) {
					return newInsufficientStockError(product.ID, product.Name, product.StockQuantity, item.Quantity)
				}
				return err
			}
			// 同一商品重複出現時, 後面的明細要看到扣除後的庫存
			product.StockQuantity -= item.Quantity

			orderItem := model.OrderItem{
				OrderID:         order.ID,
				ProductID:       product.ID,
				Quantity:        item.Quantity,
				PriceAtPurchase: product.Price,
			}
			total = total.Add(orderItem.LineTotal())
			orderItems = append(orderItems, orderItem)
		}

		if total.GreaterThan(model.MaxMoney) {
			return newValidationError("total_amount", "must not exceed "+model.MaxMoney.StringFixed(2))
		}

		if err := tx.CreateOrderItems(txCtx, orderItems); err != nil {
			return err
		}
		if err := tx.UpdateOrderTotal(txCtx, order.ID, total); err != nil {
			return err
		}

		for i := range orderItems {
			snapshot := *products[orderItems[i].ProductID]
			orderItems[i].Product = &snapshot
		}
		order.OrderItems = orderItems
		order.TotalAmount = total
		order.User = user
		return nil
	}, txOpts...)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// afterCommit 快取刪除同步執行, 事件在背景送出, 都不影響回傳結果
func (s *OrderService) afterCommit(ctx context.Context, order *model.Order) {
	ids := make([]uint, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		ids = append(ids, item.ProductID)
	}
	if s.invalidator != nil && len(ids) > 0 {
		s.invalidator.InvalidateProducts(context.WithoutCancel(ctx), ids...)
	}

	s.logger.Info().
		Uint("order_id", order.ID).
		Str("total_amount", order.TotalAmount.StringFixed(2)).
		Int("items", len(order.OrderItems)).
		Msg("order created")

	if s.eventProducer == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		evtCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.eventTimeout())
		defer cancel()
		if err := s.eventProducer.ProduceOrderCreatedEvent(evtCtx, order); err != nil {
			s.logger.Error().Err(err).Uint("order_id", order.ID).Msg("publish order created event failed")
		}
	}()
}

func (s *OrderService) eventTimeout() time.Duration {
	if s.opts.EventTimeout > 0 {
		return s.opts.EventTimeout
	}
	return 5 * time.Second
}

// Wait 等待背景事件發送完成, 關閉 producer 前呼叫
func (s *OrderService) Wait() {
	s.wg.Wait()
}

// ListOrdersByUser 用戶自己的訂單, 新的在前
func (s *OrderService) ListOrdersByUser(ctx context.Context, userID uint) ([]model.Order, error) {
	orders, err := s.unifiedDB.ListOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, wrapStorageError(err)
	}
	return orders, nil
}

// GetOrderForUser 訂單不屬於該用戶時視為不存在
//
// 錯誤:
//   - NotFoundCode: 訂單不存在或不屬於該用戶
func (s *OrderService) GetOrderForUser(ctx context.Context, userID uint, orderID uint) (*model.Order, error) {
	order, err := s.unifiedDB.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			return nil, apperr.Wrap(apperr.NotFoundCode, ErrOrderNotFound.Error(), err)
		}
		return nil, wrapStorageError(err)
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, apperr.Wrap(apperr.NotFoundCode, ErrOrderNotFound.Error(), ErrOrderNotFound)
	}
	return order, nil
}

var _ IOrderService = (*OrderService)(nil)
