package service

import (
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
)

var (
	ErrAuthentication      = errors.New("authentication failed")
	ErrTransactionConflict = errors.New("transaction conflict, please retry")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrNoItems             = errors.New("No items provided")
	ErrAnonymousOrder      = errors.New("authentication required to place an order")
	ErrOrderNotFound       = errors.New("order not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrUserNotFound        = errors.New("user not found")
)

// 下單時找不到商品, 整筆訂單 rollback
type ProductNotFoundError struct {
	ProductID uint
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product with ID %d not found.", e.ProductID)
}

// 下單時庫存不足, 整筆訂單 rollback
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s. Available: %d, Requested: %d", e.ProductName, e.Available, e.Requested)
}

// 商品或明細輸入不合法
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) *apperr.AppError {
	verr := &ValidationError{Field: field, Reason: reason}
	return apperr.Wrap(apperr.BadRequestCode, verr.Error(), verr).WithField("field", field)
}

func newProductNotFoundError(productID uint) *apperr.AppError {
	perr := &ProductNotFoundError{ProductID: productID}
	return apperr.Wrap(apperr.BadRequestCode, perr.Error(), perr).
		WithField("product_id", productID)
}

func newInsufficientStockError(productID uint, name string, available, requested int) *apperr.AppError {
	serr := &InsufficientStockError{
		ProductID:   productID,
		ProductName: name,
		Available:   available,
		Requested:   requested,
	}
	return apperr.Wrap(apperr.BadRequestCode, serr.Error(), serr).
		WithField("product_id", productID).
		WithField("available", available).
		WithField("requested", requested)
}

// wrapStorageError 將 repository 的錯誤轉成對外錯誤碼
// 交易衝突 -> 503 可重試, 其餘 -> 500
func wrapStorageError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, db.ErrTxConflict):
		return apperr.Wrap(apperr.UnavailableCode, ErrTransactionConflict.Error(), errors.Join(ErrTransactionConflict, err))
	case errors.Is(err, db.ErrStorageUnavailable):
		return apperr.Wrap(apperr.InternalErrorCode, apperr.ErrStrMap[apperr.InternalErrorCode], errors.Join(ErrStorageUnavailable, err))
	default:
		return apperr.Wrap(apperr.InternalErrorCode, apperr.ErrStrMap[apperr.InternalErrorCode], err)
	}
}
