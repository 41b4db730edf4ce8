package apperr

import (
	"errors"
	"fmt"

	er "github.com/RoyceAzure/rj/util/rj_error"
)

// Code 同時是 http status code
type Code = er.ErrCode

const (
	BadRequestCode      = er.BadRequestCode
	UnauthenticatedCode = er.UnauthenticatedCode
	UnauthorizedCode    = er.UnauthorizedCode
	NotFoundCode        = er.NotFoundCode
	ConflictCode        = er.ConflictCode
	TooManyRequestsCode = er.TooManyRequestsCode
	InternalErrorCode   = er.InternalErrorCode
	UnavailableCode     = er.UnavailableCode
)

var ErrStrMap = er.ErrStrMap

// AppError 在 AnaError 上加入底層錯誤與回應欄位
// ExternalMsg 會回傳給client, Err 只用於log
// Fields 會被合併到錯誤回應中
type AppError struct {
	*er.AnaError
	Err    error
	Fields map[string]any
}

// Message 回傳給 client 的訊息, 沒有設定時使用錯誤碼的預設訊息
func (e *AppError) Message() string {
	if e.ExternalMsg == "" {
		return e.CodeMsg
	}
	return e.ExternalMsg
}

// Error 底層錯誤訊息與 Message 相同時不重複
func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message() {
		return fmt.Sprintf("%s: %v", e.Message(), e.Err)
	}
	return e.Message()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code Code, msg string) *AppError {
	return &AppError{AnaError: er.New(code, msg)}
}

func Wrap(code Code, msg string, err error) *AppError {
	return &AppError{AnaError: er.New(code, msg), Err: err}
}

func (e *AppError) WithField(key string, value any) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// As 從錯誤鏈中取出 AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf 取得錯誤碼，非 AppError 一律視為 InternalErrorCode
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return InternalErrorCode
}
