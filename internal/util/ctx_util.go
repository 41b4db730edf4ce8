package util

import (
	"context"

	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
)

// GetUserFromContext 取得 auth payload middleware 解析出的用戶
// 匿名請求回傳 nil
func GetUserFromContext(ctx context.Context) *model.User {
	if v, ok := ctx.Value(constants.AuthorizationUserKey).(*model.User); ok {
		return v
	}
	return nil
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, constants.AuthorizationUserKey, user)
}

// GetAuthErrFromContext 帶了 token 但驗證失敗時的錯誤
func GetAuthErrFromContext(ctx context.Context) error {
	if v, ok := ctx.Value(constants.AuthorizationErrKey).(error); ok {
		return v
	}
	return nil
}

func WithAuthErr(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, constants.AuthorizationErrKey, err)
}

func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(constants.RequestIDKey).(string); ok {
		return v
	}
	return "unknown"
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, requestID)
}
