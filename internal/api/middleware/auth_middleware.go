package middleware

import (
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/util"
)

// 允許匿名, 但帶了無效 token 時回應錯誤, 不會降級成匿名
func OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := util.GetAuthErrFromContext(r.Context()); err != nil {
			response.WriteError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// 驗證ctx是否有已解析的用戶
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := util.GetAuthErrFromContext(r.Context()); err != nil {
			response.WriteError(w, r, err)
			return
		}
		if util.GetUserFromContext(r.Context()) == nil {
			response.WriteError(w, r, apperr.New(apperr.UnauthenticatedCode, "Authentication credentials were not provided."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// 需要管理員身分, 需搭配 AuthMiddleware 之後使用
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := util.GetUserFromContext(r.Context())
		if user == nil {
			response.WriteError(w, r, apperr.New(apperr.UnauthenticatedCode, "Authentication credentials were not provided."))
			return
		}
		if !user.IsAdmin {
			response.WriteError(w, r, apperr.New(apperr.UnauthorizedCode, "You do not have permission to perform this action."))
			return
		}
		next.ServeHTTP(w, r)
	})
}
