package middleware

import (
	"net/http"
	"strings"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/service"
	"github.com/RoyceAzure/lab/storefront/internal/util"
	"github.com/rs/zerolog"
)

// 解析 bearer token 並放入 context, 不會中斷請求
// 沒有 Authorization header 視為匿名
// 有 header 但驗證失敗時把錯誤放入 context, 由後面的 middleware 決定回應
func AuthPayloadMiddleware(identity service.IIdentityService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorizationHeader := r.Header.Get(string(constants.AuthorizationHeaderKey))
			if strings.TrimSpace(authorizationHeader) == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			accessToken, ok := bearerToken(authorizationHeader)
			if !ok {
				err := apperr.Wrap(apperr.UnauthenticatedCode, "invalid authorization header format", service.ErrAuthentication)
				next.ServeHTTP(w, r.WithContext(util.WithAuthErr(ctx, err)))
				return
			}

			user, err := identity.ResolveToken(ctx, accessToken)
			if err != nil {
				next.ServeHTTP(w, r.WithContext(util.WithAuthErr(ctx, err)))
				return
			}
			// request log 帶上 user_id
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Uint("user_id", user.ID)
			})
			next.ServeHTTP(w, r.WithContext(util.WithUser(ctx, user)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 {
		return "", false
	}
	if strings.ToLower(fields[0]) != string(constants.AuthorizationTypeBearer) {
		return "", false
	}
	return fields[1], true
}
