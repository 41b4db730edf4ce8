package middleware

import (
	"net"
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/pkg/ratelimit"
)

// NewRateLimitMiddleware 以 client ip 為 key 限流
// 需放在 chi RealIP 之後, RemoteAddr 才會是真實來源
func NewRateLimitMiddleware(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	if limiter == nil {
		panic("NewRateLimitMiddleware: limiter cannot be nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), clientIP(r)) {
				response.WriteError(w, r, apperr.New(apperr.TooManyRequestsCode, "Request was throttled."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
